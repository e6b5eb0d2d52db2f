package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pixl.

To load completions:

Bash:
  $ source <(pixl completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ pixl completion bash > /etc/bash_completion.d/pixl
  # macOS:
  $ pixl completion bash > $(brew --prefix)/etc/bash_completion.d/pixl

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ pixl completion zsh > "${fpath[1]}/_pixl"

Fish:
  $ pixl completion fish | source

  # To load completions for each session, execute once:
  $ pixl completion fish > ~/.config/fish/completions/pixl.fish

PowerShell:
  PS> pixl completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// completeBooks completes the first argument with the names of stored
// books. Completion runs without PersistentPreRunE, so the config is
// loaded here.
func (c *CLI) completeBooks(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	if err := c.loadConfig(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx := withLogger(commandContext(cmd), c.Logger)
	bs, err := c.openBooks(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer bs.Close()

	infos, err := bs.List(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, info := range infos {
		if strings.HasPrefix(info.Filename, toComplete) {
			names = append(names, info.Filename)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
