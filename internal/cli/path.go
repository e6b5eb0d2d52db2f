package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pathCommand creates the "path" command.
func (c *CLI) pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path [dir]",
		Short: "Show or change the base path books are stored in",
		Long: `Without an argument, print the base path. With one, switch it.

The directory must exist. With --remote the running server's base path is
changed; locally the change only lasts for this invocation, so set
storage.path in the config file to make it permanent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := c.openBooks(ctx)
			if err != nil {
				return err
			}
			defer bs.Close()

			if len(args) == 0 {
				dir, err := bs.Path(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			}

			if err := bs.SetPath(ctx, args[0]); err != nil {
				return err
			}
			dir, err := bs.Path(ctx)
			if err != nil {
				return err
			}
			printSuccess("Base path set")
			printFile(dir)
			return nil
		},
	}
}
