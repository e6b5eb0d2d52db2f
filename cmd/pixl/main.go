// Command pixl creates, draws on, exports and serves pixel books.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixlkit/pixl/internal/cli"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Exit statuses. Scripts can tell a rejected request from a failure.
const (
	exitFailure     = 1
	exitBadInput    = 2
	exitNotFound    = 3
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "pixl:", err)
		}
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	verbose := root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	// --verbose is applied before the config is read, so it overrides
	// [log] level.
	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if loadConfig == nil {
			return nil
		}
		return loadConfig(cmd, args)
	}

	return root.ExecuteContext(ctx)
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	switch code := perrors.GetCode(err); {
	case code == perrors.ErrCodeNotFound:
		return exitNotFound
	case strings.HasPrefix(string(code), "INVALID_"):
		return exitBadInput
	}
	return exitFailure
}
