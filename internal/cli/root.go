/*
PURPOSE:
  Defines the root Cobra command for the page cycler CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Log level and format are global so every subcommand logs the same way.
  - Ctrl-C must end the run cleanly so result files are flushed.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/page-cycler/main.go
  - Calls: Child commands (run, schedule, list-pages, payloads)

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.

USAGE:
  Called by main.go.

RELATED FILES:
  - cmd/page-cycler/main.go
  - internal/output/logger.go
*/

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daryltucker/page-cycler/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "page-cycler",
		Short: "Repeated page load benchmark for browsers",
		Long: `Loads a page set repeatedly in a real browser, splitting navigations into
cold and warm cache runs and recording load time, memory and other metrics.
Use 'run --help' for benchmark options.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.Configure(cmd.ErrOrStderr(), logLevel, logFormat)
		},
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./page_cycler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}
