/*
PURPOSE:
  Defines the 'list-pages' subcommand.
  Helps debug page set configuration.

REQUIREMENTS:
  User-specified:
  - List the configured pages.

  Implementation-discovered:
  - Useful validation step before full run.
  - Shows the resolved URL when a serve_dir is configured.

ARCHITECTURE INTEGRATION:
  - Uses: internal/config, internal/server.Resolve()

ERROR HANDLING:
  - Prints unresolvable pages to stderr and keeps going.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  page-cycler list-pages --config page_cycler.yaml
*/

package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/daryltucker/page-cycler/internal/config"
	"github.com/daryltucker/page-cycler/internal/server"
)

var listPagesCmd = &cobra.Command{
	Use:   "list-pages",
	Short: "List the pages a run would load",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyOverrides(cmd.Flags(), cfg)

		// The server port is only known at run time.
		var base *url.URL
		if cfg.ServeDir != "" {
			base = &url.URL{Scheme: "http", Host: "127.0.0.1", Path: "/"}
		}

		out := cmd.OutOrStdout()
		for i, p := range cfg.Pages {
			u, err := server.Resolve(base, p.URL)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				continue
			}
			if p.Name != "" {
				fmt.Fprintf(out, "%d. %s (%s)\n", i+1, u, p.Name)
			} else {
				fmt.Fprintf(out, "%d. %s\n", i+1, u)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listPagesCmd)
	listPagesCmd.Flags().StringSliceVar(&pagesOverride, "pages", nil, "Comma-separated list of page URLs")
	listPagesCmd.Flags().StringVar(&serveDirOverride, "serve-dir", "", "Directory to serve over loopback HTTP")
}
