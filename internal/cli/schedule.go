/*
PURPOSE:
  Defines the 'schedule' subcommand.
  Prints the navigation plan of a run without launching a browser.

REQUIREMENTS:
  Implementation-discovered:
  - Useful validation step before a long run: shows which navigations clear
    the cache and which report as cold.
  - Machine-readable output with --json.

ARCHITECTURE INTEGRATION:
  - Calls: internal/schedule.Plan()
  - Uses: internal/config

ERROR HANDLING:
  - Returns configuration errors unchanged.

USAGE:
  page-cycler schedule --pages a.html,b.html --pageset-repeat 4 --cold-load-percent 50
*/

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/page-cycler/internal/config"
	"github.com/daryltucker/page-cycler/internal/schedule"
)

var scheduleJSON bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the cold/warm navigation plan without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyOverrides(cmd.Flags(), cfg)
		if _, err := cfg.Validate(); err != nil {
			return err
		}

		urls := make([]string, 0, len(cfg.Pages))
		for _, p := range cfg.Pages {
			urls = append(urls, p.URL)
		}
		plan, err := schedule.Plan(urls, cfg.RunConfiguration())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if scheduleJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		fmt.Fprintf(out, "%-6s %-8s %-5s %-6s %-11s %s\n", "INDEX", "PAGESET", "PAGE", "CLASS", "CLEAR_CACHE", "URL")
		for _, v := range plan {
			class := "warm"
			if v.Cold {
				class = "cold"
			}
			fmt.Fprintf(out, "%-6d %-8d %-5d %-6s %-11t %s\n", v.Index, v.PageSetIteration, v.PageIteration, class, v.ClearCache, v.Page)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	addScheduleFlags(scheduleCmd.Flags())
	scheduleCmd.Flags().BoolVar(&scheduleJSON, "json", false, "Print the plan as JSON")
}
