/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the page cycler against a real browser.

REQUIREMENTS:
  User-specified:
  - Run the benchmark.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config; only flags the user set override the file.
  - cold-load-percent distinguishes "unset" from 0, so it is applied only
    when the flag was changed.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load fails or engine run fails.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Engine.Run.

USAGE:
  page-cycler run --pages https://example.com/ --pageset-repeat 5

RELATED FILES:
  - internal/cli/root.go
  - internal/cli/schedule.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/daryltucker/page-cycler/internal/config"
	"github.com/daryltucker/page-cycler/internal/engine"
)

var (
	pagesOverride      []string
	serveDirOverride   string
	outputOverride     string
	pageSetRepeat      int
	pageRepeat         int
	pageSetRepeatSecs  int
	pageRepeatSecs     int
	coldLoadPercent    int
	discardFirstResult bool
	shuffle            bool
	shuffleSeed        int64
	speedIndex         bool
	objectStats        bool
	processMetrics     bool
	browserBin         string
	headless           bool
	promTextfile       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the page cycler",
	Long: `Loads every page of the page set repeatedly in a browser and records metrics.
The process follows a strict protocol per navigation:
1. Pre-navigate: inject the load payload, clear the cache for scheduled cold
   loads, start speed index.
2. Navigate, then start memory and object stats collection.
3. Wait for the in-page load signal and record page_load_time under
   cold_times or warm_times.
4. Stop every collector and write the results.

The first visit of each page is cold. With --cold-load-percent the last part of
the run is also cold: the cache is cleared before each of those navigations.

Results are saved to CSV and JSON Lines, with a summary at the end.`,
	Example: `  # Run with defaults (uses page_cycler.yaml)
  page-cycler run

  # Serve a local page set and measure it five times, 40% cold
  page-cycler run --serve-dir ./pages --pages index.html,news.html \
    --pageset-repeat 5 --cold-load-percent 40

  # Report speed index and object stats
  page-cycler run --speed-index --object-stats -o ./results`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// 2. Overrides
		applyOverrides(cmd.Flags(), cfg)

		// 3. Execution
		return engine.Run(cmd.Context(), cfg)
	},
}

// addScheduleFlags registers the flags that shape the navigation schedule.
func addScheduleFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&pagesOverride, "pages", nil, "Comma-separated list of page URLs (relative URLs need --serve-dir)")
	fs.IntVar(&pageSetRepeat, "pageset-repeat", 0, "Number of times to repeat the whole page set")
	fs.IntVar(&pageRepeat, "page-repeat", 0, "Number of times to repeat each page before moving on")
	fs.IntVar(&coldLoadPercent, "cold-load-percent", 0, "Percentage of page set iterations that run with a cleared cache (0-100)")
	fs.BoolVar(&discardFirstResult, "discard-first-result", false, "Discard the first result of each page")
}

// applyOverrides copies every flag the user set onto cfg.
func applyOverrides(fs *pflag.FlagSet, cfg *config.Config) {
	if len(pagesOverride) > 0 {
		cfg.Pages = make([]config.Page, 0, len(pagesOverride))
		for _, u := range pagesOverride {
			cfg.Pages = append(cfg.Pages, config.Page{URL: u})
		}
	}
	if fs.Changed("serve-dir") {
		cfg.ServeDir = serveDirOverride
	}
	if outputOverride != "" {
		cfg.OutputDir = outputOverride
	}
	if fs.Changed("pageset-repeat") {
		cfg.PageSetRepeat = pageSetRepeat
	}
	if fs.Changed("page-repeat") {
		cfg.PageRepeat = pageRepeat
	}
	if fs.Changed("pageset-repeat-secs") {
		cfg.PageSetRepeatSecs = pageSetRepeatSecs
	}
	if fs.Changed("page-repeat-secs") {
		cfg.PageRepeatSecs = pageRepeatSecs
	}
	if fs.Changed("cold-load-percent") {
		pct := coldLoadPercent
		cfg.ColdLoadPercent = &pct
	}
	if fs.Changed("discard-first-result") {
		d := discardFirstResult
		cfg.DiscardFirstResult = &d
	}
	if fs.Changed("shuffle") {
		cfg.PageSetShuffle = shuffle
	}
	if fs.Changed("shuffle-seed") {
		cfg.ShuffleSeed = shuffleSeed
	}
	if fs.Changed("speed-index") {
		cfg.ReportSpeedIndex = speedIndex
	}
	if fs.Changed("object-stats") {
		cfg.ObjectStats = objectStats
	}
	if fs.Changed("process-metrics") {
		cfg.ProcessMetrics = processMetrics
	}
	if browserBin != "" {
		cfg.Browser.Bin = browserBin
	}
	if fs.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if promTextfile != "" {
		cfg.PrometheusTextfile = promTextfile
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	addScheduleFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&serveDirOverride, "serve-dir", "", "Directory to serve over loopback HTTP")
	runCmd.Flags().StringVarP(&outputOverride, "output-dir", "o", "", "Output directory for results (CSV/JSON)")
	runCmd.Flags().IntVar(&pageSetRepeatSecs, "pageset-repeat-secs", 0, "Repeat the page set for this many seconds instead of a count")
	runCmd.Flags().IntVar(&pageRepeatSecs, "page-repeat-secs", 0, "Repeat each page for this many seconds instead of a count")
	runCmd.Flags().BoolVar(&shuffle, "shuffle", false, "Shuffle the page set order on every iteration")
	runCmd.Flags().Int64Var(&shuffleSeed, "shuffle-seed", 0, "Seed for --shuffle (0 picks one from the clock)")
	runCmd.Flags().BoolVar(&speedIndex, "speed-index", false, "Report speed index")
	runCmd.Flags().BoolVar(&objectStats, "object-stats", false, "Report JS heap and DOM object counts")
	runCmd.Flags().BoolVar(&processMetrics, "process-metrics", true, "Report browser process memory and IO")
	runCmd.Flags().StringVar(&browserBin, "browser-bin", "", "Browser binary (default downloads or finds Chromium)")
	runCmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	runCmd.Flags().StringVar(&promTextfile, "prom-textfile", "", "Also write a Prometheus textfile with this name in the output directory")
}
