/*
PURPOSE:
  High-level runner that orchestrates a page cycler run.
  Config -> outputs -> page server -> browser -> collectors -> page set loop.

REQUIREMENTS:
  User-specified:
  - Run the page set against one browser.
  - Log results to CSV/JSON (and optionally a Prometheus textfile).

  Implementation-discovered:
  - Needs a run id so rows from different runs can be merged.
  - Process metrics are best effort; procfs is missing on some platforms.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/browser, internal/server, internal/metrics, internal/output

ERROR HANDLING:
  - Setup failures abort the run.
  - Navigation failures are logged and recorded; the run continues.

USAGE:
  engine.Run(ctx, cfg)

RELATED FILES:
  - internal/engine/pageset.go
  - internal/engine/cycler.go
*/

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/daryltucker/page-cycler/internal/assets"
	"github.com/daryltucker/page-cycler/internal/browser"
	"github.com/daryltucker/page-cycler/internal/config"
	"github.com/daryltucker/page-cycler/internal/metrics"
	"github.com/daryltucker/page-cycler/internal/output"
	"github.com/daryltucker/page-cycler/internal/server"
)

// Run executes a full page cycler run.
func Run(ctx context.Context, cfg *config.Config) error {
	sched, err := cfg.Validate()
	if err != nil {
		return err
	}
	runID := uuid.NewString()

	// Ensure output directory exists
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}

	// Setup Outputs
	csvPath := filepath.Join(cfg.OutputDir, cfg.OutputFile)
	csvWriter, err := output.NewCSVWriter(csvPath)
	if err != nil {
		return fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}
	defer csvWriter.Close()

	jsonPath := filepath.Join(cfg.OutputDir, cfg.JSONFile)
	jsonWriter, err := output.NewJSONWriter(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}
	defer jsonWriter.Close()

	writers := []ResultWriter{csvWriter, jsonWriter}
	if cfg.PrometheusTextfile != "" {
		writers = append(writers, output.NewPromWriter(filepath.Join(cfg.OutputDir, cfg.PrometheusTextfile)))
	}

	pages, err := resolvePages(cfg)
	if err != nil {
		return err
	}
	var srv *server.Server
	if cfg.ServeDir != "" {
		if srv, err = server.Start(cfg.ServeDir); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		for i := range pages {
			if pages[i].URL, err = srv.Resolve(pages[i].URL); err != nil {
				return err
			}
		}
	}

	initialURL, err := resolveInitialURL(cfg.InitialURL, srv)
	if err != nil {
		return err
	}

	b, err := browser.Launch(ctx, browser.Options{
		Bin:          cfg.Browser.Bin,
		Headless:     cfg.Browser.Headless,
		UserDataDir:  cfg.Browser.UserDataDir,
		ExtraArgs:    cfg.Browser.ExtraArgs,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	tab, err := b.NewTab(ctx)
	if err != nil {
		return err
	}

	opts := CyclerOptions{
		RunID:        runID,
		Payload:      assets.MustPayload(assets.PageCyclerScript),
		LoadTimeout:  cfg.LoadTimeout,
		PollInterval: cfg.PollInterval,
	}
	if cfg.ReportSpeedIndex {
		opts.PreNavigate = append(opts.PreNavigate, metrics.NewSpeedIndexMetric(assets.MustPayload(assets.SpeedIndexScript)))
	}
	if cfg.ProcessMetrics {
		sampler, err := metrics.NewProcessTree(b.PID())
		if err != nil {
			output.Logger.Warn("Process metrics unavailable", "error", err)
		} else {
			opts.PostNavigate = append(opts.PostNavigate, metrics.NewMemoryMetric(sampler))
			opts.SummaryOnly = append(opts.SummaryOnly, metrics.NewIOMetric(sampler))
		}
	}
	if cfg.ObjectStats {
		opts.PostNavigate = append(opts.PostNavigate, metrics.NewObjectStatsMetric())
	}

	output.Logger.Info("Starting run",
		"run_id", runID,
		"pages", len(pages),
		"cold_run_start_index", sched.ColdRunStartIndex,
		"discard_first_result", sched.DiscardFirstResult,
	)

	runner := NewRunner(NewCycler(sched, opts), tab, pages, RunnerOptions{
		RunID:              runID,
		PageSetRepeat:      cfg.PageSetRepeat,
		PageRepeat:         cfg.PageRepeat,
		PageSetRepeatFor:   time.Duration(cfg.PageSetRepeatSecs) * time.Second,
		PageRepeatFor:      time.Duration(cfg.PageRepeatSecs) * time.Second,
		Shuffle:            cfg.PageSetShuffle,
		ShuffleSeed:        cfg.ShuffleSeed,
		DiscardFirstResult: sched.DiscardFirstResult,
		InitialURL:         initialURL,
	}, writers...)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	output.Logger.Info("Run complete",
		"run_id", runID,
		"navigations", summary.Navigations,
		"failures", summary.Failures,
		"csv", csvPath,
		"json", jsonPath,
	)
	return nil
}

// warmupPage is never part of a page set. Loading it before the first page
// puts the tab in the page-set server's renderer, so the first measured load
// does not pay for a cross-site navigation.
const warmupPage = "nonexistent.html"

// resolveInitialURL picks the unmeasured first navigation.
func resolveInitialURL(initial string, srv *server.Server) (string, error) {
	switch {
	case initial != "" && srv != nil:
		return srv.Resolve(initial)
	case initial != "":
		return server.Resolve(nil, initial)
	case srv != nil:
		return srv.Resolve(warmupPage)
	default:
		return "about:blank", nil
	}
}

// resolvePages converts configured pages into absolute-URL pages. Relative
// URLs are left for the page server to resolve.
func resolvePages(cfg *config.Config) ([]metrics.Page, error) {
	pages := make([]metrics.Page, 0, len(cfg.Pages))
	for _, p := range cfg.Pages {
		u := p.URL
		if cfg.ServeDir == "" {
			var err error
			if u, err = server.Resolve(nil, p.URL); err != nil {
				return nil, err
			}
		}
		pages = append(pages, metrics.Page{URL: u, Name: p.Name})
	}
	return pages, nil
}
