package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/daryltucker/page-cycler/internal/metrics"
	"github.com/daryltucker/page-cycler/internal/model"
	"github.com/daryltucker/page-cycler/internal/output"
)

// ResultWriter persists navigation and summary results.
type ResultWriter interface {
	Write(r *model.PageResults) error
	WriteSummary(s *model.SummaryResults) error
}

// RunnerOptions controls iteration over the page set.
type RunnerOptions struct {
	RunID string
	// Count-bounded repeats, used when the matching duration is zero.
	PageSetRepeat int
	PageRepeat    int
	// Time-bounded repeats; a dimension runs at least once.
	PageSetRepeatFor time.Duration
	PageRepeatFor    time.Duration

	Shuffle     bool
	ShuffleSeed int64

	DiscardFirstResult bool
	// InitialURL is loaded once, unmeasured, before the first page.
	InitialURL string
}

// Runner walks the page set and feeds every navigation to the cycler.
type Runner struct {
	cycler  *Cycler
	tab     Tab
	pages   []metrics.Page
	opts    RunnerOptions
	writers []ResultWriter

	rng *rand.Rand
	now func() time.Time
}

// NewRunner returns a runner over pages.
func NewRunner(cycler *Cycler, tab Tab, pages []metrics.Page, opts RunnerOptions, writers ...ResultWriter) *Runner {
	seed := opts.ShuffleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		cycler:  cycler,
		tab:     tab,
		pages:   pages,
		opts:    opts,
		writers: writers,
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1))),
		now:     time.Now,
	}
}

// Run executes every scheduled navigation and returns the run summary.
// Only context cancellation stops a run early; the summary of what ran is
// still written and returned with ctx.Err(). Navigation failures are
// recorded and the run moves on.
func (r *Runner) Run(ctx context.Context) (*model.SummaryResults, error) {
	if r.opts.InitialURL != "" {
		if err := r.tab.Navigate(ctx, r.opts.InitialURL); err != nil {
			output.Logger.Warn("Initial navigation failed", "url", r.opts.InitialURL, "error", err)
		}
	}

	r.cycler.Begin(ctx)

	var all []*model.PageResults
	failures := 0

	pageSetStart := r.now()
	for ps := 0; r.more(ps, r.opts.PageSetRepeat, r.opts.PageSetRepeatFor, pageSetStart); ps++ {
		output.Logger.Info("Starting page set iteration", "iteration", ps+1)

		for _, page := range r.order() {
			pageStart := r.now()
			for pr := 0; r.more(pr, r.opts.PageRepeat, r.opts.PageRepeatFor, pageStart); pr++ {
				if err := ctx.Err(); err != nil {
					output.Logger.Warn("Run interrupted, writing partial summary", "navigations", len(all))
					return r.finish(all, failures), err
				}

				before := r.cycler.Classifier().Visits(page.URL)
				res, err := r.cycler.Cycle(ctx, r.tab, page)
				res.PageSetIteration = ps
				res.PageIteration = pr
				// The first result is the page's first counted visit; a load
				// that timed out before counting leaves it for the next one.
				after := r.cycler.Classifier().Visits(page.URL)
				if r.opts.DiscardFirstResult && before == 0 && after == 1 {
					res.Discarded = true
				}

				if err != nil {
					failures++
					res.Error = err.Error()
					var timeout *MetricTimeoutError
					if errors.As(err, &timeout) {
						output.Logger.Warn("Navigation timed out", "page", page.URL, "signal", timeout.Signal, "timeout", timeout.Timeout)
					} else {
						output.Logger.Error("Navigation failed", "page", page.URL, "error", err)
					}
				} else {
					output.Logger.Info("Page measured",
						"page", page.URL,
						"index", res.Index,
						"class", res.ChartPrefix,
						"cleared_cache", res.ClearedCache,
						"discarded", res.Discarded,
					)
				}

				r.write(res)
				all = append(all, res)
			}
		}
	}

	return r.finish(all, failures), nil
}

// finish runs the summary hooks, aggregates all and writes the summary.
func (r *Runner) finish(all []*model.PageResults, failures int) *model.SummaryResults {
	summary := &model.SummaryResults{
		RunID:       r.opts.RunID,
		Timestamp:   r.now(),
		Navigations: len(all),
		Failures:    failures,
	}
	r.cycler.Finish(summary)
	summary.Stats = metrics.Summarize(all)

	for _, w := range r.writers {
		if err := w.WriteSummary(summary); err != nil {
			output.Logger.Error("Failed to write summary", "error", err)
		}
	}
	return summary
}

// more reports whether iteration i of a repeat dimension should run.
func (r *Runner) more(i, count int, d time.Duration, start time.Time) bool {
	if d > 0 {
		return i == 0 || r.now().Sub(start) < d
	}
	return i < count
}

func (r *Runner) order() []metrics.Page {
	pages := append([]metrics.Page(nil), r.pages...)
	if r.opts.Shuffle {
		r.rng.Shuffle(len(pages), func(i, j int) { pages[i], pages[j] = pages[j], pages[i] })
	}
	return pages
}

func (r *Runner) write(res *model.PageResults) {
	for _, w := range r.writers {
		if err := w.Write(res); err != nil {
			output.Logger.Error("Failed to write result", "page", res.Page, "error", err)
		}
	}
}
