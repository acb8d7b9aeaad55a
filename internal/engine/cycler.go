/*
PURPOSE:
  Drives one page navigation through its measurement lifecycle:
  Idle -> PreNavigate -> Navigated -> LoadComplete -> Recorded -> Idle.

REQUIREMENTS:
  User-specified:
  - Clear the cache before navigations the schedule marks cold.
  - Start speed index before navigating; memory and object stats right
    after the navigation call returns.
  - Wait (bounded) for the in-page load signal, record page_load_time under
    "<cold_|warm_>times", then count the visit.
  - Stop and flush collectors with the same prefix; wait (bounded) for speed
    index before stopping it.
  - Summary hooks run once, after the last navigation.

  Implementation-discovered:
  - A timed-out navigation still stops every collector it started, so the
    next navigation's collection window never overlaps this one.
  - A timed-out load is not counted as a visit; the page keeps its place in
    the cold/warm schedule.
  - The outgoing document still answers evaluations until the new one
    commits, so its load signal is cleared before navigating.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/pageset.go (Runner)
  - Uses: internal/schedule, internal/metrics, internal/model, internal/output

ERROR HANDLING:
  - Returns *MetricTimeoutError for missing load / speed index signals.
  - Collector Start/Stop/AddResults failures are logged and that collector is
    left out of the navigation's results.

IMPLEMENTATION RULES:
  - Strictly one navigation in flight; no locking.
  - At most one pending wait per phase.

RELATED FILES:
  - internal/wait/wait.go
  - internal/metrics/collector.go
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/daryltucker/page-cycler/internal/metrics"
	"github.com/daryltucker/page-cycler/internal/model"
	"github.com/daryltucker/page-cycler/internal/output"
	"github.com/daryltucker/page-cycler/internal/schedule"
	"github.com/daryltucker/page-cycler/internal/wait"
)

const (
	loadSignalExpr = `() => !!window.__pc_load_time`
	loadTimeExpr   = `() => window.__pc_load_time`

	// Run in the outgoing document so its signal cannot be read as the next
	// page's load.
	resetLoadSignalExpr = `() => { delete window.__pc_load_time; return true }`
)

// Tab is the navigation control the cycler drives.
type Tab interface {
	metrics.Tab
	Navigate(ctx context.Context, url string) error
	ClearCache(ctx context.Context) error
	// WaitForExpression blocks until expr is truthy. It returns
	// wait.ErrTimeout if that does not happen within timeout.
	WaitForExpression(ctx context.Context, expr string, timeout time.Duration) error
}

// Phase is a step of the navigation lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreNavigate
	PhaseNavigated
	PhaseLoadComplete
	PhaseRecorded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreNavigate:
		return "pre-navigate"
	case PhaseNavigated:
		return "navigated"
	case PhaseLoadComplete:
		return "load-complete"
	case PhaseRecorded:
		return "recorded"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var nextPhase = map[Phase]Phase{
	PhaseIdle:         PhasePreNavigate,
	PhasePreNavigate:  PhaseNavigated,
	PhaseNavigated:    PhaseLoadComplete,
	PhaseLoadComplete: PhaseRecorded,
	PhaseRecorded:     PhaseIdle,
}

// CyclerOptions configures a Cycler.
type CyclerOptions struct {
	RunID        string
	Payload      string
	LoadTimeout  time.Duration
	PollInterval time.Duration
	// PreNavigate collectors must observe the navigation from its start.
	PreNavigate []metrics.Collector
	// PostNavigate collectors start once the navigation call has returned.
	PostNavigate []metrics.Collector
	// SummaryOnly collectors never take part in a navigation.
	SummaryOnly []metrics.SummaryReporter
}

// Cycler is the per-navigation lifecycle state machine.
type Cycler struct {
	opts       CyclerOptions
	classifier *schedule.Classifier
	phase      Phase
	count      int

	observers []metrics.RunObserver
	reporters []metrics.SummaryReporter
}

// session holds the collectors running for one navigation.
type session struct {
	page   metrics.Page
	prefix string
	pre    []metrics.Collector
	post   []metrics.Collector
}

// NewCycler builds a cycler for schedule s with fresh visit counters.
func NewCycler(s schedule.Schedule, opts CyclerOptions) *Cycler {
	c := &Cycler{
		opts:       opts,
		classifier: schedule.NewClassifier(s, schedule.NewVisitCounters()),
	}

	var all []any
	for _, col := range opts.PreNavigate {
		all = append(all, col)
	}
	for _, col := range opts.PostNavigate {
		all = append(all, col)
	}
	for _, r := range opts.SummaryOnly {
		all = append(all, r)
	}
	for _, x := range all {
		if o, ok := x.(metrics.RunObserver); ok {
			c.observers = append(c.observers, o)
		}
		if r, ok := x.(metrics.SummaryReporter); ok {
			c.reporters = append(c.reporters, r)
		}
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Cycler) Phase() Phase { return c.phase }

// Classifier exposes the cold/warm decisions of this run.
func (c *Cycler) Classifier() *schedule.Classifier { return c.classifier }

// Begin notifies run observers. Call once before the first navigation.
func (c *Cycler) Begin(ctx context.Context) {
	for _, o := range c.observers {
		if err := o.BeginRun(ctx); err != nil {
			output.Logger.Warn("Run observer failed", "error", err)
		}
	}
}

// Finish runs every summary hook once. Call after the last navigation.
func (c *Cycler) Finish(results metrics.Results) {
	for _, r := range c.reporters {
		if err := r.AddSummaryResults(results); err != nil {
			output.Logger.Warn("Summary results failed", "error", err)
		}
	}
}

// Cycle measures one navigation of page. The returned results are never nil;
// on error they hold whatever was recorded before the failure.
func (c *Cycler) Cycle(ctx context.Context, tab Tab, page metrics.Page) (*model.PageResults, error) {
	res := model.NewPageResults(c.opts.RunID, page.URL, c.count)
	res.PageName = page.Name
	c.count++
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	sess := &session{page: page}

	if err := c.advance(PhasePreNavigate); err != nil {
		return res, err
	}
	if err := tab.InjectOnCommitScript(ctx, c.opts.Payload); err != nil {
		c.abort(ctx, tab, sess)
		return res, fmt.Errorf("inject load payload: %w", err)
	}
	if c.classifier.ShouldForceColdCache(page.URL) {
		if err := tab.ClearCache(ctx); err != nil {
			c.abort(ctx, tab, sess)
			return res, fmt.Errorf("clear cache: %w", err)
		}
		res.ClearedCache = true
	}
	if _, err := tab.Evaluate(ctx, resetLoadSignalExpr); err != nil {
		output.Logger.Debug("Could not reset load signal", "page", page.URL, "error", err)
	}
	sess.pre = c.startAll(ctx, tab, page, c.opts.PreNavigate)

	if err := c.navigate(ctx, tab, page); err != nil {
		c.abort(ctx, tab, sess)
		return res, err
	}

	if err := c.advance(PhaseNavigated); err != nil {
		return res, err
	}
	sess.post = c.startAll(ctx, tab, page, c.opts.PostNavigate)

	if err := c.advance(PhaseLoadComplete); err != nil {
		return res, err
	}
	sess.prefix = c.classifier.ChartPrefix(page.URL)
	res.ChartPrefix = sess.prefix
	res.Cold = sess.prefix == schedule.ColdPrefix

	loadTime, err := c.waitForLoad(ctx, tab, page)
	if err != nil {
		c.abort(ctx, tab, sess)
		return res, err
	}
	res.Add("page_load_time", "ms", math.Trunc(loadTime), sess.prefix+"times")
	c.classifier.RecordVisit(page.URL)

	if err := c.advance(PhaseRecorded); err != nil {
		return res, err
	}
	err = c.stopAll(ctx, tab, sess, res)
	if advErr := c.advance(PhaseIdle); advErr != nil {
		return res, advErr
	}
	return res, err
}

func (c *Cycler) advance(to Phase) error {
	if nextPhase[c.phase] != to {
		return fmt.Errorf("invalid phase transition %s -> %s", c.phase, to)
	}
	output.Logger.Debug("Phase", "from", c.phase, "to", to)
	c.phase = to
	return nil
}

// navigate is bounded by the load timeout; the tab blocks until the new
// document commits.
func (c *Cycler) navigate(ctx context.Context, tab Tab, page metrics.Page) error {
	navCtx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
	defer cancel()

	err := tab.Navigate(navCtx, page.URL)
	if err != nil && ctx.Err() == nil && errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return &MetricTimeoutError{Page: page.URL, Signal: "navigation", Timeout: c.opts.LoadTimeout}
	}
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", page.URL, err)
	}
	return nil
}

func (c *Cycler) waitForLoad(ctx context.Context, tab Tab, page metrics.Page) (float64, error) {
	err := tab.WaitForExpression(ctx, loadSignalExpr, c.opts.LoadTimeout)
	if errors.Is(err, wait.ErrTimeout) {
		return 0, &MetricTimeoutError{Page: page.URL, Signal: "page load", Timeout: c.opts.LoadTimeout}
	}
	if err != nil {
		return 0, fmt.Errorf("wait for page load: %w", err)
	}

	v, err := tab.Evaluate(ctx, loadTimeExpr)
	if err != nil {
		return 0, fmt.Errorf("read load time: %w", err)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("load time is %T, want number", v)
	}
	return f, nil
}

func (c *Cycler) startAll(ctx context.Context, tab Tab, page metrics.Page, cols []metrics.Collector) []metrics.Collector {
	started := make([]metrics.Collector, 0, len(cols))
	for _, col := range cols {
		if err := col.Start(ctx, page, tab); err != nil {
			output.Logger.Warn("Collector failed to start", "collector", col.Name(), "page", page.URL, "error", err)
			continue
		}
		started = append(started, col)
	}
	return started
}

// stopAll closes the session: post-navigation collectors first, then the
// pre-navigation ones after their completion signal.
func (c *Cycler) stopAll(ctx context.Context, tab Tab, sess *session, res metrics.Results) error {
	for _, col := range sess.post {
		c.stopAndAdd(ctx, tab, sess, col, res)
	}

	var firstErr error
	for _, col := range sess.pre {
		if f, ok := col.(metrics.Finisher); ok {
			err := wait.For(ctx, c.opts.LoadTimeout, c.opts.PollInterval, func(ctx context.Context) (bool, error) {
				return f.IsFinished(ctx, tab)
			})
			if err != nil {
				if errors.Is(err, wait.ErrTimeout) {
					err = &MetricTimeoutError{Page: sess.page.URL, Signal: col.Name(), Timeout: c.opts.LoadTimeout}
				}
				c.stopOnly(ctx, tab, sess.page, col)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		c.stopAndAdd(ctx, tab, sess, col, res)
	}
	return firstErr
}

func (c *Cycler) stopAndAdd(ctx context.Context, tab Tab, sess *session, col metrics.Collector, res metrics.Results) {
	if err := col.Stop(ctx, sess.page, tab); err != nil {
		output.Logger.Warn("Collector failed to stop", "collector", col.Name(), "page", sess.page.URL, "error", err)
		return
	}
	if err := col.AddResults(tab, res, sess.prefix); err != nil {
		output.Logger.Warn("Collector results dropped", "collector", col.Name(), "page", sess.page.URL, "error", err)
	}
}

func (c *Cycler) stopOnly(ctx context.Context, tab Tab, page metrics.Page, col metrics.Collector) {
	if err := col.Stop(ctx, page, tab); err != nil {
		output.Logger.Warn("Collector failed to stop", "collector", col.Name(), "page", page.URL, "error", err)
	}
}

// abort stops whatever the session started and returns to idle.
func (c *Cycler) abort(ctx context.Context, tab Tab, sess *session) {
	for _, col := range sess.post {
		c.stopOnly(ctx, tab, sess.page, col)
	}
	for _, col := range sess.pre {
		c.stopOnly(ctx, tab, sess.page, col)
	}
	output.Logger.Debug("Phase", "from", c.phase, "to", PhaseIdle, "aborted", true)
	c.phase = PhaseIdle
}
