package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/page-cycler/internal/metrics"
	"github.com/daryltucker/page-cycler/internal/model"
	"github.com/daryltucker/page-cycler/internal/schedule"
	"github.com/daryltucker/page-cycler/internal/wait"
)

type eventLog struct {
	events []string
}

func (l *eventLog) add(e string) { l.events = append(l.events, e) }

type fakeTab struct {
	log      *eventLog
	navs     int
	loadTime float64
	// timeouts holds the measured navigation numbers whose load never fires.
	timeouts map[int]bool
	urls     []string
}

func (f *fakeTab) Evaluate(ctx context.Context, expr string) (any, error) {
	if expr == loadTimeExpr {
		return f.loadTime, nil
	}
	return nil, errors.New("unknown expression")
}

func (f *fakeTab) InjectOnCommitScript(ctx context.Context, source string) error {
	f.log.add("inject")
	return nil
}

func (f *fakeTab) PerformanceMetrics(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (f *fakeTab) CollectGarbage(ctx context.Context) error { return nil }

func (f *fakeTab) Navigate(ctx context.Context, url string) error {
	f.log.add("navigate")
	f.urls = append(f.urls, url)
	f.navs++
	return nil
}

func (f *fakeTab) ClearCache(ctx context.Context) error {
	f.log.add("clear")
	return nil
}

func (f *fakeTab) WaitForExpression(ctx context.Context, expr string, timeout time.Duration) error {
	if expr == loadSignalExpr && f.timeouts[f.navs-1] {
		return wait.ErrTimeout
	}
	return nil
}

type fakeCollector struct {
	name     string
	log      *eventLog
	startErr error
	running  bool
}

func (c *fakeCollector) Name() string { return c.name }

func (c *fakeCollector) Start(ctx context.Context, page metrics.Page, tab metrics.Tab) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.log.add("start " + c.name)
	c.running = true
	return nil
}

func (c *fakeCollector) Stop(ctx context.Context, page metrics.Page, tab metrics.Tab) error {
	c.log.add("stop " + c.name)
	c.running = false
	return nil
}

func (c *fakeCollector) AddResults(tab metrics.Tab, results metrics.Results, chartPrefix string) error {
	c.log.add("add " + c.name)
	results.Add(c.name, "count", 1, chartPrefix+c.name)
	return nil
}

type finishingCollector struct {
	*fakeCollector
	finished bool
}

func (c *finishingCollector) IsFinished(ctx context.Context, tab metrics.Tab) (bool, error) {
	return c.finished, nil
}

type summaryCollector struct {
	began    int
	reported int
}

func (s *summaryCollector) BeginRun(ctx context.Context) error {
	s.began++
	return nil
}

func (s *summaryCollector) AddSummaryResults(results metrics.Results) error {
	s.reported++
	results.Add("total", "count", 42, "summary")
	return nil
}

func intPtr(v int) *int { return &v }

func mustSchedule(t *testing.T, cfg schedule.RunConfiguration) schedule.Schedule {
	t.Helper()
	s, err := schedule.New(cfg)
	require.NoError(t, err)
	return s
}

func testOptions() CyclerOptions {
	return CyclerOptions{
		RunID:        "run",
		Payload:      "payload",
		LoadTimeout:  50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}
}

var pageA = metrics.Page{URL: "http://127.0.0.1/a.html", Name: "a"}

func TestCycleLifecycleOrder(t *testing.T) {
	log := &eventLog{}
	tab := &fakeTab{log: log, loadTime: 123.7}
	si := &finishingCollector{fakeCollector: &fakeCollector{name: "si", log: log}, finished: true}
	mem := &fakeCollector{name: "mem", log: log}

	opts := testOptions()
	opts.PreNavigate = []metrics.Collector{si}
	opts.PostNavigate = []metrics.Collector{mem}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 2, PageRepeat: 1}), opts)

	res, err := c.Cycle(context.Background(), tab, pageA)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, c.Phase())

	assert.Equal(t, []string{
		"inject", "start si", "navigate", "start mem",
		"stop mem", "add mem", "stop si", "add si",
	}, log.events)

	assert.True(t, res.Cold)
	assert.False(t, res.ClearedCache)
	assert.Equal(t, "cold_", res.ChartPrefix)
	assert.Equal(t, "a", res.PageName)
	require.Len(t, res.Values, 3)
	assert.Equal(t, model.Value{Name: "page_load_time", Unit: "ms", Value: 123, Chart: "cold_times"}, res.Values[0])
	assert.Equal(t, "cold_mem", res.Values[1].Chart)
	assert.Equal(t, 1, c.Classifier().Visits(pageA.URL))
}

func TestCycleClearsCacheOnlyWhenScheduled(t *testing.T) {
	log := &eventLog{}
	tab := &fakeTab{log: log}
	// Three page set iterations at 50% cold: the cold run starts at index 2.
	s := mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 3, PageRepeat: 1, ColdLoadPercent: intPtr(50)})
	require.Equal(t, 2, s.ColdRunStartIndex)
	c := NewCycler(s, testOptions())

	var got []*model.PageResults
	for i := 0; i < 3; i++ {
		res, err := c.Cycle(context.Background(), tab, pageA)
		require.NoError(t, err)
		got = append(got, res)
	}

	assert.Equal(t, []bool{false, false, true}, []bool{got[0].ClearedCache, got[1].ClearedCache, got[2].ClearedCache})
	assert.Equal(t, []bool{true, false, true}, []bool{got[0].Cold, got[1].Cold, got[2].Cold})
	assert.Equal(t, "warm_times", got[1].Values[0].Chart)
	assert.Equal(t, 1, countEvents(log, "clear"))
}

func TestCycleCollectorWindowsNeverOverlap(t *testing.T) {
	log := &eventLog{}
	tab := &fakeTab{log: log, timeouts: map[int]bool{1: true}}
	si := &finishingCollector{fakeCollector: &fakeCollector{name: "si", log: log}, finished: true}
	mem := &fakeCollector{name: "mem", log: log}

	opts := testOptions()
	opts.PreNavigate = []metrics.Collector{si}
	opts.PostNavigate = []metrics.Collector{mem}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 4, PageRepeat: 1}), opts)

	for i := 0; i < 4; i++ {
		_, _ = c.Cycle(context.Background(), tab, pageA)
		assert.False(t, si.running, "speed index still running after navigation %d", i)
		assert.False(t, mem.running, "memory still running after navigation %d", i)
	}

	running := map[string]bool{}
	for _, e := range log.events {
		switch e {
		case "start si", "start mem":
			name := e[len("start "):]
			assert.False(t, running[name], "%s started twice", name)
			running[name] = true
		case "stop si", "stop mem":
			running[e[len("stop "):]] = false
		}
	}
}

func TestCycleTimeoutKeepsScheduleAligned(t *testing.T) {
	log := &eventLog{}
	tab := &fakeTab{log: log, timeouts: map[int]bool{0: true}}
	mem := &fakeCollector{name: "mem", log: log}

	opts := testOptions()
	opts.PostNavigate = []metrics.Collector{mem}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 3, PageRepeat: 1, ColdLoadPercent: intPtr(50)}), opts)

	res, err := c.Cycle(context.Background(), tab, pageA)
	var timeout *MetricTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "page load", timeout.Signal)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Empty(t, res.Values)
	assert.Equal(t, 0, c.Classifier().Visits(pageA.URL))
	assert.Equal(t, []string{"inject", "navigate", "start mem", "stop mem"}, log.events)

	// The next navigation is still the page's first counted visit.
	res, err = c.Cycle(context.Background(), tab, pageA)
	require.NoError(t, err)
	assert.True(t, res.Cold)
	assert.False(t, res.ClearedCache)

	res, err = c.Cycle(context.Background(), tab, pageA)
	require.NoError(t, err)
	assert.False(t, res.Cold)
}

func TestCycleSpeedIndexTimeout(t *testing.T) {
	log := &eventLog{}
	tab := &fakeTab{log: log, loadTime: 10}
	si := &finishingCollector{fakeCollector: &fakeCollector{name: "si", log: log}}
	mem := &fakeCollector{name: "mem", log: log}

	opts := testOptions()
	opts.PreNavigate = []metrics.Collector{si}
	opts.PostNavigate = []metrics.Collector{mem}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 2, PageRepeat: 1}), opts)

	res, err := c.Cycle(context.Background(), tab, pageA)
	var timeout *MetricTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "si", timeout.Signal)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.False(t, si.running)

	// The load itself completed, so it counts and keeps its other results.
	assert.Equal(t, 1, c.Classifier().Visits(pageA.URL))
	require.Len(t, res.Values, 2)
	assert.Equal(t, "page_load_time", res.Values[0].Name)
	assert.Equal(t, "mem", res.Values[1].Name)
}

func TestCycleCollectorStartFailure(t *testing.T) {
	log := &eventLog{}
	tab := &fakeTab{log: log}
	broken := &fakeCollector{name: "broken", log: log, startErr: errors.New("no procfs")}
	mem := &fakeCollector{name: "mem", log: log}

	opts := testOptions()
	opts.PostNavigate = []metrics.Collector{broken, mem}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 1, PageRepeat: 1}), opts)

	res, err := c.Cycle(context.Background(), tab, pageA)
	require.NoError(t, err)
	assert.NotContains(t, log.events, "stop broken")
	require.Len(t, res.Values, 2)
	assert.Equal(t, "mem", res.Values[1].Name)
}

func TestCycleRunHooks(t *testing.T) {
	sc := &summaryCollector{}
	opts := testOptions()
	opts.SummaryOnly = []metrics.SummaryReporter{sc}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 1, PageRepeat: 1}), opts)

	c.Begin(context.Background())
	summary := &model.SummaryResults{}
	c.Finish(summary)

	assert.Equal(t, 1, sc.began)
	assert.Equal(t, 1, sc.reported)
	assert.Equal(t, []model.Value{{Name: "total", Unit: "count", Value: 42, Chart: "summary"}}, summary.Values)
}

func TestPhaseTransitions(t *testing.T) {
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 1, PageRepeat: 1}), testOptions())

	assert.Error(t, c.advance(PhaseNavigated))
	assert.Equal(t, PhaseIdle, c.Phase())

	for _, p := range []Phase{PhasePreNavigate, PhaseNavigated, PhaseLoadComplete, PhaseRecorded, PhaseIdle} {
		require.NoError(t, c.advance(p))
	}
	assert.Equal(t, "load-complete", PhaseLoadComplete.String())
}

// staleDocTab keeps the outgoing document live after Navigate returns; the
// new document only replaces it once a load poll has seen the old one.
type staleDocTab struct {
	*fakeTab
	loads   []float64
	live    map[string]float64
	pending map[string]float64
}

func (f *staleDocTab) Navigate(ctx context.Context, url string) error {
	if err := f.fakeTab.Navigate(ctx, url); err != nil {
		return err
	}
	f.pending = map[string]float64{"load": f.loads[f.navs-1]}
	return nil
}

func (f *staleDocTab) Evaluate(ctx context.Context, expr string) (any, error) {
	switch expr {
	case resetLoadSignalExpr:
		delete(f.live, "load")
		return true, nil
	case loadTimeExpr:
		return f.live["load"], nil
	}
	return nil, errors.New("unknown expression")
}

func (f *staleDocTab) WaitForExpression(ctx context.Context, expr string, timeout time.Duration) error {
	if _, ok := f.live["load"]; ok {
		return nil
	}
	f.live, f.pending = f.pending, nil
	return nil
}

func TestCycleIgnoresOutgoingDocumentSignal(t *testing.T) {
	tab := &staleDocTab{
		fakeTab: &fakeTab{log: &eventLog{}},
		loads:   []float64{111, 222, 333},
		live:    map[string]float64{},
	}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 3, PageRepeat: 1}), testOptions())

	var got []model.Value
	for i := 0; i < 3; i++ {
		res, err := c.Cycle(context.Background(), tab, pageA)
		require.NoError(t, err)
		require.NotEmpty(t, res.Values)
		got = append(got, res.Values[0])
	}

	assert.Equal(t, []model.Value{
		{Name: "page_load_time", Unit: "ms", Value: 111, Chart: "cold_times"},
		{Name: "page_load_time", Unit: "ms", Value: 222, Chart: "warm_times"},
		{Name: "page_load_time", Unit: "ms", Value: 333, Chart: "warm_times"},
	}, got)
}

// hangingTab never commits a navigation.
type hangingTab struct {
	*fakeTab
}

func (f *hangingTab) Navigate(ctx context.Context, url string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCycleNavigationTimeout(t *testing.T) {
	log := &eventLog{}
	tab := &hangingTab{fakeTab: &fakeTab{log: log}}
	mem := &fakeCollector{name: "mem", log: log}
	si := &finishingCollector{fakeCollector: &fakeCollector{name: "si", log: log}, finished: true}

	opts := testOptions()
	opts.PreNavigate = []metrics.Collector{si}
	opts.PostNavigate = []metrics.Collector{mem}
	c := NewCycler(mustSchedule(t, schedule.RunConfiguration{PageSetRepeat: 2, PageRepeat: 1}), opts)

	_, err := c.Cycle(context.Background(), tab, pageA)
	var timeout *MetricTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "navigation", timeout.Signal)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.False(t, si.running)
	assert.NotContains(t, log.events, "start mem")
	assert.Equal(t, 0, c.Classifier().Visits(pageA.URL))
}

func countEvents(l *eventLog, e string) int {
	n := 0
	for _, x := range l.events {
		if x == e {
			n++
		}
	}
	return n
}
