/*
PURPOSE:
  Defines the contract between the page cycler and its metric collectors.
  Collectors are polymorphic over a small capability set; the cycler only
  sees Start/Stop/AddResults plus the optional hooks below.

REQUIREMENTS:
  User-specified:
  - Variants: memory, IO, speed index, heap object statistics.
  - Per-navigation results are tagged with a "cold_"/"warm_" chart prefix.

  Implementation-discovered:
  - Some collectors need bounded-wait polling (Finisher).
  - IO only reports at end of run, against a baseline taken at run start.

ARCHITECTURE INTEGRATION:
  - Implemented by: this package
  - Called by: internal/engine (Cycler)
  - Tab is implemented by internal/browser.

ERROR HANDLING:
  - Collector failures are returned; the cycler logs them and drops the
    collector for that navigation. Collectors never panic on missing data.

RELATED FILES:
  - internal/engine/cycler.go
*/

package metrics

import "context"

// Results receives metric values.
type Results interface {
	Add(name, unit string, value float64, chart string)
}

// Page identifies the page being measured.
type Page struct {
	URL  string
	Name string
}

// Tab is the browser surface collectors may use.
type Tab interface {
	// Evaluate runs a JS function or expression in the page and returns its
	// JSON value (float64, bool, string, map[string]any, []any or nil).
	Evaluate(ctx context.Context, expr string) (any, error)
	InjectOnCommitScript(ctx context.Context, source string) error
	PerformanceMetrics(ctx context.Context) (map[string]float64, error)
	CollectGarbage(ctx context.Context) error
}

// Collector measures something over one navigation.
type Collector interface {
	Name() string
	Start(ctx context.Context, page Page, tab Tab) error
	Stop(ctx context.Context, page Page, tab Tab) error
	AddResults(tab Tab, results Results, chartPrefix string) error
}

// SummaryReporter reports once, after every navigation has finished.
type SummaryReporter interface {
	AddSummaryResults(results Results) error
}

// Finisher is implemented by collectors that complete asynchronously after
// the page load and must be polled before Stop.
type Finisher interface {
	IsFinished(ctx context.Context, tab Tab) (bool, error)
}

// RunObserver is notified once before the first navigation.
type RunObserver interface {
	BeginRun(ctx context.Context) error
}
