/*
PURPOSE:
  Computes the cold/warm schedule for a page-cycler run.
  Decides, once per run, the per-page navigation count after which every
  further load of that page is forced cold.

REQUIREMENTS:
  User-specified:
  - Cold-load percentage in [0,100], optional.
  - Cold-load is incompatible with timed (duration-bounded) repeats.
  - Warm runs happen first; at least one full page-repeat group is warm.

  Implementation-discovered:
  - The start index must be a multiple of the page repeat count, otherwise
    page-set shuffling splits a page-repeat group across cold and warm.
  - "Discard first result" is derived here, not mutated later on settings.

ARCHITECTURE INTEGRATION:
  - Used by: internal/config (validation), internal/engine (Cycler)
  - Depends on: nothing

ERROR HANDLING:
  - Returns *ConfigurationError for every invalid combination. Fatal at setup.

IMPLEMENTATION RULES:
  - Pure integer arithmetic. Truncation must bias toward fewer cold runs.

USAGE:
  sched, err := schedule.New(schedule.RunConfiguration{PageSetRepeat: 10, PageRepeat: 1, ColdLoadPercent: &pct})

RELATED FILES:
  - internal/schedule/classifier.go
  - internal/schedule/visits.go
*/

package schedule

import "fmt"

// ConfigurationError reports a run configuration that cannot be scheduled.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// RunConfiguration is the subset of run options the schedule depends on.
type RunConfiguration struct {
	PageSetRepeat   int
	PageRepeat      int
	ColdLoadPercent *int
	// TimedRepeat is true when either repeat dimension is bounded by time.
	TimedRepeat bool
	// DiscardFirstResult is an explicit caller override; nil means derive it.
	DiscardFirstResult *bool
}

// Schedule is derived once from a RunConfiguration and never changes.
type Schedule struct {
	ColdRunStartIndex  int
	DiscardFirstResult bool
}

// New validates cfg and derives the run schedule.
func New(cfg RunConfiguration) (Schedule, error) {
	start, err := ColdRunStartIndex(cfg)
	if err != nil {
		return Schedule{}, err
	}

	discard := cfg.ColdLoadPercent == nil
	if cfg.DiscardFirstResult != nil {
		discard = *cfg.DiscardFirstResult
	}

	return Schedule{
		ColdRunStartIndex:  start,
		DiscardFirstResult: discard,
	}, nil
}

// ColdRunStartIndex returns the per-page visit count at and beyond which
// navigations of that page are forced cold.
func ColdRunStartIndex(cfg RunConfiguration) (int, error) {
	if cfg.PageSetRepeat < 1 {
		return 0, &ConfigurationError{Field: "pageset_repeat", Reason: fmt.Sprintf("must be >= 1, got %d", cfg.PageSetRepeat)}
	}
	if cfg.PageRepeat < 1 {
		return 0, &ConfigurationError{Field: "page_repeat", Reason: fmt.Sprintf("must be >= 1, got %d", cfg.PageRepeat)}
	}

	if cfg.ColdLoadPercent == nil {
		return cfg.PageSetRepeat * cfg.PageRepeat, nil
	}

	pct := *cfg.ColdLoadPercent
	if cfg.TimedRepeat {
		return 0, &ConfigurationError{Field: "cold_load_percent", Reason: "incompatible with timed repeat"}
	}
	if pct < 0 || pct > 100 {
		return 0, &ConfigurationError{Field: "cold_load_percent", Reason: fmt.Sprintf("must be in the range [0-100], got %d", pct)}
	}

	// One page-set pass is always warm; the rest is split by percentage.
	warmPageSetRuns := (cfg.PageSetRepeat - 1) * (100 - pct) / 100
	warmRuns := warmPageSetRuns * cfg.PageRepeat
	return warmRuns + cfg.PageRepeat, nil
}
