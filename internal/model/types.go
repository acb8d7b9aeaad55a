/*
PURPOSE:
  Defines the core data structures used throughout the page cycler.
  These models represent per-navigation results and end-of-run summaries.

REQUIREMENTS:
  User-specified:
  - Record every metric value with its unit and chart name.
  - Tag each navigation as cold or warm.
  - Keep failed navigations (with their error) instead of dropping them silently.

  Implementation-discovered:
  - Need JSON tags for JSON Lines output.
  - Results must satisfy metrics.Results so collectors can write into them.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/metrics, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.

USAGE:
  res := model.NewPageResults(runID, page, index)
  res.Add("page_load_time", "ms", 1234, "warm_times")

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"time"
)

// Value is a single metric sample.
type Value struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
	Chart string  `json:"chart"`
}

// PageResults represents the outcome of a single navigation.
type PageResults struct {
	RunID            string        `json:"run_id"`
	Page             string        `json:"page"`
	PageName         string        `json:"page_name,omitempty"`
	Index            int           `json:"index"`
	PageSetIteration int           `json:"pageset_iteration"`
	PageIteration    int           `json:"page_iteration"`
	Cold             bool          `json:"cold"`
	ClearedCache     bool          `json:"cleared_cache"`
	ChartPrefix      string        `json:"chart_prefix"`
	Timestamp        time.Time     `json:"timestamp"`
	Duration         time.Duration `json:"duration"`
	Values           []Value       `json:"values"`
	Discarded        bool          `json:"discarded,omitempty"` // First result of a page, kept for the record only
	Error            string        `json:"error,omitempty"`     // If the navigation failed
}

// NewPageResults starts a record for one navigation.
func NewPageResults(runID, page string, index int) *PageResults {
	return &PageResults{
		RunID:     runID,
		Page:      page,
		Index:     index,
		Timestamp: time.Now(),
	}
}

// Add implements metrics.Results.
func (r *PageResults) Add(name, unit string, value float64, chart string) {
	r.Values = append(r.Values, Value{Name: name, Unit: unit, Value: value, Chart: chart})
}

// Failed reports whether the navigation produced an error.
func (r *PageResults) Failed() bool {
	return r.Error != ""
}

// SummaryStat aggregates one metric over all counted navigations.
type SummaryStat struct {
	Chart  string  `json:"chart"`
	Name   string  `json:"name"`
	Unit   string  `json:"unit"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P90    float64 `json:"p90"`
}

// SummaryResults holds everything reported at the end of a run.
type SummaryResults struct {
	RunID       string        `json:"run_id"`
	Timestamp   time.Time     `json:"timestamp"`
	Navigations int           `json:"navigations"`
	Failures    int           `json:"failures"`
	Values      []Value       `json:"values"`
	Stats       []SummaryStat `json:"stats"`
}

// Add implements metrics.Results for end-of-run collector hooks.
func (s *SummaryResults) Add(name, unit string, value float64, chart string) {
	s.Values = append(s.Values, Value{Name: name, Unit: unit, Value: value, Chart: chart})
}
