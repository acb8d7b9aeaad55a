package metrics

import (
	"context"
	"fmt"
)

const (
	speedIndexDoneExpr   = `() => window.__si_done === true`
	speedIndexTimingExpr = `() => window.__si || null`
	speedIndexResetExpr  = `() => { delete window.__si_done; delete window.__si; return true }`
)

// SpeedIndexMetric approximates speed index from paint timings.
//
// Visual progress is taken to be 0 before first contentful paint, linear up
// to largest contentful paint and complete after it, so the integral of
// (1 - progress) is FCP + (LCP - FCP) / 2.
type SpeedIndexMetric struct {
	script string

	timing  map[string]float64
	stopped bool
}

// NewSpeedIndexMetric uses script as the on-commit paint observer payload.
func NewSpeedIndexMetric(script string) *SpeedIndexMetric {
	return &SpeedIndexMetric{script: script}
}

func (m *SpeedIndexMetric) Name() string { return "speed_index" }

// Start installs the observer; it must run before the navigation begins.
// The outgoing document's completion flag is cleared so IsFinished cannot
// report the previous page.
func (m *SpeedIndexMetric) Start(ctx context.Context, page Page, tab Tab) error {
	m.timing = nil
	m.stopped = false
	// Best effort: there may be no outgoing document to clear.
	_, _ = tab.Evaluate(ctx, speedIndexResetExpr)
	return tab.InjectOnCommitScript(ctx, m.script)
}

func (m *SpeedIndexMetric) IsFinished(ctx context.Context, tab Tab) (bool, error) {
	v, err := tab.Evaluate(ctx, speedIndexDoneExpr)
	if err != nil {
		return false, err
	}
	done, _ := v.(bool)
	return done, nil
}

func (m *SpeedIndexMetric) Stop(ctx context.Context, page Page, tab Tab) error {
	v, err := tab.Evaluate(ctx, speedIndexTimingExpr)
	if err != nil {
		return fmt.Errorf("read paint timings for %s: %w", page.URL, err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("no paint timings recorded for %s", page.URL)
	}
	m.timing = make(map[string]float64, len(raw))
	for k, x := range raw {
		if f, ok := x.(float64); ok {
			m.timing[k] = f
		}
	}
	m.stopped = true
	return nil
}

func (m *SpeedIndexMetric) AddResults(tab Tab, results Results, chartPrefix string) error {
	if !m.stopped {
		return fmt.Errorf("speed index not stopped")
	}
	si := SpeedIndex(m.timing["fcp"], m.timing["lcp"], m.timing["load"])
	results.Add("speed_index", "ms", si, chartPrefix+"speed_index")
	return nil
}

// SpeedIndex computes the approximation from paint timings in ms. A page
// that never painted contentfully is scored by its load time.
func SpeedIndex(fcp, lcp, load float64) float64 {
	if fcp <= 0 {
		return load
	}
	if lcp < fcp {
		lcp = fcp
	}
	return fcp + (lcp-fcp)/2
}
