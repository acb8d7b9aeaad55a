package metrics

import (
	"context"
	"fmt"
)

// objectStatNames maps CDP Performance.getMetrics names to reported metrics.
var objectStatNames = []struct {
	cdp, name, unit string
}{
	{"JSHeapUsedSize", "js_heap_used_size", "bytes"},
	{"JSHeapTotalSize", "js_heap_total_size", "bytes"},
	{"Nodes", "dom_nodes", "count"},
	{"Documents", "documents", "count"},
	{"JSEventListeners", "js_event_listeners", "count"},
}

// ObjectStatsMetric reports JS heap and DOM object counts for a navigation.
type ObjectStatsMetric struct {
	values  map[string]float64
	stopped bool
}

func NewObjectStatsMetric() *ObjectStatsMetric {
	return &ObjectStatsMetric{}
}

func (m *ObjectStatsMetric) Name() string { return "object_stats" }

// Start collects garbage so the counts reflect what the page kept alive.
func (m *ObjectStatsMetric) Start(ctx context.Context, page Page, tab Tab) error {
	m.values = nil
	m.stopped = false
	return tab.CollectGarbage(ctx)
}

func (m *ObjectStatsMetric) Stop(ctx context.Context, page Page, tab Tab) error {
	values, err := tab.PerformanceMetrics(ctx)
	if err != nil {
		return fmt.Errorf("read object stats for %s: %w", page.URL, err)
	}
	m.values = values
	m.stopped = true
	return nil
}

func (m *ObjectStatsMetric) AddResults(tab Tab, results Results, chartPrefix string) error {
	if !m.stopped {
		return fmt.Errorf("object stats not stopped")
	}
	chart := chartPrefix + "object_stats"
	for _, s := range objectStatNames {
		v, ok := m.values[s.cdp]
		if !ok {
			continue
		}
		results.Add(s.name, s.unit, v, chart)
	}
	return nil
}
