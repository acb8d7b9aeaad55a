package metrics

import (
	"context"
	"fmt"
)

// MemoryMetric samples browser resident memory around each navigation.
type MemoryMetric struct {
	sampler ProcessSampler

	start, end ProcessSample
	stopped    bool

	peak    uint64
	last    ProcessSample
	samples int
}

// NewMemoryMetric returns a memory collector backed by sampler.
func NewMemoryMetric(sampler ProcessSampler) *MemoryMetric {
	return &MemoryMetric{sampler: sampler}
}

func (m *MemoryMetric) Name() string { return "memory" }

func (m *MemoryMetric) Start(ctx context.Context, page Page, tab Tab) error {
	s, err := m.sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("memory sample before %s: %w", page.URL, err)
	}
	m.start = s
	m.stopped = false
	m.observe(s)
	return nil
}

func (m *MemoryMetric) Stop(ctx context.Context, page Page, tab Tab) error {
	s, err := m.sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("memory sample after %s: %w", page.URL, err)
	}
	m.end = s
	m.stopped = true
	m.observe(s)
	return nil
}

func (m *MemoryMetric) AddResults(tab Tab, results Results, chartPrefix string) error {
	if !m.stopped {
		return fmt.Errorf("memory metric not stopped")
	}
	chart := chartPrefix + "memory"
	results.Add("resident_set_size", "bytes", float64(m.end.ResidentBytes), chart)
	results.Add("resident_set_size_delta", "bytes", float64(m.end.ResidentBytes)-float64(m.start.ResidentBytes), chart)
	results.Add("processes", "count", float64(m.end.Processes), chart)
	return nil
}

func (m *MemoryMetric) AddSummaryResults(results Results) error {
	if m.samples == 0 {
		return nil
	}
	results.Add("peak_resident_set_size", "bytes", float64(m.peak), "memory")
	results.Add("final_resident_set_size", "bytes", float64(m.last.ResidentBytes), "memory")
	return nil
}

func (m *MemoryMetric) observe(s ProcessSample) {
	m.samples++
	m.last = s
	if s.ResidentBytes > m.peak {
		m.peak = s.ResidentBytes
	}
}
