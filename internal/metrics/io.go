package metrics

import (
	"context"
	"errors"
	"fmt"
)

// IOMetric reports disk IO done by the browser over the whole run.
type IOMetric struct {
	sampler  ProcessSampler
	baseline *ProcessSample
}

// NewIOMetric returns a summary-only IO collector backed by sampler.
func NewIOMetric(sampler ProcessSampler) *IOMetric {
	return &IOMetric{sampler: sampler}
}

func (m *IOMetric) Name() string { return "io" }

// BeginRun takes the baseline the summary is measured against.
func (m *IOMetric) BeginRun(ctx context.Context) error {
	s, err := m.sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("io baseline: %w", err)
	}
	m.baseline = &s
	return nil
}

func (m *IOMetric) AddSummaryResults(results Results) error {
	if m.baseline == nil {
		return errors.New("io metric has no baseline")
	}
	s, err := m.sampler.Sample(context.Background())
	if err != nil {
		return fmt.Errorf("io final sample: %w", err)
	}
	results.Add("read_bytes", "bytes", float64(delta(s.ReadBytes, m.baseline.ReadBytes)), "io")
	results.Add("write_bytes", "bytes", float64(delta(s.WriteBytes, m.baseline.WriteBytes)), "io")
	return nil
}

// delta tolerates counters going backwards when processes exit mid-run.
func delta(end, start uint64) uint64 {
	if end < start {
		return 0
	}
	return end - start
}
