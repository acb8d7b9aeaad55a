/*
PURPOSE:
  Exports run results in the Prometheus text exposition format so a
  node_exporter textfile collector can pick them up.

REQUIREMENTS:
  Implementation-discovered:
  - Counters for navigations by cold/warm class and for failures.
  - One gauge per summary statistic.
  - A private registry so repeated runs in one process never collide.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner, as a ResultWriter)

ERROR HANDLING:
  - WriteSummary returns the textfile write error.

USAGE:
  w := output.NewPromWriter("page_cycler.prom")
*/

package output

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/daryltucker/page-cycler/internal/model"
)

// PromWriter accumulates run metrics and writes them to a textfile.
type PromWriter struct {
	path        string
	registry    *prometheus.Registry
	navigations *prometheus.CounterVec
	failures    prometheus.Counter
	values      *prometheus.GaugeVec
	stats       *prometheus.GaugeVec
}

// NewPromWriter creates a writer targeting path.
func NewPromWriter(path string) *PromWriter {
	w := &PromWriter{
		path:     path,
		registry: prometheus.NewRegistry(),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "page_cycler_navigations_total",
			Help: "Navigations performed, by cache class.",
		}, []string{"class"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "page_cycler_navigation_failures_total",
			Help: "Navigations that failed to complete.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "page_cycler_summary_value",
			Help: "End of run values reported by summary collectors.",
		}, []string{"chart", "name", "unit"}),
		stats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "page_cycler_metric",
			Help: "Aggregated per-navigation metric statistics.",
		}, []string{"chart", "name", "unit", "stat"}),
	}
	w.registry.MustRegister(w.navigations, w.failures, w.values, w.stats)
	return w
}

// Write counts a navigation.
func (w *PromWriter) Write(r *model.PageResults) error {
	class := "warm"
	if r.Cold {
		class = "cold"
	}
	w.navigations.WithLabelValues(class).Inc()
	if r.Failed() {
		w.failures.Inc()
	}
	return nil
}

// WriteSummary sets the summary gauges and writes the textfile.
func (w *PromWriter) WriteSummary(s *model.SummaryResults) error {
	for _, v := range s.Values {
		w.values.WithLabelValues(v.Chart, v.Name, v.Unit).Set(v.Value)
	}
	for _, st := range s.Stats {
		for stat, value := range map[string]float64{
			"mean":   st.Mean,
			"median": st.Median,
			"stddev": st.StdDev,
			"min":    st.Min,
			"max":    st.Max,
			"p90":    st.P90,
			"count":  float64(st.Count),
		} {
			w.stats.WithLabelValues(st.Chart, st.Name, st.Unit, stat).Set(value)
		}
	}
	return prometheus.WriteToTextfile(w.path, w.registry)
}
