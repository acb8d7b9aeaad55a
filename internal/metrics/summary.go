package metrics

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/daryltucker/page-cycler/internal/model"
)

type seriesKey struct {
	chart, name, unit string
}

// Summarize aggregates per-navigation values into one SummaryStat per
// (chart, name, unit). Discarded and failed navigations are not counted.
func Summarize(results []*model.PageResults) []model.SummaryStat {
	series := make(map[seriesKey][]float64)
	for _, r := range results {
		if r.Discarded || r.Failed() {
			continue
		}
		for _, v := range r.Values {
			k := seriesKey{v.Chart, v.Name, v.Unit}
			series[k] = append(series[k], v.Value)
		}
	}

	out := make([]model.SummaryStat, 0, len(series))
	for k, data := range series {
		out = append(out, summarizeSeries(k, data))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chart != out[j].Chart {
			return out[i].Chart < out[j].Chart
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func summarizeSeries(k seriesKey, data stats.Float64Data) model.SummaryStat {
	s := model.SummaryStat{Chart: k.chart, Name: k.name, Unit: k.unit, Count: data.Len()}
	// Errors only occur on empty input, which never reaches here.
	s.Mean, _ = data.Mean()
	s.Median, _ = data.Median()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	s.P90, _ = data.Percentile(90)
	if data.Len() > 1 {
		s.StdDev, _ = data.StandardDeviationSample()
	}
	return s
}
