/*
PURPOSE:
  Writes benchmark results to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV, one row per metric value.
  - Failed navigations still get a row carrying the error.

  Implementation-discovered:
  - Summary statistics go in the same file with an empty page column so a
    single file holds the whole run.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner, as a ResultWriter)
  - Consumes: internal/model.PageResults, internal/model.SummaryResults

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(result)
  w.Close()

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when PageResults changes.
*/

package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/daryltucker/page-cycler/internal/model"
)

var csvHeader = []string{
	"run_id", "index", "page", "pageset_iteration", "page_iteration",
	"cold", "cleared_cache", "discarded", "chart", "metric", "unit", "value",
	"timestamp", "error",
}

// CSVWriter handles writing results to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes every value of a navigation, or one error row.
// It is thread-safe.
func (cw *CSVWriter) Write(r *model.PageResults) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	row := func(v model.Value) []string {
		return []string{
			r.RunID,
			strconv.Itoa(r.Index),
			r.Page,
			strconv.Itoa(r.PageSetIteration),
			strconv.Itoa(r.PageIteration),
			strconv.FormatBool(r.Cold),
			strconv.FormatBool(r.ClearedCache),
			strconv.FormatBool(r.Discarded),
			v.Chart,
			v.Name,
			v.Unit,
			formatValue(v.Value),
			r.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			r.Error,
		}
	}

	if len(r.Values) == 0 {
		if err := cw.writer.Write(row(model.Value{})); err != nil {
			return err
		}
	}
	for _, v := range r.Values {
		if err := cw.writer.Write(row(v)); err != nil {
			return err
		}
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// WriteSummary appends summary values and statistics with an empty page.
func (cw *CSVWriter) WriteSummary(s *model.SummaryResults) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	ts := s.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	write := func(chart, name, unit string, value float64) error {
		return cw.writer.Write([]string{
			s.RunID, "", "", "", "", "", "", "", chart, name, unit, formatValue(value), ts, "",
		})
	}

	for _, v := range s.Values {
		if err := write(v.Chart, v.Name, v.Unit, v.Value); err != nil {
			return err
		}
	}
	for _, st := range s.Stats {
		for _, kv := range []struct {
			suffix string
			value  float64
		}{
			{"mean", st.Mean}, {"median", st.Median}, {"stddev", st.StdDev},
			{"min", st.Min}, {"max", st.Max}, {"p90", st.P90},
			{"count", float64(st.Count)},
		} {
			if err := write(st.Chart, st.Name+"_"+kv.suffix, st.Unit, kv.value); err != nil {
				return err
			}
		}
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
