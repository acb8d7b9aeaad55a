/*
PURPOSE:
  Writes benchmark results to a JSON Lines file (NDJSON).
  Optimized for machine parsing.

REQUIREMENTS:
  Implementation-discovered:
  - JSON Lines is better for streaming/logging than a single large array (append-friendly).
  - The summary is the last line, marked with "type": "summary".

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner, as a ResultWriter)
  - Consumes: internal/model.PageResults, internal/model.SummaryResults

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w, err := output.NewJSONWriter("results.jsonl")
  w.Write(result)
  w.Close()
*/

package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/daryltucker/page-cycler/internal/model"
)

// JSONWriter handles writing results to a JSON Lines file.
type JSONWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

type navigationLine struct {
	Type string `json:"type"`
	*model.PageResults
}

type summaryLine struct {
	Type string `json:"type"`
	*model.SummaryResults
}

// NewJSONWriter creates a new JSONWriter.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &JSONWriter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Write writes a single navigation as a JSON line.
func (jw *JSONWriter) Write(r *model.PageResults) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(navigationLine{Type: "navigation", PageResults: r})
}

// WriteSummary writes the run summary as a JSON line.
func (jw *JSONWriter) WriteSummary(s *model.SummaryResults) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(summaryLine{Type: "summary", SummaryResults: s})
}

// Close closes the underlying file.
func (jw *JSONWriter) Close() error {
	return jw.file.Close()
}
