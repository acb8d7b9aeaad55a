package engine

import (
	"fmt"
	"time"
)

// MetricTimeoutError means an in-page signal did not arrive within the
// bounded wait. It fails one navigation, never the run.
type MetricTimeoutError struct {
	Page    string
	Signal  string
	Timeout time.Duration
}

func (e *MetricTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s on %s", e.Timeout, e.Signal, e.Page)
}
