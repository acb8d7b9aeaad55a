package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricTimeoutErrorMessage(t *testing.T) {
	err := &MetricTimeoutError{Page: "http://localhost/a.html", Signal: "page load", Timeout: 60 * time.Second}
	assert.Equal(t, "timed out after 1m0s waiting for page load on http://localhost/a.html", err.Error())
}
