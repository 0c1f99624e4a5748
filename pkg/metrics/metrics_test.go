package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveImport(t *testing.T) {
	m := New()
	m.ObserveImport(OutcomeStored, 150*time.Millisecond, 12, 2, 3)
	m.ObserveImport(OutcomeDryRun, 10*time.Millisecond, 5, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues(OutcomeStored)))
	assert.Equal(t, 17.0, testutil.ToFloat64(m.projects))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.duplicates))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.discardedRows))
}

func TestObserveSummaryRun(t *testing.T) {
	m := New()
	m.ObserveSummaryRun(nil)
	m.ObserveSummaryRun(errors.New("boom"))
	m.ObserveSummaryRun(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.summaryRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.summaryRuns.WithLabelValues("error")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/projects", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `commissioning_http_requests_total{code="200",method="GET",route="/api/v1/projects"} 1`)
}
