package instrumentation

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

func TestObserveAPICall(t *testing.T) {
	m := NewMetrics()

	m.ObserveAPICall("events.list", nil, 20*time.Millisecond)
	m.ObserveAPICall("events.list", nil, 30*time.Millisecond)
	m.ObserveAPICall("meet.generate", errors.New("boom"), time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiCallsTotal.WithLabelValues("events.list", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiCallsTotal.WithLabelValues("meet.generate", StatusError)))
}

func TestObserveRefreshKeepsGaugeOnError(t *testing.T) {
	m := NewMetrics()

	m.ObserveRefresh("manual", nil, 12)
	m.ObserveRefresh("cron", errors.New("down"), 0)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.cachedEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("cron", StatusError)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPICall("x", nil, 0)
		m.ObserveGrid("week")
		m.ObserveRefresh("manual", nil, 1)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveGrid("month")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `classcal_grid_renders_total{mode="month"} 1`)
}
