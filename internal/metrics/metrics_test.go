package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := New("tapdetail")
	b := New("tapdetail")

	a.BookingConflicts.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.BookingConflicts))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.BookingConflicts))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New("tapdetail")
	m.BookingsCreated.WithLabelValues("booking").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tapdetail_bookings_created_total{source="booking"} 1`)
}
