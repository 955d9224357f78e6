package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/corvael/provision-api/internal/observability"
)

func TestMetrics_CountsRequests(t *testing.T) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/provision", nil))

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/provision", "201"))
	assert.Equal(t, float64(1), count)
}

func TestMetrics_DefaultsToOKWhenHandlerNeverWrites(t *testing.T) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	handler := Metrics(m)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	assert.Equal(t, float64(1), count)
}
