package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	var m dto.Metric
	if err := o.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to read metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsMiddleware_RecordsRequest(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})

	handler := MetricsMiddleware(metrics)(inner)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items", nil))

	if got := counterValue(t, metrics.RequestsTotal.WithLabelValues("GET", "ok")); got != 1 {
		t.Errorf("requests_total{GET,ok} = %v, want 1", got)
	}
	if got := counterValue(t, metrics.ResponseBytes); got != 5 {
		t.Errorf("response_bytes_total = %v, want 5", got)
	}
	if got := histogramCount(t, metrics.RequestDuration.WithLabelValues("GET")); got != 1 {
		t.Errorf("request_duration_seconds{GET} count = %v, want 1", got)
	}
}

func TestMetricsMiddleware_ErrorLabel(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	handler := MetricsMiddleware(metrics)(inner)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if got := counterValue(t, metrics.RequestsTotal.WithLabelValues("GET", "error")); got != 1 {
		t.Errorf("requests_total{GET,error} = %v, want 1", got)
	}
}

func TestMetricsMiddleware_SkipsInternalEndpoints(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MetricsMiddleware(metrics)(inner)

	for _, path := range []string{"/metrics", "/health"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := counterValue(t, metrics.RequestsTotal.WithLabelValues("GET", "ok")); got != 0 {
		t.Errorf("requests_total{GET,ok} = %v, want 0 for internal endpoints", got)
	}
}

func TestStatusToLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "ok"},
		{202, "ok"},
		{301, "ok"},
		{400, "error"},
		{404, "error"},
		{500, "error"},
	}

	for _, tt := range tests {
		if got := statusToLabel(tt.code); got != tt.want {
			t.Errorf("statusToLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
