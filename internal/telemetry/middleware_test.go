package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/programs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	tests := []struct {
		path    string
		pattern string
		code    string
	}{
		{"/programs/ivbase", "/programs/{id}", "202"},
		{"/implicit", "/implicit", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			counter := APIRequestsTotal.WithLabelValues(http.MethodGet, tt.pattern, tt.code)
			before := testutil.ToFloat64(counter)

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Fatalf("expected one request recorded for %s, got %v", tt.pattern, got)
			}
		})
	}

	if got := testutil.ToFloat64(APIActiveConnections); got != 0 {
		t.Fatalf("active connections should return to zero, got %v", got)
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d / %d", rw.statusCode, rec.Code)
	}
}
