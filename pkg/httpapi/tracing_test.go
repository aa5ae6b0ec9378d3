package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestTracing(t *testing.T) {
	var extracted, reached int
	r := chi.NewRouter()
	r.Use(Tracing(
		WithTracerName("formplug-test"),
		WithTraceFilter(func(r *http.Request) bool { return r.URL.Path != "/skip" }),
		WithAttributeExtractor(func(r *http.Request) []attribute.KeyValue {
			extracted++
			return []attribute.KeyValue{attribute.String("test", "yes")}
		}),
	))
	handler := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			reached++
			// Should not panic without a configured provider.
			_ = trace.SpanContextFromContext(r.Context())
			w.WriteHeader(status)
		}
	}
	r.Get("/ok", handler(http.StatusOK))
	r.Get("/fail", handler(http.StatusBadGateway))
	r.Get("/skip", handler(http.StatusNoContent))

	tests := []struct {
		path   string
		status int
	}{
		{"/ok", http.StatusOK},
		{"/fail", http.StatusBadGateway},
		{"/skip", http.StatusNoContent},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, rec.Code, tt.path)
	}

	assert.Equal(t, 3, reached)
	assert.Equal(t, 2, extracted)
}
