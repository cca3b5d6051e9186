package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"image-proxy/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	h := &Handlers{}
	handler := h.MetricsHandler()
	if handler == nil {
		t.Fatal("Expected MetricsHandler to return a non-nil handler")
	}

	metrics.VerdictsTotal.WithLabelValues("compress")

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{"go_goroutines", "image_proxy_verdicts_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}
