package trace

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "famspese/internal/log"
	"famspese/internal/metrics"
)

func newTestLogger(out io.Writer) *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelDebug, Format: applog.FormatText, Component: applog.ComponentHTTP, Output: out})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(func(*http.Request) string { return "198.51.100.4" }, newTestLogger(&buf), nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	logs := buf.String()
	if !strings.Contains(logs, "HTTP request completed") || !strings.Contains(logs, "status_code=418") {
		t.Errorf("logs = %s", logs)
	}
	if !strings.Contains(logs, "198.51.100.4") {
		t.Errorf("client ip missing from logs: %s", logs)
	}
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(nil, newTestLogger(io.Discard), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestMiddlewareObservesMatchedRoute(t *testing.T) {
	reg := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/plans/{id}", func(w http.ResponseWriter, r *http.Request) {})
	h := NewMiddleware(nil, newTestLogger(io.Discard), reg).Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/plans/42", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `route="GET /api/plans/{id}"`) {
		t.Errorf("matched route not recorded:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Errorf("unmatched route not recorded:\n%s", body)
	}
}
