package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET /api/plans", http.MethodGet, 200, time.Millisecond)
	m.PaymentRecorded(true)
	m.InstallmentsGenerated(3)
	m.PaymentExported()
	m.ExportFailed()
	m.PublishFailed("payment.created")
	m.RateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil metrics handler status = %d", rec.Code)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()
	m.PaymentRecorded(false)
	m.PaymentRecorded(false)
	m.PaymentRecorded(true)
	m.InstallmentsGenerated(4)
	m.InstallmentsGenerated(0)
	m.PublishFailed("payment.created")

	body := scrape(t, m)
	for _, want := range []string{
		`famspese_payments_recorded_total{kind="linked"} 2`,
		`famspese_payments_recorded_total{kind="standalone"} 1`,
		`famspese_installments_generated_total 4`,
		`famspese_amqp_publish_failures_total{event="payment.created"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET /api/plans/{id}/summary", http.MethodGet, 200, 25*time.Millisecond)

	body := scrape(t, m)
	if !strings.Contains(body, `famspese_http_requests_total{method="GET",route="GET /api/plans/{id}/summary",status="200"} 1`) {
		t.Fatalf("request counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("go collector missing")
	}
}
