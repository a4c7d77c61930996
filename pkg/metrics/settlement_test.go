package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSettlementMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.IncRun("settled")
	m.IncRun("settled")
	m.IncRun("validation_failed")
	m.ObserveTransfer("transferred", 120*time.Millisecond)
	m.ObserveTransfer("failed", 80*time.Millisecond)
	m.IncWebhook("account.updated", "processed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "settlement_runs_total", "outcome", "settled"); err != nil || got != 2 {
		t.Fatalf("expected settled=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "settlement_transfers_total", "status", "failed"); err != nil || got != 1 {
		t.Fatalf("expected failed transfers=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "settlement_webhook_events_total", "type", "account.updated"); err != nil || got != 1 {
		t.Fatalf("expected webhook count=1, got %f err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "settlement_transfer_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two transfer duration samples")
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSettlementMetrics(reg).IncRun("settled")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(string(body), `settlement_runs_total{outcome="settled"} 1`) {
		t.Fatalf("metrics output missing counter: %s", body)
	}
}
