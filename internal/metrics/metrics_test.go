package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordTransaction_CountsByOperationAndOutcome はラベル別にトランザクションが集計されることを検証する。
func TestRecordTransaction_CountsByOperationAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTransaction("article.create", "committed", 10*time.Millisecond)
	c.RecordTransaction("article.create", "committed", 20*time.Millisecond)
	c.RecordTransaction("article.create", "rolled_back", 5*time.Millisecond)

	if got := testutil.ToFloat64(c.transactions.WithLabelValues("article.create", "committed")); got != 2 {
		t.Errorf("committed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.transactions.WithLabelValues("article.create", "rolled_back")); got != 1 {
		t.Errorf("rolled_back = %v, want 1", got)
	}

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range metrics {
		if mf.GetName() == "conduit_transaction_duration_seconds" {
			found = true
			if n := mf.GetMetric()[0].GetHistogram().GetSampleCount(); n != 3 {
				t.Errorf("sample count = %d, want 3", n)
			}
		}
	}
	if !found {
		t.Error("conduit_transaction_duration_seconds metric not found")
	}
}

// TestRecordTagsCollected_AddsCount は回収タグ数が加算されることを検証する。
func TestRecordTagsCollected_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTagsCollected(3)
	c.RecordTagsCollected(2)

	if got := testutil.ToFloat64(c.tagsCollected); got != 5 {
		t.Errorf("tags_collected_total = %v, want 5", got)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("status 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("404")); got != 1 {
		t.Errorf("status 404 = %v, want 1", got)
	}
}

// TestRecordSessionsPurged_AddsCount は削除セッション数が加算されることを検証する。
func TestRecordSessionsPurged_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsPurged(4)

	if got := testutil.ToFloat64(c.sessionsPurged); got != 4 {
		t.Errorf("sessions_purged_total = %v, want 4", got)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTransaction("tag.list", "committed", time.Millisecond)
	c.RecordTagsCollected(1)
	c.RecordHTTPStatus(200)
	c.RecordSessionsPurged(1)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		`conduit_transactions_total{operation="tag.list",outcome="committed"} 1`,
		"conduit_transaction_duration_seconds",
		"conduit_tags_collected_total",
		"conduit_http_status_total",
		"conduit_sessions_purged_total",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	c1 := NewCollector(prometheus.NewRegistry())
	c2 := NewCollector(prometheus.NewRegistry())

	c1.RecordTagsCollected(1)
	c2.RecordTagsCollected(2)

	if got := testutil.ToFloat64(c1.tagsCollected); got != 1 {
		t.Errorf("c1 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c2.tagsCollected); got != 2 {
		t.Errorf("c2 = %v, want 2", got)
	}
}
