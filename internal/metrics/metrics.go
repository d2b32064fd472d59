// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// パイプライン・タグ回収・HTTPミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	RecordTransaction(operation, outcome string, duration time.Duration)
	RecordTagsCollected(count int)
	RecordHTTPStatus(statusCode int)
	RecordSessionsPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	transactions   *prometheus.CounterVec
	txDuration     *prometheus.HistogramVec
	tagsCollected  prometheus.Counter
	httpStatus     *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_transactions_total",
			Help: "操作と結果別のトランザクション数",
		}, []string{"operation", "outcome"}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conduit_transaction_duration_seconds",
			Help:    "操作別のトランザクション所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		tagsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conduit_tags_collected_total",
			Help: "未参照になり削除されたタグの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conduit_sessions_purged_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.transactions,
		c.txDuration,
		c.tagsCollected,
		c.httpStatus,
		c.sessionsPurged,
	)

	return c
}

// RecordTransaction はトランザクションの結果と所要時間を記録する。
func (c *Collector) RecordTransaction(operation, outcome string, duration time.Duration) {
	c.transactions.WithLabelValues(operation, outcome).Inc()
	c.txDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTagsCollected は回収したタグ数を記録する。
func (c *Collector) RecordTagsCollected(count int) {
	c.tagsCollected.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsPurged は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
