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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordTransferCompleted()
	RecordTransferFailed(reason string)
	RecordTransferPartial()
	RecordTransferLatency(duration time.Duration)
	RecordDivergenceDetected()
	RecordAssetCreated()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	transferCompleted prometheus.Counter
	transferFailed    *prometheus.CounterVec
	transferPartial   prometheus.Counter
	transferLatency   prometheus.Histogram
	divergences       prometheus.Counter
	assetsCreated     prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transferCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetman_transfers_completed_total",
			Help: "完了した所有権移転の合計数",
		}),
		transferFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetman_transfers_failed_total",
			Help: "失敗した所有権移転の理由別合計数",
		}, []string{"reason"}),
		transferPartial: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetman_transfers_partial_total",
			Help: "部分失敗（所有者更新後の履歴記録失敗）の合計数",
		}),
		transferLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetman_transfer_latency_seconds",
			Help:    "所有権移転処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		divergences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetman_divergences_detected_total",
			Help: "検出された所有者と履歴の不整合の合計数",
		}),
		assetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetman_assets_created_total",
			Help: "登録された資産の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.transferCompleted,
		c.transferFailed,
		c.transferPartial,
		c.transferLatency,
		c.divergences,
		c.assetsCreated,
		c.httpStatus,
	)

	return c
}

// RecordTransferCompleted は移転完了を記録する。
func (c *Collector) RecordTransferCompleted() {
	c.transferCompleted.Inc()
}

// RecordTransferFailed は移転失敗を理由付きで記録する。
func (c *Collector) RecordTransferFailed(reason string) {
	c.transferFailed.WithLabelValues(reason).Inc()
}

// RecordTransferPartial は部分失敗を記録する。
func (c *Collector) RecordTransferPartial() {
	c.transferPartial.Inc()
}

// RecordTransferLatency は移転処理のレイテンシを記録する。
func (c *Collector) RecordTransferLatency(duration time.Duration) {
	c.transferLatency.Observe(duration.Seconds())
}

// RecordDivergenceDetected は不整合の検出を記録する。
func (c *Collector) RecordDivergenceDetected() {
	c.divergences.Inc()
}

// RecordAssetCreated は資産登録を記録する。
func (c *Collector) RecordAssetCreated() {
	c.assetsCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
