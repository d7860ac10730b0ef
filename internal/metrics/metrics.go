// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordUnregistration()
	RecordLedgerConflict(code string)
	RecordTxRetry()
	RecordQueryRejected(code string)
	RecordFreeIntervalRequest()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations   prometheus.Counter
	unregistrations prometheus.Counter
	ledgerConflicts *prometheus.CounterVec
	txRetries       prometheus.Counter
	queryRejected   *prometheus.CounterVec
	freeIntervals   prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confman_registrations_total",
			Help: "参加登録成功の合計数",
		}),
		unregistrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confman_unregistrations_total",
			Help: "参加登録取り消しの合計数",
		}),
		ledgerConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confman_ledger_conflicts_total",
			Help: "台帳操作の業務競合（重複登録・満席など）の合計数",
		}, []string{"code"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confman_tx_retries_total",
			Help: "台帳トランザクションの再試行の合計数",
		}),
		queryRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confman_query_rejected_total",
			Help: "フィルタコンパイルで拒否されたクエリの合計数",
		}, []string{"code"}),
		freeIntervals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confman_free_interval_requests_total",
			Help: "空き日程照会の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.registrations,
		c.unregistrations,
		c.ledgerConflicts,
		c.txRetries,
		c.queryRejected,
		c.freeIntervals,
		c.httpStatus,
	)

	return c
}

// RecordRegistration は参加登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordUnregistration は参加登録取り消しを記録する。
func (c *Collector) RecordUnregistration() {
	c.unregistrations.Inc()
}

// RecordLedgerConflict は台帳操作の業務競合を記録する。
func (c *Collector) RecordLedgerConflict(code string) {
	c.ledgerConflicts.WithLabelValues(code).Inc()
}

// RecordTxRetry はトランザクション再試行を記録する。
func (c *Collector) RecordTxRetry() {
	c.txRetries.Inc()
}

// RecordQueryRejected はフィルタコンパイルの拒否を記録する。
func (c *Collector) RecordQueryRejected(code string) {
	c.queryRejected.WithLabelValues(code).Inc()
}

// RecordFreeIntervalRequest は空き日程照会を記録する。
func (c *Collector) RecordFreeIntervalRequest() {
	c.freeIntervals.Inc()
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
