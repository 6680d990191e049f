// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// バックエンド呼び出しとサインインの結果ラベル。
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントやセッションオーケストレーターから利用する。
type MetricsCollector interface {
	RecordBackendCall(op string, outcome string)
	RecordBackendLatency(op string, duration time.Duration)
	RecordSignIn(method string, outcome string)
	RecordProvisioning(provider string)
	RecordSessionRefresh(outcome string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	signIns        *prometheus.CounterVec
	provisioned    *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_backend_calls_total",
			Help: "バックエンドAPI呼び出しの合計数（操作・結果別）",
		}, []string{"op", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boardman_backend_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_sign_in_total",
			Help: "サインイン試行の合計数（方式・結果別）",
		}, []string{"method", "outcome"}),
		provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_oauth_provisioned_total",
			Help: "OAuthログイン時に自動作成されたアカウント数",
		}, []string{"provider"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_session_refresh_total",
			Help: "アクセストークン再発行の合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.backendCalls,
		c.backendLatency,
		c.signIns,
		c.provisioned,
		c.refreshes,
		c.httpStatus,
	)

	return c
}

// RecordBackendCall はバックエンドAPI呼び出しの結果を記録する。
func (c *Collector) RecordBackendCall(op string, outcome string) {
	c.backendCalls.WithLabelValues(op, outcome).Inc()
}

// RecordBackendLatency はバックエンドAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordBackendLatency(op string, duration time.Duration) {
	c.backendLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordSignIn はサインイン試行の結果を記録する。
func (c *Collector) RecordSignIn(method string, outcome string) {
	c.signIns.WithLabelValues(method, outcome).Inc()
}

// RecordProvisioning はOAuthアカウントの自動作成を記録する。
func (c *Collector) RecordProvisioning(provider string) {
	c.provisioned.WithLabelValues(provider).Inc()
}

// RecordSessionRefresh はアクセストークン再発行の結果を記録する。
func (c *Collector) RecordSessionRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordBackendCall(string, string) {}
func (Nop) RecordBackendLatency(string, time.Duration) {}
func (Nop) RecordSignIn(string, string) {}
func (Nop) RecordProvisioning(string) {}
func (Nop) RecordSessionRefresh(string) {}
func (Nop) RecordHTTPStatus(int) {}

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
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
