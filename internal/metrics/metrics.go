// Package metrics はRADIUSサーバーのPrometheusメトリクスを提供する。
//
// Metricsはmainで1度だけ生成し、サーバーとAuth Managerに渡す。
// ラベル値は生成時に固定し、リクエスト処理中に系列を増やさない。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// 認証結果ラベル
const (
	ResultAccept    = "accept"
	ResultReject    = "reject"
	ResultChallenge = "challenge"
	ResultDropped   = "dropped"
)

// CoA結果ラベル
const (
	CoAAck = "ack"
	CoANak = "nak"
)

// 破棄理由ラベル
const (
	DropMalformed     = "malformed"
	DropPolicy        = "policy"
	DropAuthenticator = "authenticator"
	DropEncode        = "encode"
	DropNoSecret      = "no_secret"
	DropPanic         = "panic"
)

// バックエンド評価結果ラベル
const (
	OutcomeAccept    = "accept"
	OutcomeReject    = "reject"
	OutcomeChallenge = "challenge"
	OutcomeForward   = "forward"
	OutcomeError     = "error"
)

var (
	authResultLabels = []string{ResultAccept, ResultReject, ResultChallenge, ResultDropped}
	coaLabels        = []string{CoAAck, CoANak}
	dropLabels       = []string{DropMalformed, DropPolicy, DropAuthenticator, DropEncode, DropNoSecret, DropPanic}
	outcomeLabels    = []string{OutcomeAccept, OutcomeReject, OutcomeChallenge, OutcomeForward, OutcomeError}
)

// Metrics はRADIUSサーバーのメトリクス一式
type Metrics struct {
	start time.Time

	authRequests prometheus.Counter
	authResults  map[string]prometheus.Counter
	acctRequests prometheus.Counter
	coaResults   map[string]prometheus.Counter
	dropped      map[string]prometheus.Counter
	backends     map[string]map[string]prometheus.Counter
	backendVec   *prometheus.CounterVec
	active       prometheus.Gauge
	latency      prometheus.Histogram
}

// New はメトリクスを生成し、regに登録する。
// backendsには設定済みのバックエンド名を渡す（評価結果ラベルを事前に束縛する）。
func New(reg prometheus.Registerer, backends ...string) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{start: time.Now()}

	m.authRequests = factory.NewCounter(prometheus.CounterOpts{
		Name: "radius_auth_requests_total",
		Help: "Total number of Access-Request packets received",
	})
	resultVec := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_auth_results_total",
		Help: "Total number of authentication results by outcome",
	}, []string{"result"})
	m.authResults = bind(resultVec, authResultLabels)

	m.acctRequests = factory.NewCounter(prometheus.CounterOpts{
		Name: "radius_acct_requests_total",
		Help: "Total number of Accounting-Request packets received",
	})
	coaVec := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_coa_requests_total",
		Help: "Total number of CoA and Disconnect requests by response",
	}, []string{"outcome"})
	m.coaResults = bind(coaVec, coaLabels)

	dropVec := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_packets_dropped_total",
		Help: "Total number of datagrams dropped without a response",
	}, []string{"reason"})
	m.dropped = bind(dropVec, dropLabels)

	m.backendVec = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_backend_results_total",
		Help: "Total number of backend evaluations by backend and outcome",
	}, []string{"backend", "outcome"})
	m.backends = make(map[string]map[string]prometheus.Counter, len(backends))
	for _, name := range backends {
		byOutcome := make(map[string]prometheus.Counter, len(outcomeLabels))
		for _, o := range outcomeLabels {
			byOutcome[o] = m.backendVec.WithLabelValues(name, o)
		}
		m.backends[name] = byOutcome
	}

	m.active = factory.NewGauge(prometheus.GaugeOpts{
		Name: "radius_active_connections",
		Help: "Current number of requests being processed",
	})
	m.latency = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "radius_request_latency_seconds",
		Help:    "Request processing latency from receive to send",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "radius_uptime_seconds",
		Help: "Seconds since the server started",
	}, func() float64 {
		return time.Since(m.start).Seconds()
	})

	return m
}

func bind(vec *prometheus.CounterVec, labels []string) map[string]prometheus.Counter {
	out := make(map[string]prometheus.Counter, len(labels))
	for _, l := range labels {
		out[l] = vec.WithLabelValues(l)
	}
	return out
}

// AuthRequest はAccess-Requestの受信を記録する
func (m *Metrics) AuthRequest() {
	m.authRequests.Inc()
}

// AuthResult は認証結果を記録する。未知のラベルは無視する。
func (m *Metrics) AuthResult(result string) {
	if c, ok := m.authResults[result]; ok {
		c.Inc()
	}
}

// AcctRequest はAccounting-Requestの受信を記録する
func (m *Metrics) AcctRequest() {
	m.acctRequests.Inc()
}

// CoAResult はCoA/Disconnectの応答種別を記録する
func (m *Metrics) CoAResult(ack bool) {
	if ack {
		m.coaResults[CoAAck].Inc()
		return
	}
	m.coaResults[CoANak].Inc()
}

// Dropped はデータグラムの破棄を記録する
func (m *Metrics) Dropped(reason string) {
	if c, ok := m.dropped[reason]; ok {
		c.Inc()
	}
}

// BackendOutcome はバックエンド評価結果を記録する。
// auth.Recorderインターフェースの実装。
func (m *Metrics) BackendOutcome(backend, outcome string) {
	if byOutcome, ok := m.backends[backend]; ok {
		if c, ok := byOutcome[outcome]; ok {
			c.Inc()
		}
	}
}

// RequestStarted は処理中リクエスト数を増やす
func (m *Metrics) RequestStarted() {
	m.active.Inc()
}

// RequestFinished は処理中リクエスト数を減らし、処理時間を記録する
func (m *Metrics) RequestFinished(start time.Time) {
	m.active.Dec()
	m.latency.Observe(time.Since(start).Seconds())
}

// Snapshot は定期ログ出力用の集計値
type Snapshot struct {
	AuthRequests uint64
	Accepts      uint64
	Rejects      uint64
	Challenges   uint64
	Dropped      uint64
	AcctRequests uint64
	CoARequests  uint64
	Active       int64
	Uptime       time.Duration
}

// Snapshot は現在の集計値を返す
func (m *Metrics) Snapshot() Snapshot {
	var dropped uint64
	for _, c := range m.dropped {
		dropped += counterValue(c)
	}
	return Snapshot{
		AuthRequests: counterValue(m.authRequests),
		Accepts:      counterValue(m.authResults[ResultAccept]),
		Rejects:      counterValue(m.authResults[ResultReject]),
		Challenges:   counterValue(m.authResults[ResultChallenge]),
		Dropped:      dropped,
		AcctRequests: counterValue(m.acctRequests),
		CoARequests:  counterValue(m.coaResults[CoAAck]) + counterValue(m.coaResults[CoANak]),
		Active:       int64(gaugeValue(m.active)),
		Uptime:       time.Since(m.start),
	}
}

func counterValue(c prometheus.Counter) uint64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return uint64(pb.GetCounter().GetValue())
}

func gaugeValue(g prometheus.Gauge) float64 {
	var pb dto.Metric
	if err := g.Write(&pb); err != nil {
		return 0
	}
	return pb.GetGauge().GetValue()
}
