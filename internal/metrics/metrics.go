// Package metrics exposes the portal's prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK        = "ok"
	ResultInvalid   = "invalid"
	ResultDenied    = "denied"
	ResultError     = "error"
	ResultPending   = "pending"
	ResultRejected  = "rejected"
	ResultThrottled = "throttled"
)

// Metrics 聚合业务计数器。
type Metrics struct {
	ReportSaves *prometheus.CounterVec
	Logins      *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New 在给定 registry 上注册计数器；传 nil 时使用独立 registry。
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ReportSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthportal",
			Name:      "report_saves_total",
			Help:      "Daily report save and delete attempts by feature and result.",
		}, []string{"feature", "result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthportal",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		gatherer: reg,
	}
	reg.MustRegister(m.ReportSaves, m.Logins)
	return m
}

// ObserveSave 记录一次保存结果，m 为 nil 时忽略。
func (m *Metrics) ObserveSave(feature, result string) {
	if m == nil {
		return
	}
	m.ReportSaves.WithLabelValues(feature, result).Inc()
}

// ObserveLogin 记录一次登录结果。
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// Handler 返回 /metrics 的 HTTP handler。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
