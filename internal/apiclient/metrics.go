package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты попытки обновить access-токен.
const (
	refreshOK      = "ok"
	refreshFailed  = "failed"
	refreshSkipped = "no_refresh_token"
)

// Metrics — счётчики исходящих запросов. Создаётся один раз на процесс и
// передаётся клиентам через Options; nil-значение допустимо (метрики выключены).
type Metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

// NewMetrics регистрирует счётчики в reg (обычно prometheus.DefaultRegisterer).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "techsite",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Outgoing REST API requests by method and response status (0 — transport failure).",
		}, []string{"method", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "techsite",
			Subsystem: "api",
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts after 401 by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.refreshes)
	}

	return m
}

func (m *Metrics) observeRequest(method string, status int) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(result).Inc()
}
