package compliance

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts robots.txt decisions. A nil *Metrics records nothing.
type Metrics struct {
	ChecksTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		ChecksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "provimport_robots_checks_total",
			Help: "robots.txt checks by outcome and whether the decision came from cache",
		}, []string{"outcome", "cached"}), // outcome: "allowed", "disallowed", "error"
	}
}

func (m *Metrics) IncrementCheck(outcome string, cached bool) {
	if m != nil {
		m.ChecksTotal.WithLabelValues(outcome, strconv.FormatBool(cached)).Inc()
	}
}
