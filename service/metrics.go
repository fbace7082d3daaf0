package service

import (
	"errors"

	"github.com/layer-3/siwx/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts login-flow outcomes. A nil *Metrics records nothing.
type Metrics struct {
	challengesIssued prometheus.Counter
	challengesPruned prometheus.Counter
	logins           *prometheus.CounterVec
	lookups          *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		challengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "siwx",
			Name:      "challenges_issued_total",
			Help:      "Sign-in challenges issued.",
		}),
		challengesPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "siwx",
			Name:      "challenges_pruned_total",
			Help:      "Expired challenges removed by pruning.",
		}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siwx",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siwx",
			Name:      "lookups_total",
			Help:      "Mapping lookups by direction and outcome.",
		}, []string{"direction", "result"}),
	}
}

func (m *Metrics) challengeIssued() {
	if m != nil {
		m.challengesIssued.Inc()
	}
}

func (m *Metrics) pruned(n int) {
	if m != nil {
		m.challengesPruned.Add(float64(n))
	}
}

func (m *Metrics) login(err error) {
	if m != nil {
		m.logins.WithLabelValues(resultLabel(err)).Inc()
	}
}

func (m *Metrics) lookup(direction string, err error) {
	if m != nil {
		m.lookups.WithLabelValues(direction, resultLabel(err)).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrChallengeExpired):
		return "expired"
	case errors.Is(err, core.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, core.ErrMappingDisabled):
		return "disabled"
	case errors.Is(err, core.ErrInvalidKeyEncoding), errors.Is(err, core.ErrInvalidPrincipalEncoding):
		return "invalid_input"
	default:
		return "error"
	}
}
