package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine outcomes.  Degraded sessions (no provider room)
// are visible through the provider_backed label.
type Metrics struct {
	sessionsCreated *prometheus.CounterVec
	sessionsEnded   prometheus.Counter
	providerErrors  *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	accessDenied    *prometheus.CounterVec
}

// NewMetrics builds the engine collectors and registers them on reg.  A
// nil reg leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_sessions_created_total",
				Help: "Streaming sessions created, by whether the provider room exists",
			},
			[]string{"provider_backed"},
		),
		sessionsEnded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "live_sessions_ended_total",
				Help: "Streaming sessions ended",
			},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_room_provider_errors_total",
				Help: "Failed room provider calls by operation",
			},
			[]string{"op"},
		),
		tokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_tokens_issued_total",
				Help: "Room access tokens issued by participant role",
			},
			[]string{"role"},
		),
		accessDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_access_denied_total",
				Help: "Token requests denied by reason",
			},
			[]string{"reason"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.sessionsCreated, m.sessionsEnded, m.providerErrors, m.tokensIssued, m.accessDenied)
	}
	return m
}

func (m *Metrics) sessionCreated(providerBacked bool) {
	m.sessionsCreated.WithLabelValues(strconv.FormatBool(providerBacked)).Inc()
}

func (m *Metrics) sessionEnded() { m.sessionsEnded.Inc() }

func (m *Metrics) providerError(op string) { m.providerErrors.WithLabelValues(op).Inc() }

func (m *Metrics) tokenIssued(role string) { m.tokensIssued.WithLabelValues(role).Inc() }

// denied reasons: geofence, ticket, auth, role
func (m *Metrics) denied(reason string) { m.accessDenied.WithLabelValues(reason).Inc() }
