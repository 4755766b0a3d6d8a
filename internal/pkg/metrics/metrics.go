// Package metrics exposes Prometheus collectors for the game economy.
// All Record methods are safe on a nil *Metrics, so callers may run without metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arcade"

// Metrics holds the bot collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	RoundsTotal   *prometheus.CounterVec   // rounds by game and verdict
	PayoutTotal   *prometheus.CounterVec   // tokens paid by game
	RefundsTotal  *prometheus.CounterVec   // voided rounds by game and reason
	RoundDuration *prometheus.HistogramVec // reserve to settle
	FreeClaims    *prometheus.CounterVec   // free token claims by result
	CookieClaims  *prometheus.CounterVec   // grid cash-outs by kind
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RoundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_total",
				Help:      "Settled rounds",
			},
			[]string{"game", "verdict"},
		),
		PayoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payout_tokens_total",
				Help:      "Tokens paid out",
			},
			[]string{"game"},
		),
		RefundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_total",
				Help:      "Rounds voided with the stake returned",
			},
			[]string{"game", "reason"}, // reason: roll/resolve/stale
		),
		RoundDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "round_duration_seconds",
				Help:      "Time from reserve to settle",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"game"},
		),
		FreeClaims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "free_token_claims_total",
				Help:      "Free token claim attempts",
			},
			[]string{"result"}, // result: granted/cooldown
		),
		CookieClaims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cookie_claims_total",
				Help:      "Grid game claim attempts",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RoundsTotal,
		m.PayoutTotal,
		m.RefundsTotal,
		m.RoundDuration,
		m.FreeClaims,
		m.CookieClaims,
	)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RegisterGauge exposes a value sampled at scrape time, such as the number of live sessions.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
		fn,
	))
}

// RecordRound records a settled round.
func (m *Metrics) RecordRound(game, verdict string, payout int64, seconds float64) {
	if m == nil {
		return
	}
	m.RoundsTotal.WithLabelValues(game, verdict).Inc()
	if payout > 0 {
		m.PayoutTotal.WithLabelValues(game).Add(float64(payout))
	}
	m.RoundDuration.WithLabelValues(game).Observe(seconds)
}

// RecordRefund records a voided round.
func (m *Metrics) RecordRefund(game, reason string) {
	if m == nil {
		return
	}
	m.RefundsTotal.WithLabelValues(game, reason).Inc()
}

// RecordFreeClaim records a free token claim attempt.
func (m *Metrics) RecordFreeClaim(granted bool) {
	if m == nil {
		return
	}
	result := "granted"
	if !granted {
		result = "cooldown"
	}
	m.FreeClaims.WithLabelValues(result).Inc()
}

// RecordCookieClaim records a grid game claim. Paid claims also count toward payouts.
func (m *Metrics) RecordCookieClaim(kind string, amount int64) {
	if m == nil {
		return
	}
	m.CookieClaims.WithLabelValues(kind).Inc()
	if amount > 0 {
		m.PayoutTotal.WithLabelValues("cookie").Add(float64(amount))
	}
}
