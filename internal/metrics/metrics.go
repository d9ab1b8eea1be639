// Package metrics holds the prometheus instruments for the custody core.
package metrics

import (
	"net/http"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Send outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // funds, input or config problems; never reached the chain
	OutcomeFailed   = "failed"   // network or broadcast failure
)

// Metrics is a set of instruments registered on one registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	walletsDerived *prometheus.CounterVec
	sends          *prometheus.CounterVec
	sendDuration   *prometheus.HistogramVec
	priceFallbacks *prometheus.CounterVec
	depositChecks  *prometheus.CounterVec
}

// New registers the instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		walletsDerived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_wallets_derived_total",
				Help: "Total number of deal wallets derived and encrypted",
			},
			[]string{"asset"},
		),
		sends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_sends_total",
				Help: "Total number of send attempts by outcome",
			},
			[]string{"asset", "outcome"},
		),
		sendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "custody_send_duration_seconds",
				Help:    "Duration of sends from signing to confirmation",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 15, 30, 60, 180, 600},
			},
			[]string{"asset"},
		),
		priceFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_price_fallbacks_total",
				Help: "Total number of conversions served from cache or the fallback table",
			},
			[]string{"asset", "source"},
		),
		depositChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_deposit_checks_total",
				Help: "Total number of deposit checks by result",
			},
			[]string{"asset", "accepted"},
		),
	}
}

// WalletDerived counts one generated wallet.
func (m *Metrics) WalletDerived(asset model.Asset) {
	if m == nil {
		return
	}
	m.walletsDerived.WithLabelValues(asset.String()).Inc()
}

// SendFinished records the outcome and duration of one send.
func (m *Metrics) SendFinished(asset model.Asset, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(asset.String(), sendOutcome(err)).Inc()
	if err == nil {
		m.sendDuration.WithLabelValues(asset.String()).Observe(took.Seconds())
	}
}

// PriceFallback counts a conversion that did not use a live quote.
func (m *Metrics) PriceFallback(asset model.Asset, source string) {
	if m == nil {
		return
	}
	m.priceFallbacks.WithLabelValues(asset.String(), source).Inc()
}

// DepositChecked counts one deposit check.
func (m *Metrics) DepositChecked(asset model.Asset, accepted bool) {
	if m == nil {
		return
	}
	label := "false"
	if accepted {
		label = "true"
	}
	m.depositChecks.WithLabelValues(asset.String(), label).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func sendOutcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch model.KindOf(err) {
	case model.KindNetwork, model.KindBroadcast, model.KindUnknown:
		return OutcomeFailed
	default:
		return OutcomeRejected
	}
}
