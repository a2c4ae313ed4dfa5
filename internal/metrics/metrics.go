// Package metrics exposes Prometheus collectors for the identity service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records auth-operation outcomes, live session subscriptions and
// translation lookup misses. It satisfies the narrow interfaces the session
// and i18n packages consume.
type Collector struct {
	registry *prometheus.Registry

	authAttempts    *prometheus.CounterVec
	profileWrites   prometheus.Counter
	subscriptions   prometheus.Gauge
	translationMiss *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharelooped_auth_attempts_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		profileWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharelooped_profile_writes_total",
			Help: "Profile records provisioned for first-seen identities.",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sharelooped_session_subscriptions",
			Help: "Live session-state subscriptions.",
		}),
		translationMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharelooped_translation_misses_total",
			Help: "Translation lookups absent in the requested language.",
		}, []string{"language"}),
	}

	registry.MustRegister(
		c.authAttempts,
		c.profileWrites,
		c.subscriptions,
		c.translationMiss,
	)

	return c
}

// RecordAuthAttempt counts one auth operation outcome.
func (c *Collector) RecordAuthAttempt(operation, outcome string) {
	c.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordProfileWrite counts one provisioned profile record.
func (c *Collector) RecordProfileWrite() {
	c.profileWrites.Inc()
}

// SubscriptionOpened increments the live subscription gauge.
func (c *Collector) SubscriptionOpened() {
	c.subscriptions.Inc()
}

// SubscriptionClosed decrements the live subscription gauge.
func (c *Collector) SubscriptionClosed() {
	c.subscriptions.Dec()
}

// RecordTranslationMiss counts one lookup absent in the requested language.
func (c *Collector) RecordTranslationMiss(language string) {
	c.translationMiss.WithLabelValues(language).Inc()
}

// Handler serves the collector's registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
