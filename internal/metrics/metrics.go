// Package metrics exposes the lifecycle engine's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	WebhookEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyhub",
		Name:      "webhook_events_total",
		Help:      "Billing webhook events by type and outcome (applied, ignored, failed, rejected).",
	}, []string{"type", "outcome"})

	CheckoutSessions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyhub",
		Name:      "checkout_sessions_total",
		Help:      "Checkout sessions created, by product and plan.",
	}, []string{"product", "plan"})

	PlanChanges = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyhub",
		Name:      "plan_changes_total",
		Help:      "Plan change operations by kind and outcome.",
	}, []string{"kind", "outcome"})

	LimitRejections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyhub",
		Name:      "entitlement_limit_rejections_total",
		Help:      "Plan-limited writes rejected by the entitlement guard.",
	}, []string{"resource"})

	NotificationFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyhub",
		Name:      "notification_failures_total",
		Help:      "Best-effort notification sends that failed.",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Outcome returns "ok" or "error" for a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
