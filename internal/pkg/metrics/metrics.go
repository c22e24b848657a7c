package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CheckinEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linebot",
		Name:      "checkin_events_total",
		Help:      "Check-in and check-out events recorded, by type and registration status.",
	}, []string{"type", "status"})

	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linebot",
		Name:      "upstream_calls_total",
		Help:      "Outbound calls to HR, time record and LINE APIs, by outcome.",
	}, []string{"service", "outcome"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linebot",
		Name:      "webhook_events_total",
		Help:      "LINE webhook events received, by event type.",
	}, []string{"type"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
