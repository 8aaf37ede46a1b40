// Package metrics declares the Prometheus series the controller
// exposes, following the teacher's promauto counter pattern in
// pkg/provider/hpa.go.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linki/hpa-schedule-controller/internal/decision"
)

var (
	// IntentsDispatched counts mutation intents successfully patched,
	// labeled by reason (WINDOW_ENTER / WINDOW_EXIT).
	IntentsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpa_schedule_controller_intents_dispatched_total",
		Help: "The total number of mutation intents successfully patched, by reason",
	}, []string{"reason"})

	// PatchTransientErrors counts Patch Client failures classified as
	// transient (connection, 5xx, throttling); the idempotence gate
	// will retry these on the next tick.
	PatchTransientErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hpa_schedule_controller_patch_transient_errors_total",
		Help: "The total number of transient Patch Client errors",
	})

	// PatchPermanentErrors counts Patch Client failures classified as
	// permanent (404, 403, malformed); these trigger a 60s dispatch
	// quarantine for the affected key.
	PatchPermanentErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hpa_schedule_controller_patch_permanent_errors_total",
		Help: "The total number of permanent Patch Client errors",
	})

	// DeclarationsRejected counts schedule declarations rejected at the
	// ingestion boundary.
	DeclarationsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hpa_schedule_controller_declarations_rejected_total",
		Help: "The total number of schedule declarations rejected at ingestion",
	})

	// QuarantinedKeys reports the number of env-app keys currently
	// quarantined after a permanent Patch error.
	QuarantinedKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hpa_schedule_controller_quarantined_keys",
		Help: "The number of env-app keys currently quarantined after a permanent Patch error",
	})
)

// RecordDispatch increments IntentsDispatched for the given reason.
func RecordDispatch(reason decision.Reason) {
	IntentsDispatched.WithLabelValues(string(reason)).Inc()
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format, to be mounted at /metrics by cmd/controller.
func Handler() http.Handler {
	return promhttp.Handler()
}
