// Package metrics exposes bridge counters through VictoriaMetrics/metrics.
package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// Dispatch outcomes recorded in bridge_dispatch_total.
const (
	OutcomeDelivered      = "delivered"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeUnclassifiable = "unclassifiable"
	OutcomeMissingField   = "missing_field"
)

var (
	fallbackTotal    = vm.NewCounter("bridge_fallback_total")
	deliveryDuration = vm.NewHistogram("bridge_delivery_duration_seconds")
)

// RecordDispatch counts one finished dispatch. origin may be empty when the
// payload could not be classified.
func RecordDispatch(origin models.Origin, outcome string) {
	if origin == "" {
		origin = "unknown"
	}
	vm.GetOrCreateCounter(fmt.Sprintf(`bridge_dispatch_total{origin=%q,outcome=%q}`, origin, outcome)).Inc()
}

// RecordFallback counts a dispatch routed to the fallback destination.
func RecordFallback() {
	fallbackTotal.Inc()
}

// RecordRenderDegraded counts a specific formatter failure replaced by generic output.
func RecordRenderDegraded(origin models.Origin) {
	vm.GetOrCreateCounter(fmt.Sprintf(`bridge_render_degraded_total{origin=%q}`, origin)).Inc()
}

// RecordDelivery counts one outbound call and its latency.
func RecordDelivery(status int, started time.Time) {
	deliveryDuration.UpdateDuration(started)
	vm.GetOrCreateCounter(fmt.Sprintf(`bridge_delivery_total{status="%d"}`, status)).Inc()
}

// Write writes all metrics in Prometheus text format.
func Write(w io.Writer) {
	vm.WritePrometheus(w, true)
}
