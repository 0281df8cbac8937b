package ports

import "time"

// MetricsCollector receives engine-level measurements. Implementations are
// fire-and-forget; the engine never blocks on them or inspects errors.
type MetricsCollector interface {
	// ObserveFulfillment records one completed fulfillment call with its
	// wall-clock duration, unit count, and terminal status
	// ("ok", "invalid_query", "unit_failure", "reconcile_error").
	ObserveFulfillment(duration time.Duration, units int, status string)

	// IncUnitResult counts one unit completion with status "ok" or "failed".
	IncUnitResult(iface, status string)

	// SetPoolSize records the effective worker count of the last dispatch.
	SetPoolSize(n int)
}

// NopMetrics discards every measurement. It is the default collector when
// none is configured.
type NopMetrics struct{}

var _ MetricsCollector = NopMetrics{}

func (NopMetrics) ObserveFulfillment(time.Duration, int, string) {}
func (NopMetrics) IncUnitResult(string, string)                  {}
func (NopMetrics) SetPoolSize(int)                               {}
