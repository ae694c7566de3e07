package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds all Prometheus metrics for the plugin gateway.
type GatewayMetrics struct {
	AuthFailures       *prometheus.CounterVec
	TenantResolutions  *prometheus.CounterVec
	RateLimitDecisions *prometheus.CounterVec
	FlagStoreFailOpen  prometheus.Counter
	SettingsOps        *prometheus.CounterVec
}

// NewGatewayMetrics initializes and registers the gateway metrics against
// the given registerer. main passes the default registerer; tests pass a
// fresh registry so repeated construction cannot collide.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugin_gateway",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total number of rejected bearer credentials by reason.",
		}, []string{"reason"}), // reason: missing, invalid
		TenantResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugin_gateway",
			Subsystem: "tenant",
			Name:      "resolutions_total",
			Help:      "Total number of tenant resolution attempts by outcome.",
		}, []string{"outcome"}), // outcome: resolved, missing
		RateLimitDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugin_gateway",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Total number of rate limit admission decisions by class and outcome.",
		}, []string{"class", "outcome"}), // outcome: allowed, denied, error
		FlagStoreFailOpen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plugin_gateway",
			Subsystem: "flags",
			Name:      "fail_open_total",
			Help:      "Total number of flag store failures answered with the default snapshot.",
		}),
		SettingsOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugin_gateway",
			Subsystem: "settings",
			Name:      "operations_total",
			Help:      "Total number of settings lifecycle operations by kind.",
		}, []string{"op"}), // op: get, put, patch, delete, export, export_fetch
	}
}
