package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthOutcomesTotal tracks every AuthenticationOutcome kind returned
	// by the authenticator.
	AuthOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonectl_auth_outcomes_total",
		Help: "Total number of authentication outcomes by kind",
	}, []string{"kind"})

	// AuthDuration tracks how long Authenticate takes end to end,
	// including the principal-provider round trip.
	AuthDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zonectl_auth_duration_seconds",
		Help:    "Histogram of authenticator processing duration",
		Buckets: prometheus.DefBuckets,
	})

	// ZoneValidationFailuresTotal tracks NewZone/NewZoneConnection/NewZoneACL
	// field-validation failures by field.
	ZoneValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonectl_zone_validation_failures_total",
		Help: "Total number of zone construction validation failures by field",
	}, []string{"field"})

	// AnycastAnnounced indicates whether this node is currently
	// announcing the anycast VIP over BGP (1 = announcing, 0 = withdrawn).
	AnycastAnnounced = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zonectl_anycast_announced",
		Help: "Binary indicator of anycast BGP announcement status",
	})

	// BackendReachableTotal tracks the anycast health manager's dial
	// attempts against backend primary servers.
	BackendReachableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonectl_backend_reachable_total",
		Help: "Total number of backend reachability checks by result",
	}, []string{"result"})
)
