package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PacketsCaptured counts total packets received by the sniffer
	PacketsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "packets_captured_total",
			Help:      "Total number of packets captured by the sniffer",
		},
		[]string{"interface"},
	)

	// PacketsProcessed counts packets successfully processed by the application
	PacketsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "packets_processed_total",
			Help:      "Total number of packets processed by the application",
		},
		[]string{"interface"},
	)

	// PacketsDropped counts packets dropped due to buffer full or errors
	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "packets_dropped_total",
			Help:      "Total number of packets dropped",
		},
		[]string{"interface", "reason"},
	)

	// InjectionsTotal counts total injection attempts
	InjectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "injection_total",
			Help:      "Total number of packet injection attempts",
		},
		[]string{"interface", "type"},
	)

	// InjectionErrors counts failed injection attempts
	InjectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "injection_errors_total",
			Help:      "Total number of failed packet injection attempts",
		},
		[]string{"interface", "type"},
	)

	// TZSPPacketsDropped counts TZSP datagrams the receiver could not turn
	// into a sample, broken out by the stage that rejected them.
	TZSPPacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "tzsp_packets_dropped_total",
			Help:      "Total number of TZSP datagrams dropped before decoding, by reason",
		},
		[]string{"reason"},
	)

	// SSHDriverStateTransitions counts every state change the SSH scan
	// driver (C3) makes, labeled with the state it entered.
	SSHDriverStateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "ssh_driver_state_transitions_total",
			Help:      "Total number of SSH scan driver state transitions, by state entered",
		},
		[]string{"state"},
	)

	// GPSDFixStateTransitions counts every event the gpsd client emits,
	// repeats of the same state included, labeled with the client state
	// reported (off, opening, awaiting, no-fix, ok).
	GPSDFixStateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wmap",
			Name:      "gpsd_fix_state_transitions_total",
			Help:      "Total number of gpsd client events, by client state reported",
		},
		[]string{"mode"},
	)

	// ConsolidationDrainSize observes how many updates one heartbeat drain
	// of the consolidation table (C5) produces.
	ConsolidationDrainSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wmap",
			Name:      "consolidation_drain_size",
			Help:      "Number of update events produced per consolidation table drain",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(PacketsCaptured)
		prometheus.DefaultRegisterer.Register(PacketsProcessed)
		prometheus.DefaultRegisterer.Register(PacketsDropped)
		prometheus.DefaultRegisterer.Register(InjectionsTotal)
		prometheus.DefaultRegisterer.Register(InjectionErrors)
		prometheus.DefaultRegisterer.Register(TZSPPacketsDropped)
		prometheus.DefaultRegisterer.Register(SSHDriverStateTransitions)
		prometheus.DefaultRegisterer.Register(GPSDFixStateTransitions)
		prometheus.DefaultRegisterer.Register(ConsolidationDrainSize)
	})
}
