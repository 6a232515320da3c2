package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nickman/redis-ts/types"
)

// DefaultNamespace is the Prometheus namespace used when none is given.
const DefaultNamespace = "redists"

var connectionStates = []types.ConnectionState{
	types.ConnectionStopped,
	types.ConnectionConnecting,
	types.ConnectionConnected,
	types.ConnectionDisconnected,
}

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing a collector
// that is never used leaves the registry untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Controller metrics
	stateTransitions   *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	reconciles         *prometheus.CounterVec
	reconcileDuration  prometheus.Histogram
	stateDropped       prometheus.Counter

	// Connection metrics
	connectionState   *prometheus.GaugeVec
	reconnectAttempts *prometheus.CounterVec
	reconnectBackoff  prometheus.Histogram
	acquires          *prometheus.CounterVec
	acquireLatency    prometheus.Histogram
	listenerPanics    prometheus.Counter

	// Heartbeat metrics
	heartbeats           *prometheus.CounterVec
	heartbeatTimeouts    prometheus.Counter
	heartbeatConsecutive prometheus.Gauge
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "redists" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "state_transitions_total",
			Help:      "Total controller state transitions by source and target state.",
		}, []string{"from", "to"})

		p.transitionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "state_duration_seconds",
			Help:      "Time spent in a state before leaving it, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms .. ~43m
		}, []string{"state"})

		p.reconciles = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "reconciliations_total",
			Help:      "Total schedule reconciliations by outcome (FirstInit,Refreshed,Conflict,Uninitialized).",
		}, []string{"outcome"})

		p.reconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Latency of schedule reconciliation in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		})

		p.stateDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "state_notifications_dropped_total",
			Help:      "State change notifications dropped because a subscriber was slow.",
		})

		p.connectionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Current connection state (1 for the active state, 0 otherwise).",
		}, []string{"state"})

		p.reconnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "reconnect_attempts_total",
			Help:      "Total reconnect attempts by result (success,failure).",
		}, []string{"result"})

		p.reconnectBackoff = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "reconnect_backoff_seconds",
			Help:      "Backoff delay before each reconnect attempt in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		})

		p.acquires = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "session_acquires_total",
			Help:      "Total session checkouts by result (success,failure).",
		}, []string{"result"})

		p.acquireLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "session_acquire_seconds",
			Help:      "Latency of session checkouts in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		})

		p.listenerPanics = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "listener_panics_total",
			Help:      "Total panics recovered from connection listeners.",
		})

		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "heartbeat",
			Name:      "published_total",
			Help:      "Total heartbeat publish attempts by result (success,failure).",
		}, []string{"result"})

		p.heartbeatTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "heartbeat",
			Name:      "timeouts_total",
			Help:      "Total monitor checks that found the heartbeat stale.",
		})

		p.heartbeatConsecutive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "heartbeat",
			Name:      "consecutive_timeouts",
			Help:      "Current number of consecutive stale heartbeat checks.",
		})

		p.reg.MustRegister(
			p.stateTransitions,
			p.transitionDuration,
			p.reconciles,
			p.reconcileDuration,
			p.stateDropped,
			p.connectionState,
			p.reconnectAttempts,
			p.reconnectBackoff,
			p.acquires,
			p.acquireLatency,
			p.listenerPanics,
			p.heartbeats,
			p.heartbeatTimeouts,
			p.heartbeatConsecutive,
		)
	})
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}

// ControllerMetrics implementation

// RecordStateTransition counts a transition and observes the time spent in the source state.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State, duration float64) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	p.transitionDuration.WithLabelValues(from.String()).Observe(duration)
}

// RecordReconcile counts a reconciliation outcome and observes its latency.
func (p *PrometheusCollector) RecordReconcile(outcome types.State, duration float64) {
	p.ensureRegistered()
	p.reconciles.WithLabelValues(outcome.String()).Inc()
	p.reconcileDuration.Observe(duration)
}

// RecordStateChangeDropped increments the dropped notification counter.
func (p *PrometheusCollector) RecordStateChangeDropped() {
	p.ensureRegistered()
	p.stateDropped.Inc()
}

// ConnectionMetrics implementation

// SetConnectionState sets the gauge of state to 1 and every other state to 0.
func (p *PrometheusCollector) SetConnectionState(state types.ConnectionState) {
	p.ensureRegistered()
	for _, s := range connectionStates {
		value := 0.0
		if s == state {
			value = 1
		}
		p.connectionState.WithLabelValues(s.String()).Set(value)
	}
}

// RecordReconnectAttempt counts a reconnect attempt and observes the backoff that preceded it.
func (p *PrometheusCollector) RecordReconnectAttempt(success bool, backoff float64) {
	p.ensureRegistered()
	p.reconnectAttempts.WithLabelValues(result(success)).Inc()
	p.reconnectBackoff.Observe(backoff)
}

// RecordAcquire counts a session checkout and observes its latency.
func (p *PrometheusCollector) RecordAcquire(success bool, duration float64) {
	p.ensureRegistered()
	p.acquires.WithLabelValues(result(success)).Inc()
	p.acquireLatency.Observe(duration)
}

// RecordListenerPanic increments the recovered listener panic counter.
func (p *PrometheusCollector) RecordListenerPanic() {
	p.ensureRegistered()
	p.listenerPanics.Inc()
}

// HeartbeatMetrics implementation

// RecordHeartbeat counts a heartbeat publish attempt.
func (p *PrometheusCollector) RecordHeartbeat(success bool) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(result(success)).Inc()
}

// RecordHeartbeatTimeout counts a stale check and sets the consecutive gauge.
func (p *PrometheusCollector) RecordHeartbeatTimeout(consecutive int64) {
	p.ensureRegistered()
	p.heartbeatTimeouts.Inc()
	p.heartbeatConsecutive.Set(float64(consecutive))
}
