package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nickman/redis-ts/internal/heartbeat"
	"github.com/nickman/redis-ts/internal/logging"
	"github.com/nickman/redis-ts/internal/metrics"
	"github.com/nickman/redis-ts/types"
)

// ErrSubscriptionLost is the disconnect cause when the heartbeat subscription ends
// while the manager is connected.
var ErrSubscriptionLost = errors.New("heartbeat subscription lost")

// eventBufferSize bounds queued listener events. Heartbeat failures are dropped when
// the buffer is full; connection events wait for room.
const eventBufferSize = 64

type eventKind int

const (
	eventNewInstance eventKind = iota
	eventReconnect
	eventDisconnect
	eventHeartbeatFailed
)

func (k eventKind) String() string {
	switch k {
	case eventNewInstance:
		return "new_instance"
	case eventReconnect:
		return "connect"
	case eventDisconnect:
		return "disconnect"
	case eventHeartbeatFailed:
		return "heartbeat_failed"
	default:
		return "unknown"
	}
}

type event struct {
	kind   eventKind
	runID  string
	cause  error
	status types.HeartbeatStatus
}

// Manager maintains the store connection, the heartbeat and the listener fan-out.
//
// Thread Safety: All exported methods are safe for concurrent use.
type Manager struct {
	cfg     Config
	store   types.Store
	logger  types.Logger
	metrics types.MetricsCollector
	onError func(error)

	listeners *registry
	lifecycle *lifecycle
	receiver  *heartbeat.Receiver
	monitor   *heartbeat.Monitor
	events    chan event

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	hbMu      sync.Mutex
	publisher *heartbeat.Publisher
	sub       types.Subscription

	idMu      sync.RWMutex
	runID     string
	lastRunID string

	connected atomic.Bool
}

// New creates a connection manager.
//
// Parameters:
//   - cfg: Connection timings; zero fields are defaulted
//   - store: Backend store (required)
//   - opts: Optional logger, metrics and observers
//
// Returns:
//   - *Manager: Manager in the stopped state
//   - error: types.ErrStoreRequired or a wrapped types.ErrInvalidConfig
//
// Example:
//
//	mgr, err := connection.New(connection.DefaultConfig(), store, connection.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	mgr.AddListener(listener)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop(context.Background())
func New(cfg Config, store types.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, types.ErrStoreRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	m := &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logging.OrNop(options.logger),
		metrics:   options.metrics,
		onError:   options.onError,
		listeners: newRegistry(),
		events:    make(chan event, eventBufferSize),
	}
	if m.metrics == nil {
		m.metrics = metrics.NewNop()
	}

	observer := options.onStateChange
	m.lifecycle = newLifecycle(func(from, to types.ConnectionState) {
		m.logger.Debug("connection state transition", "from", from.String(), "to", to.String())
		m.metrics.SetConnectionState(to)
		if observer != nil {
			observer(from, to)
		}
	})

	m.receiver = heartbeat.NewReceiver(m.logger)
	m.monitor = heartbeat.NewMonitor(m.receiver, cfg.HeartbeatPeriod, cfg.HeartbeatTimeout, m.onHeartbeatTimeout)

	return m, nil
}

// Start connects to the store and begins supervising the connection.
//
// The initial attempt is synchronous and bounded by ConnectTimeout. If it fails the
// failure is logged and the reconnect loop takes over; Start still returns nil.
//
// Parameters:
//   - ctx: Bounds the initial connection attempt only
//
// Returns:
//   - error: types.ErrAlreadyStarted if already running
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return types.ErrAlreadyStarted
	}
	m.started = true
	runCtx, cancelRun := context.WithCancel(context.Background())
	m.cancel = cancelRun
	m.mu.Unlock()

	m.fire(eventConnect)

	m.wg.Add(1)
	go m.dispatchLoop(runCtx)

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	err := m.connect(connectCtx, runCtx)
	cancel()

	if err != nil {
		m.logger.Warn("initial connection failed, reconnecting in background", "error", err)
	}

	m.wg.Add(1)
	go m.supervise(runCtx, err == nil)

	return nil
}

// Stop cancels all background tasks, closes the heartbeat subscription and the store,
// and returns the manager to the stopped state. A stopped manager can be started again.
//
// Parameters:
//   - ctx: Bounds the wait for background goroutines
//
// Returns:
//   - error: types.ErrNotStarted if not running, or a wrapped ctx error on timeout
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return types.ErrNotStarted
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("connection shutdown timeout: %w", ctx.Err())
		m.logger.Warn("connection manager stop timed out", "error", ctx.Err())
	}

	m.connected.Store(false)
	m.stopHeartbeat()

	if err := m.store.Close(); err != nil {
		m.logger.Warn("failed to close store", "error", err)
	}

	m.fire(eventStop)
	m.logger.Info("connection manager stopped")

	return waitErr
}

// Acquire checks out a session from the store's pool, bounded by OperationTimeout.
//
// Returns:
//   - types.Session: Session to release with Release
//   - error: types.ErrNotStarted, or an error wrapping types.ErrStoreUnavailable
func (m *Manager) Acquire(ctx context.Context) (types.Session, error) {
	if !m.isStarted() {
		return nil, types.ErrNotStarted
	}

	start := time.Now()
	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	defer cancel()

	sess, err := m.store.Acquire(acquireCtx)
	m.metrics.RecordAcquire(err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, types.Unavailable("acquire", err)
	}

	return sess, nil
}

// Release returns a session to the pool. Release(nil) is a no-op.
func (m *Manager) Release(sess types.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		m.logger.Debug("failed to release session", "error", err)
	}
}

// AddListener registers l. Safe to call from inside a listener callback.
//
// Returns:
//   - bool: true if l was not already registered
func (m *Manager) AddListener(l types.Listener) bool {
	if l != nil && !comparableListener(l) {
		m.logger.Warn("listener ignored: type is not comparable, register a pointer", "type", fmt.Sprintf("%T", l))
		return false
	}

	return m.listeners.Add(l)
}

// RemoveListener unregisters l. Safe to call from inside a listener callback.
//
// Returns:
//   - bool: true if l was registered
func (m *Manager) RemoveListener(l types.Listener) bool {
	return m.listeners.Remove(l)
}

// IsConnected reports whether the store connection is established.
// Heartbeat failures do not affect it.
func (m *Manager) IsConnected() bool {
	return m.connected.Load()
}

// RunID returns the run id of the current connection, or "" when disconnected.
func (m *Manager) RunID() string {
	m.idMu.RLock()
	defer m.idMu.RUnlock()

	return m.runID
}

// State returns the connection state.
func (m *Manager) State() types.ConnectionState {
	return m.lifecycle.current()
}

// HeartbeatStats returns the heartbeat timeout counters and the latest heartbeat seen.
func (m *Manager) HeartbeatStats() types.HeartbeatStatus {
	return m.monitor.Status()
}

func (m *Manager) isStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.started
}

// connect opens the connection and the heartbeat, then queues the connect event.
// ctx bounds the attempt; runCtx owns the heartbeat tasks.
func (m *Manager) connect(ctx, runCtx context.Context) error {
	runID, err := m.store.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := m.startHeartbeat(ctx, runCtx); err != nil {
		return err
	}

	m.idMu.Lock()
	previous := m.lastRunID
	m.runID = runID
	m.lastRunID = runID
	m.idMu.Unlock()

	m.connected.Store(true)
	m.fire(eventConnected)

	if previous == runID {
		m.logger.Info("reconnected to store", "run_id", runID)
		m.emit(runCtx, event{kind: eventReconnect, runID: runID})
	} else {
		m.logger.Info("connected to new store instance", "run_id", runID, "previous_run_id", previous)
		m.emit(runCtx, event{kind: eventNewInstance, runID: runID})
	}

	return nil
}

func (m *Manager) startHeartbeat(ctx, runCtx context.Context) error {
	m.hbMu.Lock()
	defer m.hbMu.Unlock()

	sub, err := m.store.Subscribe(ctx, m.cfg.HeartbeatChannel, m.receiver.Handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to heartbeat channel: %w", err)
	}

	publisher := heartbeat.NewPublisher(m.store, m.cfg.HeartbeatChannel, m.cfg.HeartbeatPublishPeriod)
	publisher.SetLogger(m.logger)
	publisher.SetMetrics(m.metrics)
	if err := publisher.Start(runCtx); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to start heartbeat publisher: %w", err)
	}

	if err := m.monitor.Start(runCtx); err != nil && !errors.Is(err, heartbeat.ErrAlreadyStarted) {
		_ = publisher.Stop()
		_ = sub.Unsubscribe()

		return fmt.Errorf("failed to start heartbeat monitor: %w", err)
	}

	m.sub = sub
	m.publisher = publisher

	return nil
}

func (m *Manager) stopHeartbeat() {
	m.hbMu.Lock()
	defer m.hbMu.Unlock()

	if m.publisher != nil {
		_ = m.publisher.Stop()
		m.publisher = nil
	}
	_ = m.monitor.Stop()

	if m.sub != nil {
		if err := m.sub.Unsubscribe(); err != nil {
			m.logger.Debug("failed to unsubscribe heartbeat channel", "error", err)
		}
		m.sub = nil
	}
}

func (m *Manager) subscriptionDone() <-chan struct{} {
	m.hbMu.Lock()
	defer m.hbMu.Unlock()

	if m.sub == nil {
		return nil
	}

	return m.sub.Done()
}

// supervise alternates between watching a live connection and reconnecting a lost one.
func (m *Manager) supervise(ctx context.Context, connected bool) {
	defer m.wg.Done()

	for {
		if !connected {
			if !m.reconnect(ctx) {
				return
			}
		}

		cause := m.watch(ctx)
		if cause == nil {
			return
		}

		m.handleLoss(ctx, cause)
		connected = false
	}
}

// watch probes the store every ReconnectPeriod and watches the heartbeat subscription.
// It returns the loss cause, or nil when ctx is cancelled.
func (m *Manager) watch(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.ReconnectPeriod)
	defer ticker.Stop()

	subDone := m.subscriptionDone()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-subDone:
			if ctx.Err() != nil {
				return nil
			}

			return ErrSubscriptionLost
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
			err := m.store.Ping(probeCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return fmt.Errorf("store probe failed: %w", err)
			}
		}
	}
}

func (m *Manager) handleLoss(ctx context.Context, cause error) {
	m.connected.Store(false)
	m.fire(eventLost)
	m.stopHeartbeat()

	m.idMu.Lock()
	m.runID = ""
	m.idMu.Unlock()

	m.logger.Warn("store connection lost", "error", cause)
	m.emit(ctx, event{kind: eventDisconnect, cause: cause})
	m.fire(eventRetry)
}

// reconnect retries with exponential backoff until connected, ctx is cancelled, or
// ReconnectMaxAttempts is exhausted.
//
// Returns:
//   - bool: true once connected
func (m *Manager) reconnect(ctx context.Context) bool {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = m.cfg.ReconnectBackoffInitial
	expBackoff.MaxInterval = m.cfg.ReconnectPeriod
	expBackoff.MaxElapsedTime = 0

	var policy backoff.BackOff = expBackoff
	if m.cfg.ReconnectMaxAttempts > 0 {
		policy = backoff.WithMaxRetries(expBackoff, uint64(m.cfg.ReconnectMaxAttempts))
	}
	policy.Reset()

	for attempt := 1; ; attempt++ {
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			m.giveUp(attempt - 1)
			return false
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}

		connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		err := m.connect(connectCtx, ctx)
		cancel()

		m.metrics.RecordReconnectAttempt(err == nil, delay.Seconds())
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		m.logger.Debug("reconnect attempt failed", "attempt", attempt, "backoff", delay, "error", err)
	}
}

func (m *Manager) giveUp(attempts int) {
	m.fire(eventGiveUp)

	err := fmt.Errorf("reconnect abandoned after %d attempts: %w", attempts, types.ErrStoreUnavailable)
	m.logger.Error("giving up on store connection", "attempts", attempts, "error", err)

	if m.onError != nil {
		m.onError(err)
	}
}

func (m *Manager) onHeartbeatTimeout(status types.HeartbeatStatus) {
	m.metrics.RecordHeartbeatTimeout(status.ConsecutiveTimeouts)
	m.logger.Warn("heartbeat timeout",
		"consecutive", status.ConsecutiveTimeouts,
		"total", status.TotalTimeouts,
		"elapsed", status.Elapsed,
	)

	select {
	case m.events <- event{kind: eventHeartbeatFailed, status: status}:
	default:
		m.logger.Debug("listener queue full, dropping heartbeat failure event")
	}
}

// emit queues a connection event, waiting for room unless ctx is cancelled.
func (m *Manager) emit(ctx context.Context, ev event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

func (m *Manager) fire(name string) {
	if err := m.lifecycle.fire(name); err != nil {
		m.logger.Debug("ignored connection state event", "event", name, "state", m.lifecycle.current().String(), "error", err)
	}
}

// dispatchLoop delivers queued events to listeners. On cancellation it drains what is
// already queued before returning.
func (m *Manager) dispatchLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case ev := <-m.events:
			m.dispatch(ctx, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-m.events:
					m.dispatch(ctx, ev)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, ev event) {
	for _, l := range m.listeners.Snapshot() {
		m.deliver(ctx, l, ev)
	}
}

func (m *Manager) deliver(ctx context.Context, l types.Listener, ev event) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.RecordListenerPanic()
			m.logger.Error("listener panicked", "event", ev.kind.String(), "panic", r)
		}
	}()

	switch ev.kind {
	case eventNewInstance:
		l.OnConnectNewInstance(ctx, ev.runID)
	case eventReconnect:
		l.OnConnect(ctx, ev.runID)
	case eventDisconnect:
		l.OnDisconnect(ctx, ev.cause)
	case eventHeartbeatFailed:
		l.OnHeartbeatFailed(ctx, ev.status)
	}
}
