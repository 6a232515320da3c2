package redists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/nickman/redis-ts/internal/connection"
	"github.com/nickman/redis-ts/internal/hooks"
	"github.com/nickman/redis-ts/internal/logging"
	"github.com/nickman/redis-ts/internal/metrics"
	"github.com/nickman/redis-ts/tier"
	"github.com/nickman/redis-ts/types"
)

// tierNamesSeparator joins tier names in the tier-names key.
const tierNamesSeparator = ","

// Controller reconciles the local tier schedule with the store.
//
// The controller registers itself as the first connection listener, so for every new
// store instance it reconciles before any listener added with AddListener is told about
// the instance.
//
// Thread Safety: All exported methods are safe for concurrent use.
type Controller struct {
	cfg      Config
	schedule *tier.Schedule
	conn     *connection.Manager

	hooks   types.Hooks
	metrics types.MetricsCollector
	logger  types.Logger

	mu      sync.Mutex
	started bool
	ctx     context.Context //nolint:containedctx // lifecycle context handed to hooks
	cancel  context.CancelFunc

	stateMu    sync.Mutex
	state      atomic.Int32
	stateSince time.Time
	lastErr    atomic.Pointer[error]

	subscribers *xsync.Map[uint64, *stateSubscriber]
	subSeq      atomic.Uint64
}

// NewController creates a controller for the schedule in cfg.Model.
//
// The configuration is defaulted and validated, and the schedule parsed, before anything
// touches the store. A malformed schedule fails here with the tier error.
//
// Parameters:
//   - cfg: Configuration (defaults applied in place)
//   - store: Backend store (required)
//   - opts: Optional hooks, metrics and logger
//
// Returns:
//   - *Controller: Controller in StateUninitialized
//   - error: ErrStoreRequired, a wrapped ErrInvalidConfig, or a tier error
//
// Example:
//
//	cfg := redists.DefaultConfig()
//	cfg.Model = "p=15s,d=15m|p=2m,d=1h"
//	ctrl, err := redists.NewController(&cfg, store)
//	if errors.Is(err, redists.ErrInvalidTierDefinition) {
//	    log.Fatalf("bad schedule: %v", err)
//	}
func NewController(cfg *Config, store Store, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := &controllerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := logging.OrNop(options.logger)
	cfg.ValidateWithWarnings(logger)

	schedule, err := tier.ParseSchedule(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}

	c := &Controller{
		cfg:         *cfg,
		schedule:    schedule,
		hooks:       hooks.Merge(options.hooks),
		metrics:     options.metrics,
		logger:      logger,
		subscribers: xsync.NewMap[uint64, *stateSubscriber](),
		stateSince:  time.Now(),
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNop()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.state.Store(int32(StateUninitialized))

	c.conn, err = connection.New(cfg.connectionConfig(), store,
		connection.WithLogger(logger),
		connection.WithMetrics(c.metrics),
		connection.WithStateObserver(c.onConnectionStateChanged),
		connection.WithErrorHandler(c.onConnectionError),
	)
	if err != nil {
		return nil, err
	}
	c.conn.AddListener(&reconciler{c: c})

	logger.Info("controller created",
		"schedule", schedule.Canonical(),
		"fingerprint", schedule.Fingerprint(),
		"tiers", len(schedule.TierNames()),
	)

	return c, nil
}

// Start connects to the store and waits for the first reconciliation outcome.
//
// When the store is unreachable the connection keeps retrying in the background until
// Stop, and Start returns once ctx or StartupTimeout expires.
//
// Parameters:
//   - ctx: Bounds the wait
//
// Returns:
//   - error: nil after FirstInit or Refreshed; a *ConflictError (errors.Is ErrScheduleConflict)
//     on conflict; an error wrapping ErrStoreUnavailable on timeout; ErrAlreadyStarted
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	if c.ctx.Err() != nil {
		c.ctx, c.cancel = context.WithCancel(context.Background())
	}
	c.mu.Unlock()

	c.transitionState(c.State(), StateUninitialized)
	c.lastErr.Store(nil)

	updates, unsubscribe := c.SubscribeToStateChanges()
	defer unsubscribe()

	startCtx, cancel := context.WithTimeout(ctx, c.cfg.StartupTimeout)
	defer cancel()

	c.logger.Info("starting controller", "model_key", c.cfg.ModelKey())

	if err := c.conn.Start(startCtx); err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()

		return fmt.Errorf("failed to start connection manager: %w", err)
	}

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return ErrNotStarted
			}
			switch {
			case state.IsReconciled():
				c.logger.Info("controller started", "state", state.String(), "run_id", c.conn.RunID())
				return nil
			case state == StateConflict:
				return c.Err()
			}
		case <-startCtx.Done():
			err := fmt.Errorf("no schedule reconciliation within startup window: %w",
				types.Unavailable("startup", startCtx.Err()))
			c.logger.Warn("controller startup incomplete, retrying in background", "error", err)

			return err
		}
	}
}

// Stop disconnects from the store and moves the controller to StateStopped.
//
// Parameters:
//   - ctx: Bounds shutdown in addition to ShutdownTimeout
//
// Returns:
//   - error: ErrNotStarted if not running, or the connection shutdown error
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.started = false
	c.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(ctx, c.cfg.ShutdownTimeout)
	defer cancel()

	err := c.conn.Stop(stopCtx)
	c.transitionState(c.State(), StateStopped)

	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()

	c.closeSubscribers()
	c.logger.Info("controller stopped")

	return err
}

// Reconcile compares the local schedule with the stored one and records the outcome.
//
// It runs automatically for every new store instance and can be called explicitly, for
// example after ClearSchedule. The stored schedule is never overwritten.
//
// Returns:
//   - State: StateFirstInit, StateRefreshed or StateConflict; StateUninitialized on store errors
//   - error: *ConflictError on conflict, an error wrapping ErrStoreUnavailable on store errors
func (c *Controller) Reconcile(ctx context.Context) (State, error) {
	start := time.Now()
	outcome, err := c.reconcile(ctx)
	c.metrics.RecordReconcile(outcome, time.Since(start).Seconds())

	if err != nil && outcome != StateConflict {
		c.logger.Warn("schedule reconciliation failed", "error", err)
		c.runHook("error", func(ctx context.Context) error { return c.hooks.OnError(ctx, err) })

		return outcome, err
	}

	if outcome == StateConflict {
		c.lastErr.Store(&err)
	} else {
		c.lastErr.Store(nil)
	}
	c.transitionState(c.State(), outcome)

	return outcome, err
}

// ClearSchedule deletes the stored schedule and tier names and returns the controller to
// StateUninitialized. It is never called automatically.
//
// Call Reconcile afterwards to write the local schedule.
//
// Returns:
//   - error: ErrNotStarted, or an error wrapping ErrStoreUnavailable
func (c *Controller) ClearSchedule(ctx context.Context) error {
	sess, err := c.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.conn.Release(sess)

	if err := sess.Delete(ctx, c.cfg.ModelKey(), c.cfg.TierNamesKey()); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", types.Unavailable("delete", err))
	}

	c.logger.Warn("stored schedule cleared", "model_key", c.cfg.ModelKey(), "tier_names_key", c.cfg.TierNamesKey())
	c.lastErr.Store(nil)
	c.transitionState(c.State(), StateUninitialized)

	return nil
}

// State returns the current reconciliation state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Err returns the error of the latest reconciliation outcome: the *ConflictError while in
// StateConflict, nil otherwise.
func (c *Controller) Err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}

	return nil
}

// Schedule returns the local schedule.
func (c *Controller) Schedule() *Schedule {
	return c.schedule
}

// IsConnected reports whether the store connection is established.
func (c *Controller) IsConnected() bool {
	return c.conn.IsConnected()
}

// ConnectionState returns the store connection state.
func (c *Controller) ConnectionState() ConnectionState {
	return c.conn.State()
}

// RunID returns the run id of the connected store instance, or "" when disconnected.
func (c *Controller) RunID() string {
	return c.conn.RunID()
}

// HeartbeatStats returns heartbeat timeout counters and the latest heartbeat seen.
func (c *Controller) HeartbeatStats() HeartbeatStatus {
	return c.conn.HeartbeatStats()
}

// Acquire checks out a store session. Return it with Release.
//
// Returns:
//   - Session: Pooled session
//   - error: ErrNotStarted, or an error wrapping ErrStoreUnavailable
func (c *Controller) Acquire(ctx context.Context) (Session, error) {
	return c.conn.Acquire(ctx)
}

// Release returns a session to the pool. Release(nil) is a no-op.
func (c *Controller) Release(sess Session) {
	c.conn.Release(sess)
}

// AddListener registers a connection listener. OnConnectNewInstance is delivered after the
// controller has reconciled the schedule for the new instance.
//
// Returns:
//   - bool: true if l was not already registered
func (c *Controller) AddListener(l Listener) bool {
	return c.conn.AddListener(l)
}

// RemoveListener unregisters a connection listener.
//
// Returns:
//   - bool: true if l was registered
func (c *Controller) RemoveListener(l Listener) bool {
	return c.conn.RemoveListener(l)
}

// WaitState waits for the controller to reach the expected state within the timeout period.
//
// The method returns a read-only channel that will receive exactly one value:
//   - nil if the expected state is reached within the timeout
//   - context.DeadlineExceeded if the timeout expires before reaching the state
//
// The channel is closed after sending the result, allowing safe use in select statements.
//
// Parameters:
//   - expectedState: The state to wait for
//   - timeout: Maximum duration to wait for the state
//
// Returns:
//   - <-chan error: A channel that receives the result (nil on success, error on timeout)
//
// Example:
//
//	if err := <-ctrl.WaitState(redists.StateRefreshed, 10*time.Second); err != nil {
//	    log.Printf("schedule not reconciled: %v", err)
//	}
func (c *Controller) WaitState(expectedState State, timeout time.Duration) <-chan error {
	ch := make(chan error, 1) // Buffered to prevent goroutine leak

	go func() {
		defer close(ch)

		if c.State() == expectedState {
			ch <- nil
			return
		}

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		timeoutTimer := time.NewTimer(timeout)
		defer timeoutTimer.Stop()

		for {
			select {
			case <-ticker.C:
				if c.State() == expectedState {
					ch <- nil
					return
				}
			case <-timeoutTimer.C:
				ch <- context.DeadlineExceeded
				return
			}
		}
	}()

	return ch
}

// reconcile reads the stored schedule and creates it from the local one when nothing is
// stored. Creation is create-only, so of two controllers racing on an empty store exactly
// one initializes and the other compares against the winner's schedule.
func (c *Controller) reconcile(ctx context.Context) (State, error) {
	sess, err := c.conn.Acquire(ctx)
	if err != nil {
		return StateUninitialized, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer c.conn.Release(sess)

	modelKey := c.cfg.ModelKey()
	namesKey := c.cfg.TierNamesKey()
	names := strings.Join(c.schedule.TierNames(), tierNamesSeparator)

	remote, found, err := sess.Get(ctx, modelKey)
	if err != nil {
		return StateUninitialized, fmt.Errorf("failed to read %s: %w", modelKey, types.Unavailable("get", err))
	}

	if !found {
		created, err := sess.SetIfAbsent(ctx, modelKey, c.schedule.Expression())
		if err != nil {
			return StateUninitialized, fmt.Errorf("failed to write %s: %w", modelKey, types.Unavailable("set", err))
		}

		if created {
			if err := sess.Set(ctx, namesKey, names); err != nil {
				return StateUninitialized, fmt.Errorf("failed to write %s: %w", namesKey, types.Unavailable("set", err))
			}

			c.logger.Info("schedule initialized", "key", modelKey, "schedule", c.schedule.Canonical(), "tiers", names)

			return StateFirstInit, nil
		}

		// Another controller initialized the key between our read and write.
		remote, found, err = sess.Get(ctx, modelKey)
		if err != nil {
			return StateUninitialized, fmt.Errorf("failed to read %s: %w", modelKey, types.Unavailable("get", err))
		}
		if !found {
			return StateUninitialized, fmt.Errorf("stored schedule at %s was removed during reconciliation", modelKey)
		}
		c.logger.Info("schedule initialized concurrently by another controller", "key", modelKey)
	}

	if tier.NormalizeExpression(remote) != c.schedule.Canonical() {
		conflict := &types.ConflictError{Key: modelKey, Local: c.schedule.Expression(), Remote: remote}
		c.logger.Error("schedule conflict, refusing to overwrite stored schedule",
			"key", modelKey,
			"local", c.schedule.Canonical(),
			"remote", tier.NormalizeExpression(remote),
		)
		c.runHook("conflict", func(ctx context.Context) error { return c.hooks.OnConflict(ctx, conflict) })

		return StateConflict, conflict
	}

	storedNames, ok, err := sess.Get(ctx, namesKey)
	switch {
	case err != nil:
		c.logger.Debug("failed to read tier names", "key", namesKey, "error", err)
	case !ok:
		c.logger.Warn("tier names missing for stored schedule", "key", namesKey, "expected", names)
	case storedNames != names:
		c.logger.Warn("stored tier names differ from schedule", "key", namesKey, "stored", storedNames, "expected", names)
	}

	c.logger.Info("schedule refreshed", "key", modelKey, "schedule", c.schedule.Canonical())

	return StateRefreshed, nil
}

// transitionState transitions to a new state and triggers hooks.
func (c *Controller) transitionState(from, to State) {
	c.stateMu.Lock()

	current := c.State()
	if current != from || from == to {
		c.stateMu.Unlock()
		return
	}

	if !c.isValidTransition(from, to) {
		c.stateMu.Unlock()
		c.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
		)

		return
	}

	c.state.Store(int32(to)) //nolint:gosec // State values are controlled enum
	elapsed := time.Since(c.stateSince)
	c.stateSince = time.Now()
	c.notifySubscribers(to)
	c.stateMu.Unlock()

	c.logger.Info("state transition",
		"from", from.String(),
		"to", to.String(),
		"run_id", c.conn.RunID(),
	)

	c.runHook("state change", func(ctx context.Context) error { return c.hooks.OnStateChanged(ctx, from, to) })

	// Record metrics (always non-nil, defaults to nopMetrics)
	c.metrics.RecordStateTransition(from, to, elapsed.Seconds())
}

// isValidTransition validates that a state transition is allowed.
//
// Returns:
//   - bool: true if transition is valid, false otherwise
func (c *Controller) isValidTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateUninitialized: {StateFirstInit, StateRefreshed, StateConflict, StateStopped},
		StateFirstInit:     {StateUninitialized, StateRefreshed, StateConflict, StateStopped},
		StateRefreshed:     {StateUninitialized, StateFirstInit, StateConflict, StateStopped},
		StateConflict:      {StateUninitialized, StateFirstInit, StateRefreshed, StateStopped},
		StateStopped:       {StateUninitialized}, // Restart only
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}

	return false
}

// runHook runs a hook in the background to avoid blocking reconciliation or dispatch.
func (c *Controller) runHook(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	go func() {
		if err := fn(ctx); err != nil {
			c.logger.Error("hook error", "hook", name, "error", err)
		}
	}()
}

func (c *Controller) onConnectionStateChanged(from, to ConnectionState) {
	c.runHook("connection state change", func(ctx context.Context) error {
		return c.hooks.OnConnectionStateChanged(ctx, from, to)
	})
}

func (c *Controller) onConnectionError(err error) {
	c.lastErr.Store(&err)
	c.runHook("error", func(ctx context.Context) error { return c.hooks.OnError(ctx, err) })
}

// reconciler is the controller's connection listener.
type reconciler struct {
	c *Controller
}

var _ types.Listener = (*reconciler)(nil)

// OnConnectNewInstance restarts reconciliation for the new instance.
func (r *reconciler) OnConnectNewInstance(ctx context.Context, runID string) {
	r.c.logger.Info("new store instance", "run_id", runID)
	r.c.transitionState(r.c.State(), StateUninitialized)

	if _, err := r.c.Reconcile(ctx); err != nil && !errors.Is(err, ErrScheduleConflict) {
		r.c.logger.Warn("reconciliation deferred until next connection", "run_id", runID, "error", err)
	}
}

// OnConnect reconciles only if the current instance was never reconciled.
func (r *reconciler) OnConnect(ctx context.Context, runID string) {
	if r.c.State() != StateUninitialized {
		return
	}

	r.c.logger.Info("retrying reconciliation after reconnect", "run_id", runID)
	_, _ = r.c.Reconcile(ctx)
}

// OnDisconnect logs the connection loss.
func (r *reconciler) OnDisconnect(_ context.Context, cause error) {
	r.c.logger.Warn("store disconnected", "cause", cause)
}

// OnHeartbeatFailed logs the heartbeat failure.
func (r *reconciler) OnHeartbeatFailed(_ context.Context, status types.HeartbeatStatus) {
	r.c.logger.Debug("heartbeat check failed",
		"consecutive", status.ConsecutiveTimeouts,
		"total", status.TotalTimeouts,
	)
}
