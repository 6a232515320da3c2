package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nickman/redis-ts/types"
)

// LastSeener reports the latest heartbeat timestamp. *Receiver satisfies it.
type LastSeener interface {
	LastSeen() (time.Time, bool)
}

// Monitor checks heartbeat freshness at a fixed period.
//
// Every tick where the latest heartbeat is older than the maximum elapsed time increments
// both the total and the consecutive counters and fires onTimeout exactly once. A fresh
// tick resets the consecutive counter only. The total counter survives Stop/Start.
type Monitor struct {
	source     LastSeener
	period     time.Duration
	maxElapsed time.Duration
	onTimeout  func(types.HeartbeatStatus)
	now        func() time.Time

	total       atomic.Int64
	consecutive atomic.Int64
	startedAt   atomic.Int64

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a heartbeat monitor.
//
// Parameters:
//   - source: Provides the latest heartbeat timestamp
//   - period: Check period
//   - maxElapsed: Maximum tolerated age of the latest heartbeat
//   - onTimeout: Called once per stale tick; may be nil
//
// Returns:
//   - *Monitor: New monitor; call Start to begin checking
func NewMonitor(source LastSeener, period, maxElapsed time.Duration, onTimeout func(types.HeartbeatStatus)) *Monitor {
	return &Monitor{
		source:     source,
		period:     period,
		maxElapsed: maxElapsed,
		onTimeout:  onTimeout,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Intended for tests; call before Start.
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Start begins periodic checks. Until a heartbeat is seen, age is measured from Start.
//
// Returns:
//   - error: ErrAlreadyStarted if running
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	m.started = true
	m.consecutive.Store(0)
	m.startedAt.Store(m.now().UnixMilli())
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.checkLoop(ctx, m.stopCh, m.doneCh)

	return nil
}

// Stop stops checking and waits for the background goroutine to exit.
//
// Returns:
//   - error: ErrNotStarted if not running
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}

	close(m.stopCh)
	m.started = false
	doneCh := m.doneCh
	m.mu.Unlock()

	<-doneCh

	return nil
}

// IsStarted reports whether the monitor is running.
func (m *Monitor) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.started
}

// Check evaluates freshness at now and updates the counters.
//
// Returns:
//   - types.HeartbeatStatus: Counters after the check
//   - bool: true if the heartbeat is stale
func (m *Monitor) Check(now time.Time) (types.HeartbeatStatus, bool) {
	ref := time.UnixMilli(m.startedAt.Load())
	lastSeen, seen := m.source.LastSeen()
	if seen && lastSeen.After(ref) {
		ref = lastSeen
	}
	elapsed := now.Sub(ref)

	stale := elapsed > m.maxElapsed
	if stale {
		m.total.Add(1)
		m.consecutive.Add(1)
	} else {
		m.consecutive.Store(0)
	}

	status := types.HeartbeatStatus{
		TotalTimeouts:       m.total.Load(),
		ConsecutiveTimeouts: m.consecutive.Load(),
		Elapsed:             elapsed,
	}
	if seen {
		status.LastSeen = lastSeen
	}

	return status, stale
}

// Status returns the current counters without performing a check.
func (m *Monitor) Status() types.HeartbeatStatus {
	status := types.HeartbeatStatus{
		TotalTimeouts:       m.total.Load(),
		ConsecutiveTimeouts: m.consecutive.Load(),
	}
	if lastSeen, ok := m.source.LastSeen(); ok {
		status.LastSeen = lastSeen
		status.Elapsed = m.now().Sub(lastSeen)
	}

	return status
}

func (m *Monitor) checkLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, stale := m.Check(m.now())
			if stale && m.onTimeout != nil {
				m.onTimeout(status)
			}
		}
	}
}
