package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nickman/redis-ts/internal/logging"
	"github.com/nickman/redis-ts/types"
)

// Common errors for heartbeat operations.
var (
	ErrNotStarted     = errors.New("heartbeat task not started")
	ErrAlreadyStarted = errors.New("heartbeat task already started")
	ErrNoChannel      = errors.New("heartbeat channel not set")
)

// Sender publishes a payload on a channel. types.Store satisfies it.
type Sender interface {
	Publish(ctx context.Context, channel, payload string) error
}

// Publisher publishes the current time on the heartbeat channel at a fixed interval.
//
// Publish failures are logged and counted; the next tick tries again.
type Publisher struct {
	sender   Sender
	channel  string
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   types.Logger
	metrics  types.HeartbeatMetrics

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	ticker  *time.Ticker
}

// NewPublisher creates a heartbeat publisher.
//
// Parameters:
//   - sender: Destination for heartbeat messages
//   - channel: Heartbeat channel name (e.g. "redis-ts.heartbeat")
//   - interval: Publish interval
//
// Returns:
//   - *Publisher: New publisher; call Start to begin publishing
func NewPublisher(sender Sender, channel string, interval time.Duration) *Publisher {
	return &Publisher{
		sender:   sender,
		channel:  channel,
		interval: interval,
		timeout:  interval,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
}

// SetLogger sets the logger used for publish failures.
func (p *Publisher) SetLogger(logger types.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = logging.OrNop(logger)
}

// SetMetrics sets the metrics collector for publish outcomes. Optional.
func (p *Publisher) SetMetrics(metrics types.HeartbeatMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics = metrics
}

// Start publishes one heartbeat immediately and then one per interval until Stop is called
// or ctx is cancelled.
//
// Parameters:
//   - ctx: Lifecycle context; cancellation stops the publisher
//
// Returns:
//   - error: ErrAlreadyStarted if running, ErrNoChannel if the channel is empty
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if p.channel == "" {
		return ErrNoChannel
	}

	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)

	go p.publishLoop(ctx, p.ticker, p.stopCh, p.doneCh)

	return nil
}

// Stop stops publishing and waits for the background goroutine to exit.
//
// Returns:
//   - error: ErrNotStarted if not running
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh

	return nil
}

// IsStarted reports whether the publisher is running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

// Channel returns the heartbeat channel name.
func (p *Publisher) Channel() string {
	return p.channel
}

func (p *Publisher) publishLoop(ctx context.Context, ticker *time.Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	p.publishOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.publish(pubCtx)
	cancel()

	p.mu.Lock()
	logger, metrics := p.logger, p.metrics
	p.mu.Unlock()

	if metrics != nil {
		metrics.RecordHeartbeat(err == nil)
	}
	if err != nil && ctx.Err() == nil {
		logger.Warn("heartbeat publish failed", "channel", p.channel, "error", err)
	}
}

// publish sends the current time as decimal milliseconds.
func (p *Publisher) publish(ctx context.Context) error {
	payload := FormatTimestamp(p.now())
	if err := p.sender.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("failed to publish heartbeat on %s: %w", p.channel, err)
	}

	return nil
}

// FormatTimestamp renders t as decimal milliseconds since the Unix epoch.
func FormatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseTimestamp parses a heartbeat payload produced by FormatTimestamp.
func ParseTimestamp(payload string) (time.Time, error) {
	millis, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed heartbeat payload %q: %w", payload, err)
	}

	return time.UnixMilli(millis), nil
}
