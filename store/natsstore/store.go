// Package natsstore implements types.Store on NATS.
//
// Control-plane keys live in a JetStream KV bucket, heartbeats use core NATS publish and
// subscribe on the heartbeat channel as subject, and the instance identity is the id of the
// server the client is connected to. A restarted or failed-over server reports a new id,
// which the controller treats like a restarted Redis instance.
//
// The *nats.Conn is owned by the caller. Close releases the bucket handle but leaves the
// connection open.
package natsstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/semaphore"

	"github.com/nickman/redis-ts/internal/kvutil"
	"github.com/nickman/redis-ts/internal/logging"
	"github.com/nickman/redis-ts/internal/natsutil"
	"github.com/nickman/redis-ts/types"
)

// Store is a NATS-backed types.Store.
type Store struct {
	nc     *nats.Conn
	cfg    Config
	logger types.Logger
	pool   *semaphore.Weighted

	mu sync.RWMutex
	kv jetstream.KeyValue
}

var _ types.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for connection events.
func WithLogger(logger types.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a NATS store on an existing connection.
//
// Parameters:
//   - nc: NATS connection (JetStream must be enabled on the server)
//   - cfg: Store configuration (defaults applied to zero fields)
//   - opts: Optional configuration (logger)
//
// Returns:
//   - *Store: Store ready for Connect
//   - error: Error wrapping types.ErrInvalidConfig for a nil connection or invalid config
func New(nc *nats.Conn, cfg Config, opts ...Option) (*Store, error) {
	if nc == nil {
		return nil, fmt.Errorf("%w: nats connection is required", types.ErrInvalidConfig)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	s := &Store{
		nc:     nc,
		cfg:    cfg,
		logger: logging.NewNop(),
		pool:   semaphore.NewWeighted(int64(cfg.PoolSize)),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Connect implements types.Store. It opens (or creates) the KV bucket.
func (s *Store) Connect(ctx context.Context) (string, error) {
	if err := s.checkConnected("connect"); err != nil {
		return "", err
	}
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return "", natsutil.Classify("connect", err)
	}

	js, err := jetstream.New(s.nc)
	if err != nil {
		return "", fmt.Errorf("failed to create JetStream context: %w", err)
	}

	storage, _ := s.cfg.storageType()
	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      s.cfg.Bucket,
		Description: "redis-ts control-plane configuration",
		History:     1,
		Storage:     storage,
		Replicas:    s.cfg.Replicas,
	}, s.cfg.BucketRetries)
	if err != nil {
		return "", natsutil.Classify("connect", err)
	}

	runID := s.nc.ConnectedServerId()
	if runID == "" {
		return "", fmt.Errorf("%w: server id not reported", types.ErrRunIDUnavailable)
	}

	s.mu.Lock()
	s.kv = kv
	s.mu.Unlock()

	s.logger.Info("connected to nats",
		"url", s.nc.ConnectedUrlRedacted(),
		"serverID", runID,
		"serverName", s.nc.ConnectedServerName(),
		"bucket", s.cfg.Bucket,
	)

	return runID, nil
}

// Ping implements types.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkConnected("ping"); err != nil {
		return err
	}

	return natsutil.Classify("ping", s.nc.FlushWithContext(ctx))
}

// Acquire implements types.Store. It blocks while PoolSize sessions are checked out.
func (s *Store) Acquire(ctx context.Context) (types.Session, error) {
	s.mu.RLock()
	kv := s.kv
	s.mu.RUnlock()

	if kv == nil {
		return nil, types.Unavailable("acquire", errors.New("bucket not open, call Connect first"))
	}
	if err := s.checkConnected("acquire"); err != nil {
		return nil, err
	}

	if err := s.pool.Acquire(ctx, 1); err != nil {
		return nil, types.Unavailable("acquire", err)
	}

	return &session{kv: kv, release: func() { s.pool.Release(1) }}, nil
}

// Publish implements types.Store.
func (s *Store) Publish(ctx context.Context, channel, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return natsutil.Classify("publish", s.nc.Publish(channel, []byte(payload)))
}

// Subscribe implements types.Store.
//
// Done closes when the client loses its server connection, even though the NATS client
// would restore the subscription after reconnecting.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(payload string)) (types.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable("subscribe", err)
	}
	if err := s.checkConnected("subscribe"); err != nil {
		return nil, err
	}

	status := s.nc.StatusChanged(nats.DISCONNECTED, nats.RECONNECTING, nats.CLOSED)

	ns, err := s.nc.Subscribe(channel, func(msg *nats.Msg) {
		handler(string(msg.Data))
	})
	if err != nil {
		s.nc.RemoveStatusListener(status)
		return nil, natsutil.Classify("subscribe", err)
	}

	sub := &subscription{
		nc:   s.nc,
		ns:   ns,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go sub.watch(status)

	return sub, nil
}

// Close implements types.Store. The NATS connection stays open.
func (s *Store) Close() error {
	s.mu.Lock()
	s.kv = nil
	s.mu.Unlock()

	return nil
}

func (s *Store) checkConnected(op string) error {
	switch {
	case s.nc.IsClosed():
		return types.Unavailable(op, nats.ErrConnectionClosed)
	case !s.nc.IsConnected():
		return types.Unavailable(op, nats.ErrDisconnected)
	default:
		return nil
	}
}

type session struct {
	kv      jetstream.KeyValue
	release func()
	closed  atomic.Bool
}

func (s *session) check() error {
	if s.closed.Load() {
		return types.ErrSessionClosed
	}

	return nil
}

func (s *session) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.check(); err != nil {
		return "", false, err
	}

	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return "", false, nil
	}
	if err != nil {
		return "", false, natsutil.Classify("get", err)
	}

	return string(entry.Value()), true, nil
}

func (s *session) Set(ctx context.Context, key, value string) error {
	if err := s.check(); err != nil {
		return err
	}

	_, err := s.kv.PutString(ctx, key, value)

	return natsutil.Classify("set", err)
}

// SetIfAbsent implements types.Session. A key whose last revision is a delete marker counts
// as absent.
func (s *session) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}

	_, err := s.kv.Create(ctx, key, []byte(value))
	if errors.Is(err, jetstream.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, natsutil.Classify("create", err)
	}

	return true, nil
}

func (s *session) Delete(ctx context.Context, keys ...string) error {
	if err := s.check(); err != nil {
		return err
	}

	for _, key := range keys {
		err := s.kv.Delete(ctx, key)
		if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return natsutil.Classify("delete", err)
		}
	}

	return nil
}

func (s *session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.release()
	}

	return nil
}

type subscription struct {
	nc       *nats.Conn
	ns       *nats.Subscription
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (sub *subscription) watch(status chan nats.Status) {
	defer close(sub.done)
	defer sub.nc.RemoveStatusListener(status)

	select {
	case <-sub.stop:
	case <-status:
		_ = sub.ns.Unsubscribe()
	}
}

func (sub *subscription) Unsubscribe() error {
	var err error
	sub.stopOnce.Do(func() {
		err = sub.ns.Unsubscribe()
		close(sub.stop)
	})

	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return nil
	}

	return err
}

func (sub *subscription) Done() <-chan struct{} {
	return sub.done
}
