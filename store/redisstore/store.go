// Package redisstore implements types.Store on top of go-redis.
//
// Control-plane keys are plain strings (GET/SET/DEL), heartbeats travel over PUBLISH and
// SUBSCRIBE, and the instance identity is the run_id field of INFO server, which changes
// every time the Redis process restarts.
//
// Example:
//
//	store, err := redisstore.New(redisstore.Config{Host: "redis", Port: 6379})
//	if err != nil {
//	    return err
//	}
//	ctrl, err := redists.NewController(&cfg, store)
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/nickman/redis-ts/internal/logging"
	"github.com/nickman/redis-ts/types"
)

// Store is a Redis-backed types.Store.
//
// The go-redis client is created lazily and released by Close; the next call that needs it
// creates a fresh one, so a Store can be reconnected after Close.
type Store struct {
	cfg    Config
	name   string
	logger types.Logger

	mu  sync.Mutex
	rdb *redis.Client
}

var _ types.Store = (*Store)(nil)

// New creates a Redis store. No connection is made until the first operation.
//
// Parameters:
//   - cfg: Store configuration (defaults applied to zero fields)
//   - opts: Optional configuration (logger)
//
// Returns:
//   - *Store: Store ready for Connect
//   - error: Error wrapping types.ErrInvalidConfig if cfg is invalid
func New(cfg Config, opts ...Option) (*Store, error) {
	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	options := &storeOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(options)
	}

	name := cfg.ClientName
	if name == "" {
		name = "redis-ts-" + uuid.NewString()
	}

	return &Store{
		cfg:    cfg,
		name:   name,
		logger: options.logger,
	}, nil
}

// ClientName returns the name registered with CLIENT SETNAME.
func (s *Store) ClientName() string {
	return s.name
}

// Connect implements types.Store.
//
// It pings the server and reads run_id from INFO server. A server that does not report
// run_id yields an error matching types.ErrRunIDUnavailable.
func (s *Store) Connect(ctx context.Context) (string, error) {
	rdb := s.client()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return "", classify("connect", err)
	}

	info, err := s.Info(ctx, "server")
	if err != nil {
		if errors.Is(err, types.ErrStoreUnavailable) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", types.ErrRunIDUnavailable, err)
	}

	runID := info[RunIDField]
	if runID == "" {
		return "", fmt.Errorf("%w: INFO server has no %s field", types.ErrRunIDUnavailable, RunIDField)
	}

	s.logger.Info("connected to redis",
		"addr", s.cfg.Addr(),
		"runID", runID,
		"version", info["redis_version"],
		"clientName", s.name,
	)

	return runID, nil
}

// Info returns the parsed INFO reply for the given sections (all default sections when empty).
//
// Parameters:
//   - ctx: Context for cancellation
//   - sections: INFO sections, e.g. "server", "clients"
//
// Returns:
//   - map[string]string: Field name to value
//   - error: Connectivity errors match types.ErrStoreUnavailable
func (s *Store) Info(ctx context.Context, sections ...string) (map[string]string, error) {
	text, err := s.client().Info(ctx, sections...).Result()
	if err != nil {
		return nil, classify("info", err)
	}

	return ParseInfo(text), nil
}

// Ping implements types.Store.
func (s *Store) Ping(ctx context.Context) error {
	return classify("ping", s.client().Ping(ctx).Err())
}

// Acquire implements types.Store.
//
// The session pins one pooled connection until it is closed. Acquire waits up to
// Pool.Timeout (or ctx) for a free connection.
func (s *Store) Acquire(ctx context.Context) (types.Session, error) {
	conn := s.client().Conn(ctx)

	// Conn checks out lazily; the ping takes the connection from the pool now.
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, classify("acquire", err)
	}

	return &session{conn: conn}, nil
}

// Publish implements types.Store.
func (s *Store) Publish(ctx context.Context, channel, payload string) error {
	return classify("publish", s.client().Publish(ctx, channel, payload).Err())
}

// Subscribe implements types.Store.
//
// Subscribe returns once Redis has confirmed the subscription. go-redis re-subscribes by
// itself after a dropped connection, so Done closes only after Unsubscribe or Close.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(payload string)) (types.Subscription, error) {
	ps := s.client().Subscribe(ctx, channel)

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, classify("subscribe", err)
	}

	sub := &subscription{
		ps:   ps,
		done: make(chan struct{}),
	}
	go sub.run(ps.Channel(), handler)

	return sub, nil
}

// Close implements types.Store. It closes the client and every pooled connection.
func (s *Store) Close() error {
	s.mu.Lock()
	rdb := s.rdb
	s.rdb = nil
	s.mu.Unlock()

	if rdb == nil {
		return nil
	}

	return rdb.Close()
}

func (s *Store) client() *redis.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rdb == nil {
		s.rdb = redis.NewClient(s.options())
	}

	return s.rdb
}

func (s *Store) options() *redis.Options {
	return &redis.Options{
		Addr:         s.cfg.Addr(),
		Username:     s.cfg.Username,
		Password:     s.cfg.Password,
		DB:           s.cfg.DB,
		PoolSize:     s.cfg.Pool.Size,
		MinIdleConns: s.cfg.Pool.MinIdle,
		PoolTimeout:  s.cfg.Pool.Timeout,
		IdleTimeout:  s.cfg.Pool.IdleTimeout,
		DialTimeout:  s.cfg.Pool.DialTimeout,
		ReadTimeout:  s.cfg.Pool.ReadTimeout,
		WriteTimeout: s.cfg.Pool.WriteTimeout,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			if err := cn.ClientSetName(ctx, s.name).Err(); err != nil {
				s.logger.Debug("CLIENT SETNAME rejected", "name", s.name, "error", err)
			}

			return nil
		},
	}
}

// classify wraps everything except Redis error replies as types.ErrStoreUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var reply redis.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return types.Unavailable(op, err)
}

type session struct {
	conn   *redis.Conn
	closed atomic.Bool
}

func (s *session) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, types.ErrSessionClosed
	}

	value, err := s.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get", err)
	}

	return value, true, nil
}

func (s *session) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return types.ErrSessionClosed
	}

	return classify("set", s.conn.Set(ctx, key, value, 0).Err())
}

// SetIfAbsent implements types.Session with SETNX.
func (s *session) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if s.closed.Load() {
		return false, types.ErrSessionClosed
	}

	created, err := s.conn.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, classify("setnx", err)
	}

	return created, nil
}

func (s *session) Delete(ctx context.Context, keys ...string) error {
	if s.closed.Load() {
		return types.ErrSessionClosed
	}
	if len(keys) == 0 {
		return nil
	}

	return classify("delete", s.conn.Del(ctx, keys...).Err())
}

func (s *session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.conn.Close()
}

type subscription struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
}

func (sub *subscription) run(msgs <-chan *redis.Message, handler func(string)) {
	defer close(sub.done)

	for msg := range msgs {
		handler(msg.Payload)
	}
}

func (sub *subscription) Unsubscribe() error {
	var err error
	sub.once.Do(func() {
		err = sub.ps.Close()
	})

	return err
}

func (sub *subscription) Done() <-chan struct{} {
	return sub.done
}
