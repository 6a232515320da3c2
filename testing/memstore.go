package testing

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nickman/redis-ts/types"
)

// MemStore is an in-memory types.Store for tests.
//
// It supports availability toggling (simulated outages that also drop subscriptions),
// instance restarts with a new run id, dropping published messages to starve heartbeats,
// and counts writes so tests can assert that nothing was written.
type MemStore struct {
	mu        sync.Mutex
	data      map[string]string
	runID     string
	available bool
	dropPub   bool
	subs      map[string]map[*memSubscription]struct{}
	pool      chan struct{}

	connects atomic.Int64
	writes   atomic.Int64
	deletes  atomic.Int64
	closes   atomic.Int64
}

var _ types.Store = (*MemStore)(nil)

// NewMemStore creates an available store with a random run id and a pool of 5 sessions.
func NewMemStore() *MemStore {
	return NewMemStoreWithPool(5)
}

// NewMemStoreWithPool creates an available store with the given session pool size.
func NewMemStoreWithPool(size int) *MemStore {
	if size <= 0 {
		size = 1
	}

	return &MemStore{
		data:      make(map[string]string),
		runID:     uuid.NewString(),
		available: true,
		subs:      make(map[string]map[*memSubscription]struct{}),
		pool:      make(chan struct{}, size),
	}
}

// Connect implements types.Store.
func (s *MemStore) Connect(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", types.Unavailable("connect", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return "", types.Unavailable("connect", nil)
	}
	s.connects.Add(1)

	return s.runID, nil
}

// Ping implements types.Store.
func (s *MemStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return types.Unavailable("ping", err)
	}
	if !s.IsAvailable() {
		return types.Unavailable("ping", nil)
	}

	return nil
}

// Acquire implements types.Store. It blocks while all sessions are checked out.
func (s *MemStore) Acquire(ctx context.Context) (types.Session, error) {
	if !s.IsAvailable() {
		return nil, types.Unavailable("acquire", nil)
	}

	select {
	case s.pool <- struct{}{}:
		return &memSession{store: s}, nil
	case <-ctx.Done():
		return nil, types.Unavailable("acquire", ctx.Err())
	}
}

// Publish implements types.Store. Messages are dropped for slow subscribers.
func (s *MemStore) Publish(ctx context.Context, channel, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return types.Unavailable("publish", nil)
	}
	if s.dropPub {
		return nil
	}

	for sub := range s.subs[channel] {
		select {
		case sub.msgs <- payload:
		default:
		}
	}

	return nil
}

// Subscribe implements types.Store.
func (s *MemStore) Subscribe(ctx context.Context, channel string, handler func(payload string)) (types.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable("subscribe", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return nil, types.Unavailable("subscribe", nil)
	}

	sub := &memSubscription{
		store:   s,
		channel: channel,
		msgs:    make(chan string, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[*memSubscription]struct{})
	}
	s.subs[channel][sub] = struct{}{}

	go sub.run(handler)

	return sub, nil
}

// Close implements types.Store. It drops all subscriptions.
func (s *MemStore) Close() error {
	s.closes.Add(1)
	s.dropSubscriptions()

	return nil
}

// SetAvailable simulates an outage (false) or recovery (true). An outage drops all subscriptions.
func (s *MemStore) SetAvailable(available bool) {
	s.mu.Lock()
	s.available = available
	s.mu.Unlock()

	if !available {
		s.dropSubscriptions()
	}
}

// IsAvailable reports whether the store currently accepts operations.
func (s *MemStore) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.available
}

// SetDropPublishes makes Publish silently discard messages, starving heartbeat receivers
// without breaking the connection.
func (s *MemStore) SetDropPublishes(drop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropPub = drop
}

// Restart simulates a restart of the store process: a new run id and dropped subscriptions.
// Data is kept, as with a persistent store.
func (s *MemStore) Restart() string {
	s.mu.Lock()
	s.runID = uuid.NewString()
	id := s.runID
	s.mu.Unlock()

	s.dropSubscriptions()

	return id
}

// RunID returns the current run id.
func (s *MemStore) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runID
}

// Put seeds a value without counting it as a write.
func (s *MemStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

// Value returns the stored value of key.
func (s *MemStore) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]

	return v, ok
}

// Writes returns the number of values written through Session.Set and Session.SetIfAbsent.
func (s *MemStore) Writes() int64 { return s.writes.Load() }

// Deletes returns the number of keys removed through Session.Delete.
func (s *MemStore) Deletes() int64 { return s.deletes.Load() }

// Connects returns the number of successful Connect calls.
func (s *MemStore) Connects() int64 { return s.connects.Load() }

// Closes returns the number of Close calls.
func (s *MemStore) Closes() int64 { return s.closes.Load() }

// InUse returns the number of sessions currently checked out.
func (s *MemStore) InUse() int { return len(s.pool) }

// Subscribers returns the number of live subscriptions on channel.
func (s *MemStore) Subscribers(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs[channel])
}

func (s *MemStore) dropSubscriptions() {
	s.mu.Lock()
	var all []*memSubscription
	for _, set := range s.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	s.subs = make(map[string]map[*memSubscription]struct{})
	s.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
}

func (s *MemStore) removeSubscription(sub *memSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set := s.subs[sub.channel]; set != nil {
		delete(set, sub)
	}
}

type memSession struct {
	store  *MemStore
	closed atomic.Bool
}

func (m *memSession) check(ctx context.Context, op string) error {
	if m.closed.Load() {
		return types.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return types.Unavailable(op, err)
	}
	if !m.store.IsAvailable() {
		return types.Unavailable(op, nil)
	}

	return nil
}

func (m *memSession) Get(ctx context.Context, key string) (string, bool, error) {
	if err := m.check(ctx, "get"); err != nil {
		return "", false, err
	}
	v, ok := m.store.Value(key)

	return v, ok, nil
}

func (m *memSession) Set(ctx context.Context, key, value string) error {
	if err := m.check(ctx, "set"); err != nil {
		return err
	}
	m.store.writes.Add(1)
	m.store.Put(key, value)

	return nil
}

func (m *memSession) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := m.check(ctx, "setnx"); err != nil {
		return false, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if _, ok := m.store.data[key]; ok {
		return false, nil
	}
	m.store.data[key] = value
	m.store.writes.Add(1)

	return true, nil
}

func (m *memSession) Delete(ctx context.Context, keys ...string) error {
	if err := m.check(ctx, "delete"); err != nil {
		return err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, k := range keys {
		if _, ok := m.store.data[k]; ok {
			delete(m.store.data, k)
			m.store.deletes.Add(1)
		}
	}

	return nil
}

func (m *memSession) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		<-m.store.pool
	}

	return nil
}

type memSubscription struct {
	store   *MemStore
	channel string
	msgs    chan string
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (m *memSubscription) run(handler func(string)) {
	defer close(m.done)

	for {
		select {
		case <-m.stop:
			return
		case payload := <-m.msgs:
			handler(payload)
		}
	}
}

func (m *memSubscription) close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *memSubscription) Unsubscribe() error {
	m.store.removeSubscription(m)
	m.close()

	return nil
}

func (m *memSubscription) Done() <-chan struct{} {
	return m.done
}
