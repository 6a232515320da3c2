package natsstore

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	rtstest "github.com/nickman/redis-ts/testing"
	"github.com/nickman/redis-ts/types"
)

func newTestStore(t *testing.T, nc *nats.Conn, mutate ...func(*Config)) *Store {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Storage = "memory"
	for _, m := range mutate {
		m(&cfg)
	}

	store, err := New(nc, cfg, WithLogger(rtstest.NewTestLogger(t)))
	require.NoError(t, err)

	return store
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestNew(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	_, nc := rtstest.StartEmbeddedNATS(t)
	_, err = New(nc, Config{Storage: "tape"})
	require.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestStore_ConnectReportsServerID(t *testing.T) {
	ns, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)
	ctx := testContext(t)

	runID, err := store.Connect(ctx)
	require.NoError(t, err)
	require.Equal(t, ns.ID(), runID)

	// Connecting again opens the existing bucket and reports the same instance.
	again, err := store.Connect(ctx)
	require.NoError(t, err)
	require.Equal(t, runID, again)

	require.NoError(t, store.Ping(ctx))
}

func TestStore_AcquireBeforeConnect(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)

	_, err := store.Acquire(testContext(t))
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func TestStore_Session(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)
	ctx := testContext(t)

	_, err := store.Connect(ctx)
	require.NoError(t, err)

	sess, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer sess.Close()

	_, ok, err := sess.Get(ctx, "redis-ts.config.model")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, sess.Set(ctx, "redis-ts.config.model", "p=15s,d=15m|p=2m,d=1h"))
	require.NoError(t, sess.Set(ctx, "redis-ts.config.tier-names", "tier0,tier1"))

	value, ok, err := sess.Get(ctx, "redis-ts.config.model")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p=15s,d=15m|p=2m,d=1h", value)

	require.NoError(t, sess.Delete(ctx, "redis-ts.config.model", "redis-ts.config.tier-names", "never-set"))

	_, ok, err = sess.Get(ctx, "redis-ts.config.model")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = sess.Get(ctx, "redis-ts.config.tier-names")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_SessionSetIfAbsent(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)
	ctx := testContext(t)

	_, err := store.Connect(ctx)
	require.NoError(t, err)

	sess, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer sess.Close()

	created, err := sess.SetIfAbsent(ctx, "redis-ts.config.model", "p=15s,d=15m")
	require.NoError(t, err)
	require.True(t, created)

	created, err = sess.SetIfAbsent(ctx, "redis-ts.config.model", "p=1m,d=1h")
	require.NoError(t, err)
	require.False(t, created)

	value, _, err := sess.Get(ctx, "redis-ts.config.model")
	require.NoError(t, err)
	require.Equal(t, "p=15s,d=15m", value)

	// A deleted key can be created again.
	require.NoError(t, sess.Delete(ctx, "redis-ts.config.model"))
	created, err = sess.SetIfAbsent(ctx, "redis-ts.config.model", "p=1m,d=1h")
	require.NoError(t, err)
	require.True(t, created)

	value, _, err = sess.Get(ctx, "redis-ts.config.model")
	require.NoError(t, err)
	require.Equal(t, "p=1m,d=1h", value)
}

func TestStore_SessionClose(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc, func(cfg *Config) { cfg.PoolSize = 1 })
	ctx := testContext(t)

	_, err := store.Connect(ctx)
	require.NoError(t, err)

	sess, err := store.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	_, _, err = sess.Get(ctx, "k")
	require.ErrorIs(t, err, types.ErrSessionClosed)
	require.ErrorIs(t, sess.Set(ctx, "k", "v"), types.ErrSessionClosed)
	require.ErrorIs(t, sess.Delete(ctx, "k"), types.ErrSessionClosed)
	_, err = sess.SetIfAbsent(ctx, "k", "v")
	require.ErrorIs(t, err, types.ErrSessionClosed)

	// Double close released the slot only once, so exactly one session fits.
	first, err := store.Acquire(ctx)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = store.Acquire(short)
	require.ErrorIs(t, err, types.ErrStoreUnavailable)

	require.NoError(t, first.Close())
}

func TestStore_PoolBound(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc, func(cfg *Config) { cfg.PoolSize = 2 })
	ctx := testContext(t)

	_, err := store.Connect(ctx)
	require.NoError(t, err)

	a, err := store.Acquire(ctx)
	require.NoError(t, err)
	b, err := store.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan types.Session, 1)
	go func() {
		sess, err := store.Acquire(ctx)
		if err == nil {
			acquired <- sess
		}
	}()

	select {
	case <-acquired:
		t.Fatal("third session acquired while the pool was full")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, a.Close())

	select {
	case sess := <-acquired:
		require.NoError(t, sess.Close())
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Acquire was not unblocked by Close")
	}

	require.NoError(t, b.Close())
}

func TestStore_PublishSubscribe(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)
	ctx := testContext(t)

	received := make(chan string, 4)
	sub, err := store.Subscribe(ctx, "redis-ts.heartbeat", func(payload string) {
		received <- payload
	})
	require.NoError(t, err)

	require.NoError(t, nc.Flush())
	require.NoError(t, store.Publish(ctx, "redis-ts.heartbeat", "1760000000000"))

	select {
	case payload := <-received:
		require.Equal(t, "1760000000000", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat not delivered")
	}

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after Unsubscribe")
	}
}

func TestStore_ServerShutdown(t *testing.T) {
	ns, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)
	ctx := testContext(t)

	_, err := store.Connect(ctx)
	require.NoError(t, err)

	sub, err := store.Subscribe(ctx, "redis-ts.heartbeat", func(string) {})
	require.NoError(t, err)

	ns.Shutdown()

	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription not closed after the server went away")
	}

	require.ErrorIs(t, store.Ping(ctx), types.ErrStoreUnavailable)

	_, err = store.Connect(ctx)
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func TestStore_CloseReleasesBucket(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)
	store := newTestStore(t, nc)
	ctx := testContext(t)

	_, err := store.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Acquire(ctx)
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
	require.False(t, nc.IsClosed())

	_, err = store.Connect(ctx)
	require.NoError(t, err)

	sess, err := store.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Close())
}
