package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	rtstest "github.com/nickman/redis-ts/testing"
)

func TestEnsureBucket(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("creates missing bucket", func(t *testing.T) {
		kv, err := EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "ensure-create"}, 3)
		require.NoError(t, err)
		require.Equal(t, "ensure-create", kv.Bucket())
	})

	t.Run("opens existing bucket and keeps its data", func(t *testing.T) {
		cfg := jetstream.KeyValueConfig{Bucket: "ensure-existing"}

		first, err := EnsureBucket(ctx, js, cfg, 3)
		require.NoError(t, err)
		_, err = first.PutString(ctx, "redis-ts.config.model", "p=15s,d=15m")
		require.NoError(t, err)

		second, err := EnsureBucket(ctx, js, cfg, 3)
		require.NoError(t, err)

		entry, err := second.Get(ctx, "redis-ts.config.model")
		require.NoError(t, err)
		require.Equal(t, "p=15s,d=15m", string(entry.Value()))
	})

	t.Run("default retries when zero", func(t *testing.T) {
		kv, err := EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "ensure-default"}, 0)
		require.NoError(t, err)
		require.NotNil(t, kv)
	})

	t.Run("concurrent callers share one bucket", func(t *testing.T) {
		const workers = 8
		cfg := jetstream.KeyValueConfig{Bucket: "ensure-concurrent", History: 1}

		var wg sync.WaitGroup
		errs := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := EnsureBucket(ctx, js, cfg, 5)
				errs <- err
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})
}

func TestEnsureBucket_CancelledContext(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "ensure-cancelled"}, 5)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
