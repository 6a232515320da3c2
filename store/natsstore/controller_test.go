package natsstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	redists "github.com/nickman/redis-ts"
	"github.com/nickman/redis-ts/store/natsstore"
	rtstest "github.com/nickman/redis-ts/testing"
)

const schedule = "p=15s,d=15m|p=2m,d=1h"

func newController(t *testing.T, nc *nats.Conn, model string) *redists.Controller {
	t.Helper()

	cfg := natsstore.DefaultConfig()
	cfg.Storage = "memory"
	store, err := natsstore.New(nc, cfg)
	require.NoError(t, err)

	ctrlCfg := redists.TestConfig(model)
	ctrl, err := redists.NewController(&ctrlCfg, store, redists.WithLogger(rtstest.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Stop(context.Background()) })

	return ctrl
}

func startController(t *testing.T, nc *nats.Conn, model string) (*redists.Controller, error) {
	t.Helper()

	ctrl := newController(t, nc, model)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return ctrl, ctrl.Start(ctx)
}

func TestController_OverNATS(t *testing.T) {
	ns, nc := rtstest.StartEmbeddedNATS(t)

	first, err := startController(t, nc, schedule)
	require.NoError(t, err)
	require.Equal(t, redists.StateFirstInit, first.State())
	require.Equal(t, ns.ID(), first.RunID())

	second, err := startController(t, nc, "p=15s, d=15m | p=2m, d=1h")
	require.NoError(t, err)
	require.Equal(t, redists.StateRefreshed, second.State())

	third, err := startController(t, nc, "p=30s,d=15m|p=2m,d=1h")
	require.ErrorIs(t, err, redists.ErrScheduleConflict)
	require.Equal(t, redists.StateConflict, third.State())

	// The stored schedule is untouched by the conflicting controller.
	kv := rtstest.OpenJetStreamKV(t, nc, "redis-ts-config")
	entry, err := kv.Get(context.Background(), "redis-ts.config.model")
	require.NoError(t, err)
	require.Equal(t, schedule, string(entry.Value()))

	entry, err = kv.Get(context.Background(), "redis-ts.config.tier-names")
	require.NoError(t, err)
	require.Equal(t, "tier0,tier1", string(entry.Value()))
}

func TestController_OverNATS_ClearSchedule(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)

	_, err := startController(t, nc, schedule)
	require.NoError(t, err)

	ctrl, err := startController(t, nc, "p=1m,d=1d")
	require.ErrorIs(t, err, redists.ErrScheduleConflict)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, ctrl.ClearSchedule(ctx))
	require.Equal(t, redists.StateUninitialized, ctrl.State())

	state, err := ctrl.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, redists.StateFirstInit, state)
}

func TestController_ConcurrentFirstInitOverNATS(t *testing.T) {
	_, nc := rtstest.StartEmbeddedNATS(t)

	ctrls := []*redists.Controller{
		newController(t, nc, schedule),
		newController(t, nc, "p=30s,d=15m|p=2m,d=1h"),
	}

	errs := make([]error, len(ctrls))
	var wg sync.WaitGroup
	for i, ctrl := range ctrls {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			errs[i] = ctrl.Start(ctx)
		}()
	}
	wg.Wait()

	var winner *redists.Controller
	conflicts := 0
	for i, ctrl := range ctrls {
		switch ctrl.State() {
		case redists.StateFirstInit:
			require.NoError(t, errs[i])
			require.Nil(t, winner, "only one controller may initialize the schedule")
			winner = ctrl
		case redists.StateConflict:
			require.ErrorIs(t, errs[i], redists.ErrScheduleConflict)
			conflicts++
		default:
			t.Fatalf("unexpected state %s", ctrl.State())
		}
	}
	require.NotNil(t, winner)
	require.Equal(t, 1, conflicts)

	kv := rtstest.OpenJetStreamKV(t, nc, "redis-ts-config")
	entry, err := kv.Get(context.Background(), "redis-ts.config.model")
	require.NoError(t, err)
	require.Equal(t, winner.Schedule().Expression(), string(entry.Value()))
}
