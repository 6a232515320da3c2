package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heptiolabs/healthcheck"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	redists "github.com/nickman/redis-ts"
	"github.com/nickman/redis-ts/internal/metrics"
	"github.com/nickman/redis-ts/store/natsstore"
	"github.com/nickman/redis-ts/store/redisstore"
)

var errConflict = errors.New("stored schedule conflicts with the configured schedule")

type app struct {
	cfg        fileConfig
	logger     redists.Logger
	ctrl       *redists.Controller
	registry   *prometheus.Registry
	health     healthcheck.Handler
	closeStore func()
}

func newApp(cfg fileConfig, logger redists.Logger) (*app, error) {
	store, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	a, err := newAppWithStore(cfg, logger, store)
	if err != nil {
		closeStore()
		return nil, err
	}
	a.closeStore = closeStore

	return a, nil
}

func newAppWithStore(cfg fileConfig, logger redists.Logger, store redists.Store) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hooks := &redists.Hooks{
		OnConflict: func(_ context.Context, conflict *redists.ConflictError) error {
			logger.Error("schedule conflict, restart with -clear-config to replace the stored schedule",
				"key", conflict.Key,
				"stored", conflict.Remote,
				"configured", conflict.Local,
			)

			return nil
		},
		OnError: func(_ context.Context, err error) error {
			logger.Warn("controller error", "error", err)
			return nil
		},
	}

	ctrlCfg := cfg.Controller
	ctrl, err := redists.NewController(&ctrlCfg, store,
		redists.WithLogger(logger),
		redists.WithMetrics(metrics.NewPrometheus(registry, metrics.DefaultNamespace)),
		redists.WithHooks(hooks),
	)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		ctrl:       ctrl,
		registry:   registry,
		health:     healthcheck.NewHandler(),
		closeStore: func() {},
	}
	a.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	a.health.AddReadinessCheck("store-connected", a.checkConnected)
	a.health.AddReadinessCheck("schedule-reconciled", a.checkReconciled)

	return a, nil
}

func newStore(cfg fileConfig, logger redists.Logger) (redists.Store, func(), error) {
	switch cfg.Backend {
	case backendNATS:
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("redis-ts-"+uuid.NewString()),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}

		store, err := natsstore.New(nc, cfg.NATS.Store, natsstore.WithLogger(logger))
		if err != nil {
			nc.Close()
			return nil, nil, err
		}

		return store, nc.Close, nil
	default:
		store, err := redisstore.New(cfg.Redis, redisstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}

		return store, func() {}, nil
	}
}

// run starts the controller and blocks until ctx is cancelled or startup fails for good.
func (a *app) run(ctx context.Context, clearConfig bool) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", a.health.LiveEndpoint)
	mux.HandleFunc("/ready", a.health.ReadyEndpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if srv.Addr != "" {
		g.Go(func() error {
			a.logger.Info("serving health and metrics", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		if err := a.start(gctx, clearConfig); err != nil {
			return err
		}
		<-gctx.Done()

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(srv)
	})

	return g.Wait()
}

func (a *app) start(ctx context.Context, clearConfig bool) error {
	err := a.ctrl.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, redists.ErrScheduleConflict):
		if !clearConfig {
			return fmt.Errorf("%w: %w", errConflict, err)
		}
	case errors.Is(err, redists.ErrStoreUnavailable) && !clearConfig:
		a.logger.Warn("store not reachable yet, reconnecting in the background", "error", err)
		return nil
	default:
		return fmt.Errorf("failed to start controller: %w", err)
	}

	if !clearConfig {
		return nil
	}

	if err := a.ctrl.ClearSchedule(ctx); err != nil {
		return fmt.Errorf("failed to clear stored schedule: %w", err)
	}

	state, err := a.ctrl.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("failed to reinitialize schedule: %w", err)
	}
	a.logger.Info("stored schedule replaced", "state", state.String(), "model", a.cfg.Controller.Model)

	return nil
}

func (a *app) shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Controller.ShutdownTimeout+time.Second)
	defer cancel()
	defer a.closeStore()

	var g errgroup.Group
	g.Go(func() error {
		return srv.Shutdown(ctx)
	})
	g.Go(func() error {
		if err := a.ctrl.Stop(ctx); err != nil && !errors.Is(err, redists.ErrNotStarted) {
			return err
		}

		return nil
	})

	return g.Wait()
}

func (a *app) checkConnected() error {
	if !a.ctrl.IsConnected() {
		return fmt.Errorf("store connection is %s", a.ctrl.ConnectionState())
	}

	return nil
}

func (a *app) checkReconciled() error {
	state := a.ctrl.State()
	switch {
	case state.IsReconciled():
		return nil
	case state == redists.StateConflict:
		return a.ctrl.Err()
	default:
		return fmt.Errorf("schedule is %s", strings.ToLower(state.String()))
	}
}
