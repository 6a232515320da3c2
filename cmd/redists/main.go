// Command redists runs the redis-ts control plane.
//
// It connects to the configured store, reconciles the tier schedule, and keeps watching the
// connection until SIGINT or SIGTERM. A schedule conflict exits with status 2; run once with
// -clear-config to replace the stored schedule with the configured one.
//
// Usage:
//
//	redists -config /etc/redis-ts/redists.yaml
//	redists -config redists.yaml -model "p=15s,d=15m|p=2m,d=1h" -clear-config
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickman/redis-ts/internal/logging"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitConflict = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("redists", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	model := fs.String("model", "", "tier schedule expression, overrides controller.model")
	clearConfig := fs.Bool("clear-config", false, "delete the stored schedule and reinitialize it from the configured one")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	if *model != "" {
		cfg.Controller.Model = *model
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	logger, err := logging.NewZapProduction(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return exitFailure
	}

	err = app.run(ctx, *clearConfig)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errConflict):
		return exitConflict
	default:
		logger.Error("redists exited", "error", err)
		return exitFailure
	}
}
