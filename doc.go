// Package redists provides the control plane of a tiered time-series store.
//
// A Controller owns the store connection, keeps a heartbeat running over the store's
// publish/subscribe channel, and reconciles the locally configured tier schedule with
// the one persisted in the store each time it connects to a new store instance.
//
// # Quick Start
//
//	import (
//	    redists "github.com/nickman/redis-ts"
//	    "github.com/nickman/redis-ts/store/redisstore"
//	)
//
//	store, err := redisstore.New(redisstore.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := redists.DefaultConfig()
//	cfg.Model = "p=15s,d=15m | p=2m,d=1h | p=1h,d=1w"
//
//	ctrl, err := redists.NewController(&cfg, store)
//	if err != nil {
//	    log.Fatal(err) // invalid schedule or configuration
//	}
//
//	if err := ctrl.Start(ctx); err != nil {
//	    log.Fatal(err) // schedule conflict or store unreachable
//	}
//	defer ctrl.Stop(context.Background())
//
// # Schedules
//
// A schedule is a "|" separated list of tier definitions; see package tier for the
// grammar. The first tier is always the live tier.
//
// # Reconciliation
//
// On every connection to a new store instance (first connect, or a changed run id) the
// controller reads the stored schedule:
//
//	Uninitialized → FirstInit   nothing stored; the local schedule is written
//	Uninitialized → Refreshed   the stored schedule matches (ignoring whitespace)
//	Uninitialized → Conflict    the stored schedule differs; nothing is written
//
// A conflict is never resolved automatically. An operator either fixes the local model or
// calls ClearSchedule.
//
// # Connection Events
//
// Listeners added with AddListener receive connection events. OnConnectNewInstance is
// delivered after the controller has reconciled the schedule for that instance.
package redists
