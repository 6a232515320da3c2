// Package testing provides test utilities for redis-ts.
//
// It follows Go's convention of shipping testing helpers in a dedicated package
// (similar to net/http/httptest).
//
// Key utilities:
//   - MemStore: In-memory types.Store with outage, restart and write-count controls
//   - StartEmbeddedNATS: NATS server with JetStream for the NATS store backend
//   - StartMiniRedis: In-process Redis server for the Redis store backend
//   - NewTestLogger: types.Logger writing to testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    rtstest "github.com/nickman/redis-ts/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    store := rtstest.NewMemStore()
//	    ctrl, _ := redists.NewController(redists.TestConfig("p=15s,d=15m"), store)
//	    // ...
//	}
package testing
