// Package heartbeat provides liveness detection for the store connection over a
// publish/subscribe channel.
//
// # Design Overview
//
// Three independent pieces share one channel:
//
//   - Publisher sends the current wall-clock time (decimal milliseconds since epoch)
//     every publish interval
//   - Receiver handles messages from the channel subscription and keeps the latest
//     timestamp seen
//   - Monitor compares "now" with the latest timestamp every period and reports a
//     timeout when the gap exceeds the configured maximum
//
// A timeout is advisory. It does not close the connection; the connection manager turns
// it into a listener event.
//
// # Ordering
//
// Messages may arrive out of order or twice. The receiver keeps the maximum timestamp,
// so a stale message never moves "last seen" backwards.
//
// Example:
//
//	recv := heartbeat.NewReceiver(logger)
//	sub, _ := store.Subscribe(ctx, "redis-ts.heartbeat", recv.Handle)
//
//	pub := heartbeat.NewPublisher(store, "redis-ts.heartbeat", 1500*time.Millisecond)
//	_ = pub.Start(ctx)
//
//	mon := heartbeat.NewMonitor(recv, 3*time.Second, 3*time.Second, func(s types.HeartbeatStatus) {
//	    logger.Warn("heartbeat timeout", "consecutive", s.ConsecutiveTimeouts)
//	})
//	_ = mon.Start(ctx)
package heartbeat
