package redists

import "sync"

// stateSubscriberBuffer is the per-subscriber channel capacity.
const stateSubscriberBuffer = 4

// stateSubscriber is a helper for managing state change subscriptions.
type stateSubscriber struct {
	ch     chan State
	mu     sync.Mutex
	closed bool
}

// trySend sends a state update to the subscriber's channel without blocking.
//
// Returns:
//   - bool: false if the update was dropped
func (s *stateSubscriber) trySend(state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	select {
	case s.ch <- state:
		return true
	default:
		// Subscriber is slow or not ready; they will get the next update.
		return false
	}
}

// close safely closes the subscriber's channel.
func (s *stateSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// SubscribeToStateChanges returns a channel of state updates and an unsubscribe function.
//
// The current state is sent immediately. Updates are delivered without blocking the
// controller: a subscriber that falls more than a few updates behind misses updates
// (counted by MetricsCollector.RecordStateChangeDropped). The channel is closed by the
// unsubscribe function or when the controller stops.
//
// Returns:
//   - <-chan State: State updates
//   - func(): Unsubscribe function, safe to call more than once
//
// Example:
//
//	updates, unsubscribe := ctrl.SubscribeToStateChanges()
//	defer unsubscribe()
//	for state := range updates {
//	    if state == redists.StateConflict {
//	        alert(ctrl.Err())
//	    }
//	}
func (c *Controller) SubscribeToStateChanges() (<-chan State, func()) {
	id := c.subSeq.Add(1)
	sub := &stateSubscriber{ch: make(chan State, stateSubscriberBuffer)}

	c.stateMu.Lock()
	c.subscribers.Store(id, sub)
	sub.trySend(c.State())
	c.stateMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			if s, ok := c.subscribers.LoadAndDelete(id); ok {
				s.close()
			}
		})
	}

	return sub.ch, unsubscribe
}

// notifySubscribers fans state out to every subscriber. Called with stateMu held.
func (c *Controller) notifySubscribers(state State) {
	c.subscribers.Range(func(_ uint64, sub *stateSubscriber) bool {
		if !sub.trySend(state) {
			c.metrics.RecordStateChangeDropped()
		}

		return true
	})
}

func (c *Controller) closeSubscribers() {
	c.subscribers.Range(func(id uint64, sub *stateSubscriber) bool {
		c.subscribers.Delete(id)
		sub.close()

		return true
	})
}
