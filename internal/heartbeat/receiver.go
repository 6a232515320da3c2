package heartbeat

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/nickman/redis-ts/internal/logging"
	"github.com/nickman/redis-ts/types"
)

// Receiver records the latest heartbeat timestamp received on the channel.
//
// Handle is safe to call from any goroutine. Only the maximum timestamp is kept.
type Receiver struct {
	logger types.Logger

	lastMillis atomic.Int64
	received   atomic.Int64
	malformed  atomic.Int64
}

// NewReceiver creates a receiver. A nil logger discards malformed-payload warnings.
func NewReceiver(logger types.Logger) *Receiver {
	return &Receiver{logger: logging.OrNop(logger)}
}

// Handle processes one heartbeat payload. Malformed payloads are logged and ignored.
func (r *Receiver) Handle(payload string) {
	ts, err := ParseTimestamp(strings.TrimSpace(payload))
	if err != nil {
		r.malformed.Add(1)
		r.logger.Warn("ignoring heartbeat", "error", err)

		return
	}

	r.received.Add(1)
	r.Observe(ts)
}

// Observe records ts if it is newer than the latest timestamp seen.
func (r *Receiver) Observe(ts time.Time) {
	millis := ts.UnixMilli()
	for {
		cur := r.lastMillis.Load()
		if millis <= cur {
			return
		}
		if r.lastMillis.CompareAndSwap(cur, millis) {
			return
		}
	}
}

// LastSeen returns the latest heartbeat timestamp. The boolean is false when none was seen.
func (r *Receiver) LastSeen() (time.Time, bool) {
	millis := r.lastMillis.Load()
	if millis == 0 {
		return time.Time{}, false
	}

	return time.UnixMilli(millis), true
}

// Received returns the number of well-formed heartbeats handled.
func (r *Receiver) Received() int64 {
	return r.received.Load()
}

// Malformed returns the number of payloads that could not be parsed.
func (r *Receiver) Malformed() int64 {
	return r.malformed.Load()
}
