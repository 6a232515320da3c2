package heartbeat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReceiver_Handle(t *testing.T) {
	t.Run("records timestamp", func(t *testing.T) {
		r := NewReceiver(nil)
		_, ok := r.LastSeen()
		require.False(t, ok)

		r.Handle("1700000000000")

		last, ok := r.LastSeen()
		require.True(t, ok)
		require.Equal(t, int64(1700000000000), last.UnixMilli())
		require.Equal(t, int64(1), r.Received())
	})

	t.Run("keeps the latest value when messages arrive out of order", func(t *testing.T) {
		r := NewReceiver(nil)
		r.Handle("1700000000500")
		r.Handle("1700000000100")
		r.Handle("1700000000500")

		last, _ := r.LastSeen()
		require.Equal(t, int64(1700000000500), last.UnixMilli())
		require.Equal(t, int64(3), r.Received())
	})

	t.Run("ignores malformed payloads", func(t *testing.T) {
		r := NewReceiver(nil)
		r.Handle("1700000000000")
		r.Handle("not-a-number")
		r.Handle("")

		last, _ := r.LastSeen()
		require.Equal(t, int64(1700000000000), last.UnixMilli())
		require.Equal(t, int64(2), r.Malformed())
	})

	t.Run("tolerates surrounding whitespace", func(t *testing.T) {
		r := NewReceiver(nil)
		r.Handle(" 1700000000000\r\n")
		require.Equal(t, int64(1), r.Received())
	})
}

func TestReceiver_ConcurrentObserve(t *testing.T) {
	r := NewReceiver(nil)
	base := time.UnixMilli(1700000000000)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			r.Observe(base.Add(time.Duration(offset) * time.Millisecond))
		}(i)
	}
	wg.Wait()

	last, ok := r.LastSeen()
	require.True(t, ok)
	require.Equal(t, base.Add(49*time.Millisecond).UnixMilli(), last.UnixMilli())
}
