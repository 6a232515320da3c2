package connection

import (
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/nickman/redis-ts/types"
)

// registry is a concurrent set of listeners.
//
// Dispatch iterates over a snapshot, so listeners may add or remove listeners (including
// themselves) from inside a callback without deadlocking. Registration order is kept.
type registry struct {
	listeners *xsync.Map[types.Listener, uint64]
	seq       atomic.Uint64
}

func newRegistry() *registry {
	return &registry{
		listeners: xsync.NewMap[types.Listener, uint64](),
	}
}

// Add registers l. Adding the same listener twice is a no-op. Listeners that cannot be
// compared, such as struct values holding slices or funcs, are rejected.
//
// Returns:
//   - bool: true if l was newly registered
func (r *registry) Add(l types.Listener) bool {
	if !comparableListener(l) {
		return false
	}
	_, loaded := r.listeners.LoadOrStore(l, r.seq.Add(1))

	return !loaded
}

// Remove unregisters l.
//
// Returns:
//   - bool: true if l was registered
func (r *registry) Remove(l types.Listener) bool {
	if !comparableListener(l) {
		return false
	}
	_, loaded := r.listeners.LoadAndDelete(l)

	return loaded
}

// comparableListener reports whether l is non-nil and usable as a map key.
func comparableListener(l types.Listener) bool {
	return l != nil && reflect.ValueOf(l).Comparable()
}

// Len returns the number of registered listeners.
func (r *registry) Len() int {
	return r.listeners.Size()
}

// Snapshot returns the listeners in registration order.
func (r *registry) Snapshot() []types.Listener {
	type entry struct {
		l   types.Listener
		seq uint64
	}

	entries := make([]entry, 0, r.listeners.Size())
	r.listeners.Range(func(l types.Listener, seq uint64) bool {
		entries = append(entries, entry{l: l, seq: seq})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]types.Listener, len(entries))
	for i, e := range entries {
		out[i] = e.l
	}

	return out
}
