package sys

import (
	"sync/atomic"

	"github.com/petermattis/goid"
)

// GetGID returns the id of the calling goroutine.
func GetGID() uint64 {
	return uint64(goid.Get())
}

// TickGuard checks that a periodic handler is only ever entered from a
// single goroutine. The first call pins the owner; later calls report
// whether the caller matches.
type TickGuard struct {
	owner int64
}

func (g *TickGuard) Check() bool {
	id := goid.Get()
	if atomic.CompareAndSwapInt64(&g.owner, 0, id) {
		return true
	}
	return atomic.LoadInt64(&g.owner) == id
}

// Reset releases goroutine ownership, for tests that drive ticks from
// multiple goroutines in sequence.
func (g *TickGuard) Reset() {
	atomic.StoreInt64(&g.owner, 0)
}
