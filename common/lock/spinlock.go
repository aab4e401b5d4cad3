package lock

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a test-and-set lock with exponential backoff. It is used
// for the very short exclusion windows between the move-submission
// context and the periodic tick context, where a blocking mutex would
// risk suspending the tick handler.
type SpinLock uint32

const maxBackOff = 32

func (sl *SpinLock) Lock() {
	backoff := 1
	for !atomic.CompareAndSwapUint32((*uint32)(sl), 0, 1) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackOff {
			backoff <<= 1
		}
	}
}

func (sl *SpinLock) Unlock() {
	atomic.StoreUint32((*uint32)(sl), 0)
}
