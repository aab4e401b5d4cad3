package motion

import (
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/lock"
)

// MotionBuffer is the fixed-capacity ring queue of planned blocks and
// the only structure shared between the submission context and the
// tick context. The producer writes only at head, the tick context
// reads and retires only at tail. An explicit count field is used, so
// the full configured capacity is usable (the head==tail emptiness
// convention of classic ring buffers would sacrifice one slot).
//
// Index updates crossing the context boundary are guarded by a
// spinlock held only for the index update itself, never across profile
// math, so the tick handler stays bounded.
type MotionBuffer struct {
	slots []MotionBlock
	head  int
	tail  int
	count int
	// executing marks the tail slot as handed to the executor; the
	// junction optimizer must not touch it past that point.
	executing bool
	// lastExit is the frozen exit speed of the most recently retired
	// or executing block. The first still-plannable block may never
	// plan an entry speed above it.
	lastExit float64
	mu       lock.SpinLock
}

func NewMotionBuffer(depth int) *MotionBuffer {
	return &MotionBuffer{slots: make([]MotionBlock, depth)}
}

func (b *MotionBuffer) Cap() int { return len(b.slots) }

// Len returns the number of queued blocks, including an executing one.
func (b *MotionBuffer) Len() int {
	b.mu.Lock()
	n := b.count
	b.mu.Unlock()
	return n
}

// Free returns the number of empty slots.
func (b *MotionBuffer) Free() int {
	b.mu.Lock()
	n := len(b.slots) - b.count
	b.mu.Unlock()
	return n
}

// Add copies the block into the head slot. It reports false, with no
// mutation, when the buffer is full.
func (b *MotionBuffer) Add(block *MotionBlock) bool {
	b.mu.Lock()
	if b.count == len(b.slots) {
		b.mu.Unlock()
		return false
	}
	b.slots[b.head] = *block
	b.slots[b.head].Valid = true
	b.head = (b.head + 1) % len(b.slots)
	b.count++
	b.mu.Unlock()
	return true
}

// GetNext returns a copy of the tail block and marks it executing.
// The slot stays occupied until Complete so queue occupancy reflects
// in-flight work.
func (b *MotionBuffer) GetNext() (MotionBlock, bool) {
	b.mu.Lock()
	if b.count == 0 || !b.slots[b.tail].Valid {
		b.mu.Unlock()
		return MotionBlock{}, false
	}
	block := b.slots[b.tail]
	b.executing = true
	b.mu.Unlock()
	return block, true
}

// Peek returns a copy of the queued block at the given offset from the
// tail without dequeuing. Used by the look-ahead optimizer.
func (b *MotionBuffer) Peek(offset int) (MotionBlock, bool) {
	b.mu.Lock()
	if offset < 0 || offset >= b.count {
		b.mu.Unlock()
		return MotionBlock{}, false
	}
	block := b.slots[(b.tail+offset)%len(b.slots)]
	b.mu.Unlock()
	return block, true
}

// Complete invalidates the tail slot and advances the tail. No-op on
// an empty buffer.
func (b *MotionBuffer) Complete() {
	b.mu.Lock()
	if b.count == 0 {
		b.mu.Unlock()
		return
	}
	b.lastExit = b.slots[b.tail].ExitSpeed
	b.slots[b.tail].Valid = false
	b.tail = (b.tail + 1) % len(b.slots)
	b.count--
	b.executing = false
	b.mu.Unlock()
}

// Clear resets the queue and invalidates every slot. Used by emergency
// stop and alarm clearing.
func (b *MotionBuffer) Clear() {
	b.mu.Lock()
	for i := range b.slots {
		b.slots[i].Valid = false
	}
	b.head, b.tail, b.count = 0, 0, 0
	b.executing = false
	b.lastExit = 0
	b.mu.Unlock()
}

// planRegion calls fn with direct slot access to the queued-but-not-
// executing region, oldest first, under the buffer lock. Only the
// junction optimizer uses it; fn must be short and never block.
// prevExit is the frozen exit speed the first plannable block chains
// from: the executing tail block's planned exit, or the exit the last
// retired block actually stopped planning at (zero after a full stop).
func (b *MotionBuffer) planRegion(fn func(prevExit float64, region []*MotionBlock)) {
	b.mu.Lock()
	start := 0
	prevExit := b.lastExit
	if b.executing && b.count > 0 {
		prevExit = b.slots[b.tail].ExitSpeed
		start = 1
	}
	region := make([]*MotionBlock, 0, b.count-start)
	for i := start; i < b.count; i++ {
		region = append(region, &b.slots[(b.tail+i)%len(b.slots)])
	}
	fn(prevExit, region)
	b.mu.Unlock()
}
