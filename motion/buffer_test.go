package motion

import (
	"math"
	"testing"
)

func nearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func testBlock(id uint64) *MotionBlock {
	return &MotionBlock{
		Id:           id,
		End:          Coord{float64(id), 0, 0, 0},
		Unit:         Coord{1, 0, 0, 0},
		Distance:     10,
		NominalSpeed: 100,
		Accel:        1000,
	}
}

func TestBufferCapacity(t *testing.T) {
	buf := NewMotionBuffer(4)
	for i := 1; i <= 4; i++ {
		if !buf.Add(testBlock(uint64(i))) {
			t.Fatalf("add %d failed on non-full buffer", i)
		}
	}
	if buf.Add(testBlock(5)) {
		t.Fatalf("add succeeded on full buffer")
	}
	if buf.Len() != 4 {
		t.Fatalf("expected occupancy 4, got %d", buf.Len())
	}
	// A failed Add must not mutate the queue.
	if b, ok := buf.Peek(3); !ok || b.Id != 4 {
		t.Fatalf("newest block disturbed by failed add: %+v ok=%v", b, ok)
	}
}

func TestBufferFIFOOrder(t *testing.T) {
	buf := NewMotionBuffer(8)
	const rounds = 20
	next := uint64(1)
	expect := uint64(1)
	for added := 0; added < rounds; {
		for buf.Free() > 0 && added < rounds {
			buf.Add(testBlock(next))
			next++
			added++
		}
		for buf.Len() > 0 {
			b, ok := buf.GetNext()
			if !ok {
				t.Fatalf("GetNext failed on non-empty buffer")
			}
			if b.Id != expect {
				t.Fatalf("dequeue order broken: got %d, want %d", b.Id, expect)
			}
			expect++
			buf.Complete()
		}
	}
	if expect != rounds+1 {
		t.Fatalf("drained %d blocks, want %d", expect-1, rounds)
	}
}

func TestBufferPeek(t *testing.T) {
	buf := NewMotionBuffer(4)
	buf.Add(testBlock(1))
	buf.Add(testBlock(2))
	if b, ok := buf.Peek(1); !ok || b.Id != 2 {
		t.Fatalf("peek(1) = %+v ok=%v", b, ok)
	}
	if _, ok := buf.Peek(2); ok {
		t.Fatalf("peek past count should be empty")
	}
	if _, ok := buf.Peek(-1); ok {
		t.Fatalf("negative peek should be empty")
	}
}

func TestBufferCompleteOnEmpty(t *testing.T) {
	buf := NewMotionBuffer(4)
	buf.Complete() // must be a no-op
	if buf.Len() != 0 {
		t.Fatalf("occupancy changed by Complete on empty buffer")
	}
	if _, ok := buf.GetNext(); ok {
		t.Fatalf("GetNext returned a block from an empty buffer")
	}
}

func TestBufferClear(t *testing.T) {
	buf := NewMotionBuffer(4)
	buf.Add(testBlock(1))
	buf.Add(testBlock(2))
	buf.GetNext()
	buf.Clear()
	if buf.Len() != 0 || buf.Free() != 4 {
		t.Fatalf("clear left occupancy %d free %d", buf.Len(), buf.Free())
	}
	if _, ok := buf.GetNext(); ok {
		t.Fatalf("cleared buffer still produced a block")
	}
	// Reusable after clear.
	if !buf.Add(testBlock(3)) {
		t.Fatalf("add failed after clear")
	}
}
