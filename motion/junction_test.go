package motion

import (
	"math"
	"testing"
)

// queueForPlanning mimics the submission path: seed the junction cap
// against the previous newest block, add, and mark dirty.
func queueForPlanning(buf *MotionBuffer, opt *JunctionOptimizer, blocks []*MotionBlock) {
	var last *MotionBlock
	for i, b := range blocks {
		b.Id = uint64(i + 1)
		b.Recalc = true
		if last != nil {
			b.MaxEntrySpeed = opt.JunctionSpeed(last, b)
		}
		buf.Add(b)
		opt.BlockAdded()
		last = b
	}
	opt.Recalculate(buf)
}

func lineBlock(from, to Coord, speed, accel float64) *MotionBlock {
	delta := to.Sub(from)
	d := delta.Norm()
	b := &MotionBlock{
		Start:        from,
		End:          to,
		Distance:     d,
		NominalSpeed: speed,
		Accel:        accel,
		Profile:      ProfileLinear,
	}
	for i := 0; i < NumAxes; i++ {
		b.Unit[i] = delta[i] / d
	}
	return b
}

func TestCollinearJunctionsUnreduced(t *testing.T) {
	buf := NewMotionBuffer(8)
	opt := NewJunctionOptimizer(0.02)
	// Long enough that deceleration-to-stop does not reach back into
	// the interior junctions.
	blocks := []*MotionBlock{
		lineBlock(Coord{0, 0, 0, 0}, Coord{1000, 0, 0, 0}, 1000, 3000),
		lineBlock(Coord{1000, 0, 0, 0}, Coord{2000, 0, 0, 0}, 1000, 3000),
		lineBlock(Coord{2000, 0, 0, 0}, Coord{3000, 0, 0, 0}, 1000, 3000),
	}
	queueForPlanning(buf, opt, blocks)

	b0, _ := buf.Peek(0)
	b1, _ := buf.Peek(1)
	b2, _ := buf.Peek(2)
	if !nearlyEqual(b0.ExitSpeed, 1000, 1e-9) {
		t.Fatalf("collinear junction penalized: exit %v, want 1000", b0.ExitSpeed)
	}
	if !nearlyEqual(b1.EntrySpeed, 1000, 1e-9) || !nearlyEqual(b1.ExitSpeed, 1000, 1e-9) {
		t.Fatalf("interior block entry %v exit %v, want 1000", b1.EntrySpeed, b1.ExitSpeed)
	}
	if b2.ExitSpeed != 0 {
		t.Fatalf("newest block must plan to a stop, exit %v", b2.ExitSpeed)
	}
}

func TestRightAngleJunctionSlows(t *testing.T) {
	buf := NewMotionBuffer(8)
	opt := NewJunctionOptimizer(0.02)
	blocks := []*MotionBlock{
		lineBlock(Coord{0, 0, 0, 0}, Coord{100, 0, 0, 0}, 100, 500),
		lineBlock(Coord{100, 0, 0, 0}, Coord{100, 100, 0, 0}, 100, 500),
	}
	queueForPlanning(buf, opt, blocks)

	b0, _ := buf.Peek(0)
	b1, _ := buf.Peek(1)
	if b1.EntrySpeed <= 0 || b1.EntrySpeed >= 100 {
		t.Fatalf("90 degree junction speed %v, want strictly within (0, 100)", b1.EntrySpeed)
	}
	// The closed form: v = sqrt(a * delta * s / (1 - s)), s = sin(45deg).
	s := math.Sqrt(0.5)
	want := math.Sqrt(500 * 0.02 * s / (1 - s))
	if !nearlyEqual(b1.EntrySpeed, want, 1e-6) {
		t.Fatalf("junction speed %v, want %v", b1.EntrySpeed, want)
	}
	if !nearlyEqual(b0.ExitSpeed, b1.EntrySpeed, 1e-12) {
		t.Fatalf("adjacent speeds disagree: exit %v entry %v", b0.ExitSpeed, b1.EntrySpeed)
	}
}

func TestAdjacentSpeedsAlwaysPaired(t *testing.T) {
	buf := NewMotionBuffer(16)
	opt := NewJunctionOptimizer(0.01)
	// A zig-zag path with mixed lengths and speeds.
	pts := []Coord{
		{0, 0, 0, 0}, {50, 0, 0, 0}, {50, 5, 0, 0}, {120, 5, 0, 0},
		{120, 80, 0, 0}, {10, 80, 2, 0}, {10, 0, 2, 0},
	}
	var blocks []*MotionBlock
	for i := 1; i < len(pts); i++ {
		blocks = append(blocks, lineBlock(pts[i-1], pts[i], 80+10*float64(i), 700))
	}
	queueForPlanning(buf, opt, blocks)

	for i := 1; i < len(blocks); i++ {
		prev, _ := buf.Peek(i - 1)
		cur, _ := buf.Peek(i)
		if !nearlyEqual(prev.ExitSpeed, cur.EntrySpeed, 1e-12) {
			t.Fatalf("pair %d: exit %v != entry %v", i, prev.ExitSpeed, cur.EntrySpeed)
		}
	}
	last, _ := buf.Peek(len(blocks) - 1)
	if last.ExitSpeed != 0 {
		t.Fatalf("final exit speed %v, want 0", last.ExitSpeed)
	}
}

func TestBackwardPassNeverIncreasesAndIdempotent(t *testing.T) {
	buf := NewMotionBuffer(16)
	opt := NewJunctionOptimizer(0.02)
	// Short final block forces the stop constraint to ripple backward.
	blocks := []*MotionBlock{
		lineBlock(Coord{0, 0, 0, 0}, Coord{200, 0, 0, 0}, 500, 1000),
		lineBlock(Coord{200, 0, 0, 0}, Coord{400, 0, 0, 0}, 500, 1000),
		lineBlock(Coord{400, 0, 0, 0}, Coord{400.5, 0, 0, 0}, 500, 1000),
	}
	queueForPlanning(buf, opt, blocks)

	type speeds struct{ entry, exit float64 }
	first := make([]speeds, len(blocks))
	for i := range blocks {
		b, _ := buf.Peek(i)
		first[i] = speeds{b.EntrySpeed, b.ExitSpeed}
	}
	// The stop constraint must have reached the middle block: it can
	// only carry sqrt(2*a*d_last) into the last junction.
	maxLastEntry := math.Sqrt(2 * 1000 * 0.5)
	if first[2].entry > maxLastEntry+1e-9 {
		t.Fatalf("last entry %v exceeds decel-reachable %v", first[2].entry, maxLastEntry)
	}

	// A second pass over the unchanged queue must not move anything.
	opt.BlockAdded()
	opt.Recalculate(buf)
	for i := range blocks {
		b, _ := buf.Peek(i)
		if !nearlyEqual(b.EntrySpeed, first[i].entry, 1e-12) || !nearlyEqual(b.ExitSpeed, first[i].exit, 1e-12) {
			t.Fatalf("pass not idempotent at block %d: %+v vs entry=%v exit=%v",
				i, first[i], b.EntrySpeed, b.ExitSpeed)
		}
	}
}

func TestSCurveBlocksPlanToStop(t *testing.T) {
	buf := NewMotionBuffer(8)
	opt := NewJunctionOptimizer(0.02)
	a := lineBlock(Coord{0, 0, 0, 0}, Coord{100, 0, 0, 0}, 100, 500)
	b := lineBlock(Coord{100, 0, 0, 0}, Coord{200, 0, 0, 0}, 100, 500)
	b.Profile = ProfileSCurve
	queueForPlanning(buf, opt, []*MotionBlock{a, b})

	got0, _ := buf.Peek(0)
	got1, _ := buf.Peek(1)
	if got0.ExitSpeed != 0 || got1.EntrySpeed != 0 {
		t.Fatalf("s-curve junction not stop-to-stop: exit %v entry %v",
			got0.ExitSpeed, got1.EntrySpeed)
	}
}
