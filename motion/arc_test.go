package motion

import (
	"math"
	"testing"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
)

func arcTestConfig() *config.Config {
	cfg := config.Default()
	// Deep enough that tolerance, not queue depth, sets the segment
	// count for these arcs.
	cfg.BufferDepth = 256
	cfg.MaxArcSegments = 256
	return cfg
}

func TestArcHalfCircleChordLength(t *testing.T) {
	seg := NewArcSegmenter(arcTestConfig())
	start := Coord{0, 0, 0, 0}
	end := Coord{10, 0, 0, 0}
	p, err := seg.PlanOffset(start, end, [2]float64{5, 0}, ArcCW)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !nearlyEqual(p.Radius, 5, 1e-12) {
		t.Fatalf("radius %v, want 5", p.Radius)
	}
	if !nearlyEqual(math.Abs(p.TotalAngle), math.Pi, 1e-9) {
		t.Fatalf("sweep %v, want pi", p.TotalAngle)
	}
	targets := seg.Segment(p)
	if len(targets) != p.SegmentCount {
		t.Fatalf("got %d targets, want %d", len(targets), p.SegmentCount)
	}
	sum := 0.0
	prev := start
	for _, c := range targets {
		sum += c.Sub(prev).Norm()
		prev = c
	}
	want := math.Pi * 5
	if math.Abs(sum-want) > 0.01 {
		t.Fatalf("chord sum %v, arc length %v", sum, want)
	}
	last := targets[len(targets)-1]
	if last != end {
		t.Fatalf("final target %v, want exact end %v", last, end)
	}
}

func TestArcSegmentsStayWithinTolerance(t *testing.T) {
	cfg := arcTestConfig()
	seg := NewArcSegmenter(cfg)
	p, err := seg.PlanOffset(Coord{0, 0, 0, 0}, Coord{0, 40, 0, 0}, [2]float64{0, 20}, ArcCCW)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// Chordal deviation of an equal-angle chord is the sagitta.
	dtheta := math.Abs(p.TotalAngle) / float64(p.SegmentCount)
	sagitta := p.Radius * (1 - math.Cos(dtheta/2))
	if sagitta > cfg.ArcTolerance*1.001 {
		t.Fatalf("sagitta %v exceeds tolerance %v", sagitta, cfg.ArcTolerance)
	}
}

func TestArcFullCircleOffsetForm(t *testing.T) {
	seg := NewArcSegmenter(arcTestConfig())
	start := Coord{10, 5, 0, 0}
	p, err := seg.PlanOffset(start, start, [2]float64{-3, 0}, ArcCCW)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !nearlyEqual(p.TotalAngle, 2*math.Pi, 1e-9) {
		t.Fatalf("coincident endpoints sweep %v, want full turn", p.TotalAngle)
	}
	targets := seg.Segment(p)
	if targets[len(targets)-1] != start {
		t.Fatalf("full circle must land back on the start point, got %v", targets[len(targets)-1])
	}
}

func TestArcHelicalAxesLerp(t *testing.T) {
	seg := NewArcSegmenter(arcTestConfig())
	start := Coord{0, 0, 0, 0}
	end := Coord{10, 0, 4, 90}
	p, err := seg.PlanOffset(start, end, [2]float64{5, 0}, ArcCCW)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	targets := seg.Segment(p)
	mid := targets[len(targets)/2-1]
	frac := float64(len(targets)/2) / float64(p.SegmentCount)
	if !nearlyEqual(mid[config.ZAxis], 4*frac, 1e-9) {
		t.Fatalf("helical Z at fraction %v: %v, want %v", frac, mid[config.ZAxis], 4*frac)
	}
	if !nearlyEqual(mid[config.AAxis], 90*frac, 1e-9) {
		t.Fatalf("A axis at fraction %v: %v, want %v", frac, mid[config.AAxis], 90*frac)
	}
}

func TestArcRadiusFormSides(t *testing.T) {
	seg := NewArcSegmenter(arcTestConfig())
	start := Coord{0, 0, 0, 0}
	end := Coord{5, 0, 0, 0}

	minor, err := seg.PlanRadius(start, end, 5, ArcCCW)
	if err != nil {
		t.Fatalf("minor arc: %v", err)
	}
	if math.Abs(minor.TotalAngle) > math.Pi {
		t.Fatalf("positive radius must pick the minor arc, sweep %v", minor.TotalAngle)
	}

	major, err := seg.PlanRadius(start, end, -5, ArcCCW)
	if err != nil {
		t.Fatalf("major arc: %v", err)
	}
	if math.Abs(major.TotalAngle) <= math.Pi {
		t.Fatalf("negative radius must pick the major arc, sweep %v", major.TotalAngle)
	}
	if !nearlyEqual(math.Abs(minor.TotalAngle)+math.Abs(major.TotalAngle), 2*math.Pi, 1e-9) {
		t.Fatalf("minor %v and major %v sweeps do not close the circle",
			minor.TotalAngle, major.TotalAngle)
	}
}

func TestArcRejections(t *testing.T) {
	seg := NewArcSegmenter(arcTestConfig())
	start := Coord{0, 0, 0, 0}

	if _, err := seg.PlanOffset(start, Coord{10, 0, 0, 0}, [2]float64{0, 0}, ArcCW); err == nil {
		t.Fatalf("zero center offset accepted")
	}
	// End point well off the circle through the start.
	if _, err := seg.PlanOffset(start, Coord{12, 0, 0, 0}, [2]float64{5, 0}, ArcCW); err == nil {
		t.Fatalf("end point off circle accepted")
	}
	if _, err := seg.PlanRadius(start, Coord{20, 0, 0, 0}, 5, ArcCW); err == nil {
		t.Fatalf("chord longer than diameter accepted")
	}
	if _, err := seg.PlanRadius(start, start, 5, ArcCW); err == nil {
		t.Fatalf("radius form with coincident endpoints accepted")
	}
	if _, err := seg.PlanRadius(start, Coord{5, 0, 0, 0}, 0, ArcCW); err == nil {
		t.Fatalf("zero radius accepted")
	}
}
