package motion

import (
	"math"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
)

// Arc moves are approximated by runs of short linear blocks in the XY
// plane; the remaining axes travel linearly across the sweep (helical
// Z, auxiliary A).

type ArcDirection int

const (
	ArcCW ArcDirection = iota
	ArcCCW
)

func (d ArcDirection) String() string {
	if d == ArcCW {
		return "CW"
	}
	return "CCW"
}

type ArcFormat int

const (
	// ArcFormatOffset specifies the center as an offset from the
	// start point (IJ form).
	ArcFormatOffset ArcFormat = iota
	// ArcFormatRadius specifies a signed radius (R form); a negative
	// radius selects the major arc.
	ArcFormatRadius
)

// ArcParams is the resolved geometry of one arc request. It only lives
// for the duration of segmentation.
type ArcParams struct {
	Start        Coord
	End          Coord
	Center       [2]float64
	Radius       float64
	StartAngle   float64
	EndAngle     float64
	TotalAngle   float64
	Direction    ArcDirection
	Format       ArcFormat
	Tolerance    float64
	ArcLength    float64
	SegmentCount int
}

// ArcSegmenter converts one arc request into a run of linear targets
// within the configured chordal tolerance.
type ArcSegmenter struct {
	tolerance   float64
	minRadius   float64
	maxRadius   float64
	maxSegments int
}

func NewArcSegmenter(cfg *config.Config) *ArcSegmenter {
	maxSegments := cfg.MaxArcSegments
	// An arc is queued as one atomic run of blocks, so it can never
	// use more segments than the buffer holds; long arcs trade a
	// little chordal accuracy for that.
	if maxSegments > cfg.BufferDepth {
		maxSegments = cfg.BufferDepth
	}
	return &ArcSegmenter{
		tolerance:   cfg.ArcTolerance,
		minRadius:   cfg.MinArcRadius,
		maxRadius:   cfg.MaxArcRadius,
		maxSegments: maxSegments,
	}
}

// PlanOffset resolves arc geometry from an IJ center offset relative
// to the start point.
func (s *ArcSegmenter) PlanOffset(start, end Coord, offset [2]float64, dir ArcDirection) (*ArcParams, error) {
	if offset[0] == 0 && offset[1] == 0 {
		return nil, validationErrorf("arc center offset is zero")
	}
	center := [2]float64{start[config.XAxis] + offset[0], start[config.YAxis] + offset[1]}
	radius := math.Hypot(offset[0], offset[1])
	endRadius := math.Hypot(end[config.XAxis]-center[0], end[config.YAxis]-center[1])
	if math.Abs(endRadius-radius) > s.tolerance {
		return nil, validationErrorf(
			"arc end point off circle by %.4f (radius %.4f)", math.Abs(endRadius-radius), radius)
	}
	return s.resolve(start, end, center, radius, dir, ArcFormatOffset)
}

// PlanRadius resolves arc geometry from a signed radius. The center is
// placed on the side of the chord selected jointly by the arc
// direction and the radius sign; a negative radius selects the major
// arc. A full circle cannot be specified this way.
func (s *ArcSegmenter) PlanRadius(start, end Coord, radius float64, dir ArcDirection) (*ArcParams, error) {
	if radius == 0 {
		return nil, validationErrorf("arc radius is zero")
	}
	dx := end[config.XAxis] - start[config.XAxis]
	dy := end[config.YAxis] - start[config.YAxis]
	chord := math.Hypot(dx, dy)
	if chord == 0 {
		return nil, validationErrorf("radius-form arc with coincident endpoints")
	}
	r := math.Abs(radius)
	half := 0.5 * chord
	if half > r {
		return nil, validationErrorf(
			"arc radius %.4f too small for chord %.4f", r, chord)
	}
	// Perpendicular half-height from the chord midpoint to the center.
	h := math.Sqrt(r*r - half*half)
	// Unit perpendicular of the chord, pointing to the CCW-minor side.
	px, py := -dy/chord, dx/chord
	side := 1.0
	if dir == ArcCW {
		side = -side
	}
	if radius < 0 {
		side = -side
	}
	center := [2]float64{
		start[config.XAxis] + 0.5*dx + side*h*px,
		start[config.YAxis] + 0.5*dy + side*h*py,
	}
	return s.resolve(start, end, center, r, dir, ArcFormatRadius)
}

func (s *ArcSegmenter) resolve(start, end Coord, center [2]float64, radius float64, dir ArcDirection, format ArcFormat) (*ArcParams, error) {
	if radius < s.minRadius || radius > s.maxRadius {
		return nil, validationErrorf("arc radius %.4f outside sane range [%v, %v]", radius, s.minRadius, s.maxRadius)
	}
	startAngle := math.Atan2(start[config.YAxis]-center[1], start[config.XAxis]-center[0])
	endAngle := math.Atan2(end[config.YAxis]-center[1], end[config.XAxis]-center[0])

	// Sweep, signed by direction: positive CCW, negative CW. The
	// endpoint coincidence case is normalized explicitly so an exact
	// 0/360 degree boundary always resolves to a full circle for the
	// offset form and is rejected for the radius form (handled above).
	sweep := endAngle - startAngle
	if dir == ArcCCW {
		if sweep <= 0 {
			sweep += 2 * math.Pi
		}
	} else {
		if sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	}
	planar := radius * math.Abs(sweep)
	linear := 0.0
	for i := 0; i < NumAxes; i++ {
		if i == config.XAxis || i == config.YAxis {
			continue
		}
		d := end[i] - start[i]
		linear += d * d
	}
	arcLength := planar
	if linear > 0 {
		arcLength = math.Hypot(planar, math.Sqrt(linear))
	}

	// Chordal tolerance bounds the segment length; see the classic
	// sagitta relation s = r - sqrt(r^2 - (c/2)^2).
	segLen := 2 * math.Sqrt(2*s.tolerance*radius)
	segments := int(math.Ceil(planar / segLen))
	if segments < 3 {
		segments = 3
	}
	if segments > s.maxSegments {
		segments = s.maxSegments
	}

	return &ArcParams{
		Start:        start,
		End:          end,
		Center:       center,
		Radius:       radius,
		StartAngle:   startAngle,
		EndAngle:     endAngle,
		TotalAngle:   sweep,
		Direction:    dir,
		Format:       format,
		Tolerance:    s.tolerance,
		ArcLength:    arcLength,
		SegmentCount: segments,
	}, nil
}

// Segment generates the linear targets approximating the arc, equally
// spaced in angle. The final target is forced to the exact end point
// so accumulated float error never displaces the programmed endpoint.
func (s *ArcSegmenter) Segment(p *ArcParams) []Coord {
	n := p.SegmentCount
	targets := make([]Coord, 0, n)
	for i := 1; i <= n; i++ {
		if i == n {
			targets = append(targets, p.End)
			break
		}
		frac := float64(i) / float64(n)
		theta := p.StartAngle + p.TotalAngle*frac
		var c Coord
		c[config.XAxis] = p.Center[0] + p.Radius*math.Cos(theta)
		c[config.YAxis] = p.Center[1] + p.Radius*math.Sin(theta)
		for a := 0; a < NumAxes; a++ {
			if a == config.XAxis || a == config.YAxis {
				continue
			}
			c[a] = p.Start[a] + (p.End[a]-p.Start[a])*frac
		}
		targets = append(targets, c)
	}
	return targets
}
