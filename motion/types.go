// Package motion implements the trajectory core of the controller: the
// look-ahead queue of planned blocks, junction speed optimization, arc
// segmentation, velocity profile generation and the per-tick executor
// that feeds the hardware pulse layer.
package motion

import (
	"math"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
)

const NumAxes = config.NumAxes

// Coord is a machine position, one entry per axis, in configured
// linear units.
type Coord [NumAxes]float64

func (c Coord) Sub(o Coord) Coord {
	var d Coord
	for i := 0; i < NumAxes; i++ {
		d[i] = c[i] - o[i]
	}
	return d
}

func (c Coord) Norm() float64 {
	var sum float64
	for i := 0; i < NumAxes; i++ {
		sum += c[i] * c[i]
	}
	return math.Sqrt(sum)
}

func (c Coord) HasNaN() bool {
	for i := 0; i < NumAxes; i++ {
		if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
			return true
		}
	}
	return false
}

// ProfileType selects the velocity profile used to execute a block.
type ProfileType int

const (
	ProfileRapid ProfileType = iota
	ProfileLinear
	ProfileSCurve
)

func (p ProfileType) String() string {
	switch p {
	case ProfileRapid:
		return "rapid"
	case ProfileLinear:
		return "linear"
	case ProfileSCurve:
		return "s_curve"
	}
	return "unknown"
}

// MotionBlock is one planned straight-line segment. The submission path
// creates it, the junction optimizer mutates its entry/exit speeds
// while it sits in the buffer, and the executor consumes it read-only.
type MotionBlock struct {
	Id    uint64
	Start Coord
	End   Coord
	// Unit holds the per-axis direction cosines of the move.
	Unit     Coord
	Distance float64
	// NominalSpeed is the programmed speed after clamping to the
	// per-axis velocity limits.
	NominalSpeed float64
	// Accel is the minimum acceleration capability across the axes
	// participating in the move.
	Accel         float64
	EntrySpeed    float64
	ExitSpeed     float64
	MaxEntrySpeed float64
	Profile       ProfileType
	// DwellTime is nonzero only for zero-distance timed blocks.
	DwellTime float64
	Recalc    bool
	Valid     bool
}

// IsDwell reports whether the block is a pure timed wait.
func (b *MotionBlock) IsDwell() bool {
	return b.Distance == 0 && b.DwellTime > 0
}

// MotionState is the execution state of the active block.
type MotionState int

const (
	StateIdle MotionState = iota
	StateAccelerating
	StateConstantVelocity
	StateDecelerating
	StateComplete
)

func (s MotionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAccelerating:
		return "Accelerating"
	case StateConstantVelocity:
		return "ConstantVelocity"
	case StateDecelerating:
		return "Decelerating"
	case StateComplete:
		return "Complete"
	}
	return "unknown"
}
