package motion

import "math"

// RampPhase classifies where a profile is at a given elapsed time.
type RampPhase int

const (
	PhaseAccel RampPhase = iota
	PhaseCruise
	PhaseDecel
	PhaseDone
)

// VelocityProfile is a closed-form velocity-vs-time description of one
// block. At returns distance traveled and velocity at elapsed time t;
// both are clamped to the end state for t past TotalTime.
type VelocityProfile interface {
	TotalTime() float64
	TotalDistance() float64
	At(t float64) (dist, vel float64)
	Phase(t float64) RampPhase
}

// TrapezoidProfile is the constant-acceleration profile: accelerate,
// cruise, decelerate. Short moves collapse to a triangular profile
// with no cruise portion.
type TrapezoidProfile struct {
	AccelTime     float64
	AccelDistance float64
	ConstTime     float64
	ConstDistance float64
	DecelTime     float64
	DecelDistance float64
	PeakVelocity  float64
	EntryVelocity float64
	ExitVelocity  float64
	Accel         float64
	distance      float64
}

// NewTrapezoid computes a from-rest trapezoidal profile.
func NewTrapezoid(distance, targetVel, accel float64) (*TrapezoidProfile, error) {
	return NewTrapezoidMove(distance, 0, targetVel, 0, accel)
}

// NewTrapezoidMove computes a trapezoidal profile between the given
// entry and exit velocities. Junction-optimized blocks execute through
// this form; the junction optimizer guarantees entry and exit are
// reachable within the block, so the clamps here only absorb float
// rounding.
func NewTrapezoidMove(distance, entryVel, targetVel, exitVel, accel float64) (*TrapezoidProfile, error) {
	if distance <= 0 {
		return nil, kinematicErrorf("distance must be positive, got %v", distance)
	}
	if targetVel <= 0 {
		return nil, kinematicErrorf("target velocity must be positive, got %v", targetVel)
	}
	if accel <= 0 {
		return nil, kinematicErrorf("acceleration must be positive, got %v", accel)
	}
	if entryVel < 0 || exitVel < 0 {
		return nil, kinematicErrorf("entry/exit velocities must be non-negative")
	}
	if entryVel > targetVel {
		entryVel = targetVel
	}
	if exitVel > targetVel {
		exitVel = targetVel
	}

	p := &TrapezoidProfile{
		EntryVelocity: entryVel,
		ExitVelocity:  exitVel,
		Accel:         accel,
		distance:      distance,
	}

	halfInvAccel := 0.5 / accel
	accelD := (targetVel*targetVel - entryVel*entryVel) * halfInvAccel
	decelD := (targetVel*targetVel - exitVel*exitVel) * halfInvAccel
	peak := targetVel
	if accelD+decelD > distance {
		// Triangular profile: peak where the accel and decel ramps
		// intersect within the available distance.
		peakV2 := accel*distance + 0.5*(entryVel*entryVel+exitVel*exitVel)
		peak = math.Sqrt(peakV2)
		if peak < entryVel {
			peak = entryVel
		}
		if peak < exitVel {
			peak = exitVel
		}
		accelD = (peak*peak - entryVel*entryVel) * halfInvAccel
		decelD = distance - accelD
		if decelD < 0 {
			decelD = 0
			accelD = distance
		}
	}

	p.PeakVelocity = peak
	p.AccelDistance = accelD
	p.DecelDistance = decelD
	p.ConstDistance = distance - accelD - decelD
	if p.ConstDistance < 0 {
		p.ConstDistance = 0
	}
	// Time is distance over average velocity in each portion.
	if peak > entryVel {
		p.AccelTime = accelD / ((entryVel + peak) * 0.5)
	}
	if peak > 0 {
		p.ConstTime = p.ConstDistance / peak
	}
	if peak > exitVel {
		p.DecelTime = decelD / ((exitVel + peak) * 0.5)
	}
	return p, nil
}

func (p *TrapezoidProfile) TotalTime() float64 {
	return p.AccelTime + p.ConstTime + p.DecelTime
}

func (p *TrapezoidProfile) TotalDistance() float64 {
	return p.distance
}

func (p *TrapezoidProfile) At(t float64) (float64, float64) {
	if t <= 0 {
		return 0, p.EntryVelocity
	}
	if t < p.AccelTime {
		return p.EntryVelocity*t + 0.5*p.Accel*t*t, p.EntryVelocity + p.Accel*t
	}
	t -= p.AccelTime
	if t < p.ConstTime {
		return p.AccelDistance + p.PeakVelocity*t, p.PeakVelocity
	}
	t -= p.ConstTime
	if t < p.DecelTime {
		d := p.AccelDistance + p.ConstDistance + p.PeakVelocity*t - 0.5*p.Accel*t*t
		return d, p.PeakVelocity - p.Accel*t
	}
	return p.distance, p.ExitVelocity
}

func (p *TrapezoidProfile) Phase(t float64) RampPhase {
	switch {
	case t >= p.TotalTime():
		return PhaseDone
	case t < p.AccelTime:
		return PhaseAccel
	case t < p.AccelTime+p.ConstTime:
		return PhaseCruise
	default:
		return PhaseDecel
	}
}
