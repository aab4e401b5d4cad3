package motion

import "math"

// scPhase is one jerk-bounded segment of an S-curve profile. Position
// and velocity inside a phase follow the closed forms
//
//	v(τ) = v0 + a0·τ + ½·j·τ²
//	d(τ) = d0 + v0·τ + ½·a0·τ² + ⅙·j·τ³
//
// which keeps the whole profile continuous and differentiable at phase
// boundaries.
type scPhase struct {
	dur float64
	j   float64
	a0  float64
	v0  float64
	d0  float64
}

// SCurveProfile is the jerk-limited seven-phase profile: ramp accel up,
// constant accel, ramp accel down, constant velocity, ramp decel down,
// constant decel, ramp decel up. Short moves skip the constant-accel
// and cruise phases, degenerating toward the triangular case.
type SCurveProfile struct {
	phases   [7]scPhase
	starts   [7]float64
	total    float64
	distance float64
	// PeakVelocity may be below the requested target for short moves.
	PeakVelocity float64
	PeakAccel    float64
	Jerk         float64
}

// NewSCurve computes a from-rest jerk-limited profile covering the
// given distance.
func NewSCurve(distance, targetVel, accel, jerk float64) (*SCurveProfile, error) {
	if distance <= 0 {
		return nil, kinematicErrorf("distance must be positive, got %v", distance)
	}
	if targetVel <= 0 {
		return nil, kinematicErrorf("target velocity must be positive, got %v", targetVel)
	}
	if accel <= 0 {
		return nil, kinematicErrorf("acceleration must be positive, got %v", accel)
	}
	if jerk <= 0 {
		return nil, kinematicErrorf("jerk must be positive, got %v", jerk)
	}

	// Velocity gained by a full ramp-up/ramp-down pair at max accel;
	// below it the constant-accel phase vanishes.
	vStar := accel * accel / jerk

	vp := targetVel
	var tj, ta float64
	if vp < vStar {
		aPk := math.Sqrt(vp * jerk)
		tj = aPk / jerk
		ta = 0
	} else {
		tj = accel / jerk
		ta = vp/accel - tj
	}
	// Ramp distance: the jerk-symmetric accel curve averages vp/2.
	da := vp * (2*tj + ta) * 0.5

	if 2*da > distance {
		// Distance-limited: shrink the peak velocity until the accel
		// and decel ramps exactly cover the move.
		tjr := math.Cbrt(distance / (2 * jerk))
		if jerk*tjr <= accel {
			tj = tjr
			ta = 0
			vp = jerk * tj * tj
		} else {
			tj = accel / jerk
			vp = 0.5 * (-accel*tj + math.Sqrt(accel*accel*tj*tj+4*accel*distance))
			ta = vp/accel - tj
			if ta < 0 {
				ta = 0
			}
		}
		da = vp * (2*tj + ta) * 0.5
	}

	tv := (distance - 2*da) / vp
	if tv < 0 {
		tv = 0
	}
	aPk := jerk * tj

	p := &SCurveProfile{
		distance:     distance,
		PeakVelocity: vp,
		PeakAccel:    aPk,
		Jerk:         jerk,
	}
	durs := [7]float64{tj, ta, tj, tv, tj, ta, tj}
	jerks := [7]float64{jerk, 0, -jerk, 0, -jerk, 0, jerk}
	accels := [7]float64{0, aPk, aPk, 0, 0, -aPk, -aPk}
	v, d := 0.0, 0.0
	t := 0.0
	for i := 0; i < 7; i++ {
		p.phases[i] = scPhase{dur: durs[i], j: jerks[i], a0: accels[i], v0: v, d0: d}
		p.starts[i] = t
		dt := durs[i]
		d += v*dt + 0.5*accels[i]*dt*dt + jerks[i]*dt*dt*dt/6
		v += accels[i]*dt + 0.5*jerks[i]*dt*dt
		t += dt
	}
	p.total = t
	return p, nil
}

func (p *SCurveProfile) TotalTime() float64 { return p.total }

func (p *SCurveProfile) TotalDistance() float64 { return p.distance }

func (p *SCurveProfile) At(t float64) (float64, float64) {
	if t <= 0 {
		return 0, 0
	}
	if t >= p.total {
		return p.distance, 0
	}
	for i := 6; i >= 0; i-- {
		if t >= p.starts[i] {
			ph := &p.phases[i]
			tau := t - p.starts[i]
			v := ph.v0 + ph.a0*tau + 0.5*ph.j*tau*tau
			d := ph.d0 + ph.v0*tau + 0.5*ph.a0*tau*tau + ph.j*tau*tau*tau/6
			return d, v
		}
	}
	return 0, 0
}

func (p *SCurveProfile) Phase(t float64) RampPhase {
	if t >= p.total {
		return PhaseDone
	}
	cruiseStart := p.starts[3]
	decelStart := p.starts[4]
	switch {
	case t < cruiseStart:
		return PhaseAccel
	case t < decelStart && p.phases[3].dur > 0:
		return PhaseCruise
	default:
		return PhaseDecel
	}
}
