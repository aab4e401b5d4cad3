package motion

import "math"

// Discrete stepper ramp: the integer recurrence form of a trapezoidal
// ramp, suitable for driving a hardware pulse timer directly. Each
// step event yields the delay (in timer ticks) before the next step:
//
//	delay(n+1) = delay(n) - (2*delay(n) + rest) / (4*n + 1)
//
// with the division remainder carried in rest so rounding error does
// not accumulate. The continuous TrapezoidProfile is the canonical
// ramp description; this recurrence is the hardware fast path and the
// two must agree on total distance and time within step rounding.

type RampState int

const (
	RampStop RampState = iota
	RampAccel
	RampRun
	RampDecel
)

func (s RampState) String() string {
	switch s {
	case RampStop:
		return "Stop"
	case RampAccel:
		return "Accel"
	case RampRun:
		return "Run"
	case RampDecel:
		return "Decel"
	}
	return "unknown"
}

// StepRamp is the per-axis ramp generator state.
type StepRamp struct {
	State RampState
	// StepDelay is the delay before the next step, in timer ticks.
	StepDelay uint32
	// minDelay is the delay at cruise speed.
	minDelay uint32
	// accelCount is the recurrence index: positive while
	// accelerating, negative while decelerating (counting up to 0).
	accelCount int32
	// decelStart is the remaining-step count at which deceleration
	// must begin.
	decelStart uint32
	// decelSteps is the (negative) recurrence index deceleration
	// starts from.
	decelSteps int32
	rest       uint32
	remaining  uint32
	totalSteps uint32
	timerFreq  float64
}

// NewStepRamp plans a ramp over totalSteps steps. accel and decel are
// in steps/s^2, maxRate in steps/s, timerFreq is the pulse timer tick
// rate in Hz. Moves too short to reach maxRate ramp triangularly.
func NewStepRamp(totalSteps uint32, accel, decel, maxRate, timerFreq float64) (*StepRamp, error) {
	if totalSteps == 0 {
		return nil, kinematicErrorf("step ramp with zero steps")
	}
	if accel <= 0 || decel <= 0 {
		return nil, kinematicErrorf("step ramp accel/decel must be positive")
	}
	if maxRate <= 0 {
		return nil, kinematicErrorf("step ramp max rate must be positive")
	}

	r := &StepRamp{
		State:      RampAccel,
		totalSteps: totalSteps,
		remaining:  totalSteps,
		timerFreq:  timerFreq,
	}
	r.minDelay = uint32(math.Max(1, math.Round(timerFreq/maxRate)))
	// First delay: c0 = f * sqrt(2/accel), with the classic 0.676
	// correction for the mid-step velocity error of the recurrence.
	c0 := 0.676 * timerFreq * math.Sqrt(2.0/accel)
	r.StepDelay = uint32(math.Max(float64(r.minDelay), math.Round(c0)))

	// Steps to reach cruise speed, and the accel/decel split point for
	// moves that never get there.
	maxSLim := uint32(math.Ceil(maxRate * maxRate / (2 * accel)))
	accelLim := uint32(math.Ceil(float64(totalSteps) * decel / (accel + decel)))
	if accelLim < maxSLim {
		// Triangular ramp: decelerate as soon as the accel share of
		// the move is used up.
		r.decelSteps = int32(accelLim) - int32(totalSteps)
	} else {
		r.decelSteps = -int32(math.Ceil(float64(maxSLim) * accel / decel))
	}
	if r.decelSteps == 0 {
		r.decelSteps = -1
	}
	r.decelStart = uint32(-r.decelSteps)
	if r.decelStart > totalSteps {
		r.decelStart = totalSteps
	}
	if r.decelStart == totalSteps {
		// Immediate deceleration: a one-phase crawl.
		r.State = RampDecel
		r.accelCount = -int32(totalSteps)
	}
	return r, nil
}

// Remaining reports the steps not yet emitted.
func (r *StepRamp) Remaining() uint32 { return r.remaining }

func (r *StepRamp) TotalSteps() uint32 { return r.totalSteps }

// Step consumes one step event and returns the delay in timer ticks
// before the next step. It returns (0, false) once the ramp has
// emitted all of its steps.
func (r *StepRamp) Step() (uint32, bool) {
	if r.State == RampStop || r.remaining == 0 {
		r.State = RampStop
		return 0, false
	}
	delay := r.StepDelay
	r.remaining--

	switch r.State {
	case RampAccel:
		r.accelCount++
		r.applyRecurrence()
		if r.remaining <= r.decelStart {
			r.State = RampDecel
			r.accelCount = -int32(r.remaining)
		} else if r.StepDelay <= r.minDelay {
			r.StepDelay = r.minDelay
			r.rest = 0
			r.State = RampRun
		}
	case RampRun:
		r.StepDelay = r.minDelay
		if r.remaining <= r.decelStart {
			r.State = RampDecel
			r.accelCount = -int32(r.remaining)
		}
	case RampDecel:
		r.accelCount++
		r.applyRecurrence()
		if r.accelCount >= 0 || r.remaining == 0 {
			r.State = RampStop
		}
	}
	if r.remaining == 0 {
		r.State = RampStop
	}
	return delay, true
}

// applyRecurrence advances the delay by one recurrence term. A
// negative accelCount (deceleration) grows the delay.
func (r *StepRamp) applyRecurrence() {
	den := 4*r.accelCount + 1
	if den == 0 {
		return
	}
	num := int64(2)*int64(r.StepDelay) + int64(r.rest)
	q := num / int64(den)
	rem := num % int64(den)
	if rem < 0 {
		rem = -rem
	}
	nd := int64(r.StepDelay) - q
	if nd < int64(r.minDelay) {
		nd = int64(r.minDelay)
		rem = 0
	}
	r.StepDelay = uint32(nd)
	r.rest = uint32(rem)
}

// TotalTime sums the emitted delays of a fresh copy of the ramp, in
// seconds. Used to reconcile the recurrence against the continuous
// profile.
func (r *StepRamp) TotalTime() float64 {
	cp := *r
	var ticks uint64
	for {
		d, ok := cp.Step()
		if !ok {
			break
		}
		ticks += uint64(d)
	}
	return float64(ticks) / r.timerFreq
}
