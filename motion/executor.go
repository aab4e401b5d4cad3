package motion

import (
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/logger"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/sys"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
)

// TrajectoryExecutor advances the active block once per fixed tick.
// It is the sole writer of the machine position and active-block
// state; everything it does per tick is bounded, because the hardware
// pulse cadence depends on it returning promptly.
type TrajectoryExecutor struct {
	cfg   *config.Config
	buf   *MotionBuffer
	gov   *SafetyGovernor
	port  StepOutputPort
	hooks MotionHooks

	pos     Coord
	active  *MotionBlock
	profile VelocityProfile
	elapsed float64
	state   MotionState

	guard sys.TickGuard
}

func NewTrajectoryExecutor(cfg *config.Config, buf *MotionBuffer, gov *SafetyGovernor,
	port StepOutputPort, hooks MotionHooks) *TrajectoryExecutor {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &TrajectoryExecutor{
		cfg:   cfg,
		buf:   buf,
		gov:   gov,
		port:  port,
		hooks: hooks,
		state: StateIdle,
	}
}

func (e *TrajectoryExecutor) State() MotionState { return e.state }

// Position returns the machine position. Reading a Coord concurrently
// with the tick context is for telemetry only; per-axis floats may be
// one tick apart.
func (e *TrajectoryExecutor) Position() Coord { return e.pos }

// SetPosition overrides the logical position. Only the homing
// sequencer and tests use it, from the tick context.
func (e *TrajectoryExecutor) SetPosition(pos Coord) { e.pos = pos }

func (e *TrajectoryExecutor) posPtr() *Coord { return &e.pos }

// Tick advances motion by one tick period. The caller must drive it
// from a single goroutine at the configured cadence.
func (e *TrajectoryExecutor) Tick(dt float64) {
	if !e.guard.Check() {
		logger.Errorf("tick handler entered from a second goroutine")
		return
	}

	if e.gov.EStopActive() {
		e.haltAll()
		e.buf.Clear()
		return
	}

	// A latched hard limit halts the triggering axes' pulse output and
	// blocks everything else until the alarm is cleared.
	if mask := e.gov.HardLimitMask(); mask != 0 {
		for a := 0; a < NumAxes; a++ {
			if mask&(1<<uint(a)) != 0 {
				e.port.SetStepRate(a, 0)
			}
		}
	}
	if e.gov.InAlarm() {
		e.haltAll()
		return
	}

	if e.gov.FeedHoldActive() {
		// Position holds; queued work survives.
		e.zeroRates()
		return
	}

	remaining := dt
	for remaining > 0 {
		if e.active == nil {
			if !e.dequeue() {
				e.zeroRates()
				e.state = StateIdle
				return
			}
		}
		consumed := e.advance(remaining)
		remaining -= consumed
		if e.state != StateComplete {
			return
		}
		// Block finished mid-tick: consume the next with no idle gap.
		e.finishActive()
	}
}

// dequeue pulls the next block from the buffer and computes its
// profile up front, so per-tick work is pure evaluation.
func (e *TrajectoryExecutor) dequeue() bool {
	block, ok := e.buf.GetNext()
	if !ok {
		return false
	}
	e.active = &block
	e.elapsed = 0
	if block.IsDwell() {
		e.profile = nil
		e.state = StateConstantVelocity
		return true
	}
	profile, err := e.profileFor(&block)
	if err != nil {
		// An unreachable profile at this point is a planning bug;
		// surface it and drop the block rather than stall the queue.
		logger.Errorf("block %d profile: %v", block.Id, err)
		e.hooks.OnError(err)
		e.buf.Complete()
		e.active = nil
		return false
	}
	e.profile = profile
	e.state = StateAccelerating
	return true
}

func (e *TrajectoryExecutor) profileFor(b *MotionBlock) (VelocityProfile, error) {
	switch b.Profile {
	case ProfileSCurve:
		return NewSCurve(b.Distance, b.NominalSpeed, b.Accel, e.cfg.JerkLimit)
	default:
		return NewTrapezoidMove(b.Distance, b.EntrySpeed, b.NominalSpeed, b.ExitSpeed, b.Accel)
	}
}

// advance moves elapsed time forward by up to dt and emits the
// resulting axis rates. It returns the amount of dt actually consumed;
// anything left over belongs to the next block.
func (e *TrajectoryExecutor) advance(dt float64) float64 {
	b := e.active

	if b.IsDwell() {
		left := b.DwellTime - e.elapsed
		if dt < left {
			e.elapsed += dt
			e.zeroRates()
			return dt
		}
		e.state = StateComplete
		return left
	}

	// Feed override scales execution time; rapids always run at the
	// planned rate.
	scale := 1.0
	if b.Profile != ProfileRapid {
		scale = e.gov.Override()
	}
	total := e.profile.TotalTime()
	left := (total - e.elapsed) / scale
	consumed := dt
	if dt >= left {
		consumed = left
		e.elapsed = total
	} else {
		e.elapsed += dt * scale
	}

	if e.elapsed >= total {
		// Snap to the exact end position.
		e.pos = b.End
		e.zeroRates()
		e.state = StateComplete
		return consumed
	}

	dist, vel := e.profile.At(e.elapsed)
	for i := 0; i < NumAxes; i++ {
		e.pos[i] = b.Start[i] + b.Unit[i]*dist
		e.port.SetDirection(i, b.Unit[i] >= 0)
		rate := vel * scale * b.Unit[i] * e.cfg.Axes[i].StepsPerUnit
		if rate < 0 {
			rate = -rate
		}
		e.port.SetStepRate(i, rate)
	}

	switch e.profile.Phase(e.elapsed) {
	case PhaseAccel:
		e.state = StateAccelerating
	case PhaseCruise:
		e.state = StateConstantVelocity
	case PhaseDecel:
		e.state = StateDecelerating
	default:
		e.state = StateComplete
	}
	return consumed
}

func (e *TrajectoryExecutor) finishActive() {
	id := e.active.Id
	e.buf.Complete()
	e.active = nil
	e.profile = nil
	e.elapsed = 0
	e.hooks.OnMotionComplete(id)
}

func (e *TrajectoryExecutor) zeroRates() {
	for i := 0; i < NumAxes; i++ {
		e.port.SetStepRate(i, 0)
	}
}

// haltAll zeroes every axis rate and discards the active block. Used
// by the e-stop and alarm paths.
func (e *TrajectoryExecutor) haltAll() {
	e.zeroRates()
	e.active = nil
	e.profile = nil
	e.elapsed = 0
	e.state = StateIdle
}

// ResetTickOwner releases the single-goroutine tick assertion, for
// tests that drive ticks from more than one goroutine in sequence.
func (e *TrajectoryExecutor) ResetTickOwner() { e.guard.Reset() }
