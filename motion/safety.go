package motion

import (
	"sync/atomic"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/logger"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
	"go.uber.org/multierr"
)

// AlarmCause identifies why motion is locked out. Alarms are sticky:
// no new motion is accepted until an explicit ClearAlarm.
type AlarmCause int32

const (
	AlarmNone AlarmCause = iota
	AlarmEStop
	AlarmHardLimit
	AlarmHomingTimeout
	AlarmHardwareFault
)

func (c AlarmCause) String() string {
	switch c {
	case AlarmNone:
		return "none"
	case AlarmEStop:
		return "emergency_stop"
	case AlarmHardLimit:
		return "hard_limit"
	case AlarmHomingTimeout:
		return "homing_timeout"
	case AlarmHardwareFault:
		return "hardware_fault"
	}
	return "unknown"
}

const (
	MinFeedOverride = 10
	MaxFeedOverride = 200
)

// SafetyGovernor holds the cross-cutting safety state consulted by
// both the submission path and the tick path. Everything here is
// atomic because EmergencyStop and hard-limit triggers can arrive from
// any context and must take effect by the next tick.
type SafetyGovernor struct {
	cfg      *config.Config
	estop    atomic.Bool
	feedHold atomic.Bool
	alarm    atomic.Int32
	// limitMask latches the axes whose hard-limit switches tripped.
	limitMask atomic.Uint32
	// override is the feed override percentage.
	override atomic.Int32
}

func NewSafetyGovernor(cfg *config.Config) *SafetyGovernor {
	g := &SafetyGovernor{cfg: cfg}
	g.override.Store(100)
	return g
}

// EmergencyStop latches the e-stop flag and its alarm. Callable from
// any context; observed by the executor on its next tick.
func (g *SafetyGovernor) EmergencyStop() {
	g.estop.Store(true)
	g.raise(AlarmEStop)
	logger.Warnf("emergency stop requested")
}

func (g *SafetyGovernor) EStopActive() bool { return g.estop.Load() }

// FeedHold freezes or resumes elapsed-time advancement without
// touching queued work. CycleStart is the resume half of the pair.
func (g *SafetyGovernor) FeedHold(hold bool) { g.feedHold.Store(hold) }

func (g *SafetyGovernor) CycleStart() { g.feedHold.Store(false) }

func (g *SafetyGovernor) FeedHoldActive() bool { return g.feedHold.Load() }

// SetFeedOverride sets the feed override percentage. Values outside
// [10, 200] are rejected.
func (g *SafetyGovernor) SetFeedOverride(percent int) error {
	if percent < MinFeedOverride || percent > MaxFeedOverride {
		return validationErrorf("feed override %d%% outside [%d, %d]",
			percent, MinFeedOverride, MaxFeedOverride)
	}
	g.override.Store(int32(percent))
	return nil
}

// Override returns the feed override as a scale factor.
func (g *SafetyGovernor) Override() float64 {
	return float64(g.override.Load()) / 100.0
}

// CheckSoftLimits validates a target against the per-axis travel
// bounds. Every violating axis is reported, not just the first.
func (g *SafetyGovernor) CheckSoftLimits(target Coord) error {
	var err error
	for i := 0; i < NumAxes; i++ {
		ax := g.cfg.Axes[i]
		if target[i] < ax.TravelMin || target[i] > ax.TravelMax {
			err = multierr.Append(err, limitErrorf("axis %s target %.4f outside travel [%.3f, %.3f]",
				config.AxisNames[i], target[i], ax.TravelMin, ax.TravelMax))
		}
	}
	return err
}

// HardLimitTrigger latches a hard-limit hit on one axis. The executor
// halts that axis's pulse output within the same tick.
func (g *SafetyGovernor) HardLimitTrigger(axis int) {
	if axis < 0 || axis >= NumAxes {
		return
	}
	for {
		old := g.limitMask.Load()
		if g.limitMask.CompareAndSwap(old, old|uint32(1)<<uint(axis)) {
			break
		}
	}
	g.raise(AlarmHardLimit)
	logger.Errorf("hard limit triggered on axis %s", config.AxisNames[axis])
}

// HardLimitMask returns the latched hard-limit axes as a bit mask.
func (g *SafetyGovernor) HardLimitMask() uint32 { return g.limitMask.Load() }

func (g *SafetyGovernor) raise(cause AlarmCause) {
	g.alarm.CompareAndSwap(int32(AlarmNone), int32(cause))
}

// RaiseAlarm latches an alarm cause raised outside the governor (the
// homing sequencer's timeout, a hardware fault from the pulse layer).
func (g *SafetyGovernor) RaiseAlarm(cause AlarmCause) { g.raise(cause) }

func (g *SafetyGovernor) Alarm() AlarmCause { return AlarmCause(g.alarm.Load()) }

func (g *SafetyGovernor) InAlarm() bool { return g.Alarm() != AlarmNone }

// ClearAlarm drops the latched alarm, the e-stop flag and the
// hard-limit latches. The engine flushes residual queued blocks as
// part of the same call.
func (g *SafetyGovernor) ClearAlarm() {
	prev := AlarmCause(g.alarm.Swap(int32(AlarmNone)))
	g.estop.Store(false)
	g.limitMask.Store(0)
	if prev != AlarmNone {
		logger.Infof("alarm cleared: %v", prev)
	}
}

// CheckMoveRates validates the kinematic inputs of a move before it is
// queued.
func (g *SafetyGovernor) CheckMoveRates(feedRate float64) error {
	if feedRate <= 0 {
		return kinematicErrorf("feed rate must be positive, got %v", feedRate)
	}
	return nil
}
