package motion

import (
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/logger"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
)

// HomingPhase is the per-axis homing state.
type HomingPhase int

const (
	HomingIdle HomingPhase = iota
	HomingSeek
	HomingLocate
	HomingPulloff
	HomingComplete
	HomingError
)

func (p HomingPhase) String() string {
	switch p {
	case HomingIdle:
		return "Idle"
	case HomingSeek:
		return "Seek"
	case HomingLocate:
		return "Locate"
	case HomingPulloff:
		return "Pulloff"
	case HomingComplete:
		return "Complete"
	case HomingError:
		return "Error"
	}
	return "unknown"
}

// SwitchReader reports the state of the per-axis limit switches. Tests
// and the demo binary inject simulated switches through it.
type SwitchReader interface {
	LimitTriggered(axis int) bool
}

// HomingSequencer establishes machine zero one axis at a time: Seek
// drives fast toward the switch and debounces its assertion, Locate
// backs off slowly until the switch releases and redefines the logical
// position as the configured home coordinate, Pulloff clears the
// switch by a fixed distance. While active it has exclusive priority
// over queued motion; the executor does not consume blocks until the
// sequencer is Idle again.
type HomingSequencer struct {
	cfg      *config.Config
	switches SwitchReader

	phase HomingPhase
	// pending is the requested axis bit mask; axis is the one being
	// homed right now.
	pending uint8
	axis    int

	debounceTicks int
	timeoutTicks  int
	debounceCount int
	phaseTicks    int
	// pulloffLeft is the distance still to travel in Pulloff.
	pulloffLeft float64

	lastErr error
}

func NewHomingSequencer(cfg *config.Config, switches SwitchReader) *HomingSequencer {
	return &HomingSequencer{
		cfg:      cfg,
		switches: switches,
	}
}

// Start begins homing the axes in the mask, lowest axis first. It
// reports ErrBusy while a sequence is active and ErrValidation for an
// empty or out-of-range mask.
func (h *HomingSequencer) Start(axisMask uint8) error {
	if h.Active() {
		return ErrBusy
	}
	if axisMask == 0 || axisMask >= 1<<NumAxes {
		return validationErrorf("homing axis mask %#x invalid", axisMask)
	}
	h.pending = axisMask
	h.debounceTicks = int(h.cfg.HomingDebounce/h.cfg.TickPeriod + 0.5)
	if h.debounceTicks < 1 {
		h.debounceTicks = 1
	}
	h.timeoutTicks = int(h.cfg.HomingTimeout/h.cfg.TickPeriod + 0.5)
	h.lastErr = nil
	h.nextAxis()
	return nil
}

// Active reports whether the sequencer currently owns the tick.
func (h *HomingSequencer) Active() bool {
	return h.phase == HomingSeek || h.phase == HomingLocate || h.phase == HomingPulloff
}

func (h *HomingSequencer) Phase() HomingPhase { return h.phase }

func (h *HomingSequencer) Err() error { return h.lastErr }

// Abort resets the sequencer to Idle, zeroing any rate it commanded.
func (h *HomingSequencer) Abort(port StepOutputPort) {
	if h.Active() {
		port.SetStepRate(h.axis, 0)
	}
	h.phase = HomingIdle
	h.pending = 0
}

func (h *HomingSequencer) nextAxis() {
	for a := 0; a < NumAxes; a++ {
		if h.pending&(1<<uint(a)) != 0 {
			h.pending &^= 1 << uint(a)
			h.axis = a
			h.phase = HomingSeek
			h.debounceCount = 0
			h.phaseTicks = 0
			logger.Infof("homing axis %s: seek", config.AxisNames[a])
			return
		}
	}
	h.phase = HomingComplete
	logger.Infof("homing complete")
}

func (h *HomingSequencer) enterError(err error) {
	h.lastErr = err
	h.phase = HomingError
	h.pending = 0
	logger.Errorf("homing axis %s failed: %v", config.AxisNames[h.axis], err)
}

// Tick advances the sequence by one tick period, moving the current
// axis directly and writing its rate to the port. pos is the logical
// machine position owned by the tick context.
func (h *HomingSequencer) Tick(dt float64, pos *Coord, port StepOutputPort) {
	if !h.Active() {
		return
	}
	ax := h.cfg.Axes[h.axis]
	h.phaseTicks++
	if h.phaseTicks > h.timeoutTicks {
		port.SetStepRate(h.axis, 0)
		h.enterError(ErrTimeout)
		return
	}

	switch h.phase {
	case HomingSeek:
		h.moveAxis(dt, pos, port, ax.SeekRate, ax.HomeDir)
		if h.switches.LimitTriggered(h.axis) {
			h.debounceCount++
			if h.debounceCount >= h.debounceTicks {
				port.SetStepRate(h.axis, 0)
				h.phase = HomingLocate
				h.phaseTicks = 0
				logger.Infof("homing axis %s: locate", config.AxisNames[h.axis])
			}
		} else {
			// Switch must hold through the whole debounce window.
			h.debounceCount = 0
		}
	case HomingLocate:
		h.moveAxis(dt, pos, port, ax.LocateRate, -ax.HomeDir)
		if !h.switches.LimitTriggered(h.axis) {
			// The release edge pins machine zero for this axis.
			pos[h.axis] = ax.HomePosition
			port.SetStepRate(h.axis, 0)
			h.phase = HomingPulloff
			h.phaseTicks = 0
			h.pulloffLeft = ax.Pulloff
			logger.Infof("homing axis %s: pulloff", config.AxisNames[h.axis])
		}
	case HomingPulloff:
		step := ax.LocateRate * dt
		if step >= h.pulloffLeft {
			pos[h.axis] += float64(-ax.HomeDir) * h.pulloffLeft
			h.pulloffLeft = 0
			port.SetStepRate(h.axis, 0)
			h.nextAxis()
			return
		}
		h.pulloffLeft -= step
		h.moveAxis(dt, pos, port, ax.LocateRate, -ax.HomeDir)
	}
}

func (h *HomingSequencer) moveAxis(dt float64, pos *Coord, port StepOutputPort, rate float64, dir int) {
	pos[h.axis] += float64(dir) * rate * dt
	port.SetDirection(h.axis, dir > 0)
	port.SetStepRate(h.axis, rate*h.cfg.Axes[h.axis].StepsPerUnit)
}
