package motion

import (
	"errors"
	"testing"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
)

// simSwitches models a limit switch at a fixed machine coordinate on
// the homing side of each axis.
type simSwitches struct {
	pos  *Coord
	trip [NumAxes]float64
}

func (s *simSwitches) LimitTriggered(axis int) bool {
	return s.pos[axis] <= s.trip[axis]
}

// deadSwitches never trigger.
type deadSwitches struct{}

func (deadSwitches) LimitTriggered(int) bool { return false }

func runHoming(t *testing.T, h *HomingSequencer, pos *Coord, port StepOutputPort, maxTicks int) {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		h.Tick(0.001, pos, port)
		if !h.Active() {
			return
		}
	}
	t.Fatalf("homing still active after %d ticks (phase %v)", maxTicks, h.Phase())
}

func TestHomingSingleAxisSequence(t *testing.T) {
	cfg := config.Default()
	pos := Coord{100, 100, 100, 100}
	sw := &simSwitches{pos: &pos}
	for i := range sw.trip {
		sw.trip[i] = -5
	}
	h := NewHomingSequencer(cfg, sw)
	port := &testPort{}

	if err := h.Start(1 << config.XAxis); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.Phase() != HomingSeek {
		t.Fatalf("phase after start %v, want Seek", h.Phase())
	}
	runHoming(t, h, &pos, port, 10000)

	if h.Phase() != HomingComplete {
		t.Fatalf("phase %v, want Complete (err %v)", h.Phase(), h.Err())
	}
	ax := cfg.Axes[config.XAxis]
	want := ax.HomePosition + ax.Pulloff // HomeDir -1, pulloff moves positive
	if !nearlyEqual(pos[config.XAxis], want, 1e-9) {
		t.Fatalf("homed X position %v, want %v", pos[config.XAxis], want)
	}
	if port.rates[config.XAxis] != 0 {
		t.Fatalf("rate still %v after homing", port.rates[config.XAxis])
	}
	// Untouched axes keep their positions.
	if pos[config.YAxis] != 100 {
		t.Fatalf("Y moved during X homing: %v", pos[config.YAxis])
	}
}

func TestHomingMultiAxisLowestFirst(t *testing.T) {
	cfg := config.Default()
	pos := Coord{50, 50, 50, 50}
	sw := &simSwitches{pos: &pos}
	for i := range sw.trip {
		sw.trip[i] = -2
	}
	h := NewHomingSequencer(cfg, sw)
	port := &testPort{}

	mask := uint8(1<<config.XAxis | 1<<config.ZAxis)
	if err := h.Start(mask); err != nil {
		t.Fatalf("start: %v", err)
	}
	// X homes before Z.
	for i := 0; i < 10000 && pos[config.ZAxis] == 50; i++ {
		h.Tick(0.001, &pos, port)
		if pos[config.ZAxis] != 50 && h.Phase() == HomingSeek {
			// Z started moving; X must already be at its final spot.
			want := cfg.Axes[config.XAxis].HomePosition + cfg.Axes[config.XAxis].Pulloff
			if !nearlyEqual(pos[config.XAxis], want, 1e-9) {
				t.Fatalf("Z started with X at %v, want %v", pos[config.XAxis], want)
			}
		}
	}
	runHoming(t, h, &pos, port, 20000)
	if h.Phase() != HomingComplete {
		t.Fatalf("phase %v, want Complete", h.Phase())
	}
	for _, a := range []int{config.XAxis, config.ZAxis} {
		want := cfg.Axes[a].HomePosition + cfg.Axes[a].Pulloff
		if !nearlyEqual(pos[a], want, 1e-9) {
			t.Fatalf("axis %s at %v, want %v", config.AxisNames[a], pos[a], want)
		}
	}
	if pos[config.YAxis] != 50 {
		t.Fatalf("Y moved: %v", pos[config.YAxis])
	}
}

func TestHomingDebounceIgnoresGlitch(t *testing.T) {
	cfg := config.Default()
	pos := Coord{}
	glitch := &glitchSwitch{}
	h := NewHomingSequencer(cfg, glitch)
	port := &testPort{}
	if err := h.Start(1 << config.XAxis); err != nil {
		t.Fatalf("start: %v", err)
	}
	// A two-tick blip is shorter than the 5ms debounce window and must
	// not advance the phase.
	glitch.on = true
	h.Tick(0.001, &pos, port)
	h.Tick(0.001, &pos, port)
	glitch.on = false
	h.Tick(0.001, &pos, port)
	if h.Phase() != HomingSeek {
		t.Fatalf("phase %v after glitch, want still Seek", h.Phase())
	}
	// A held switch passes the window.
	glitch.on = true
	for i := 0; i < 10; i++ {
		h.Tick(0.001, &pos, port)
	}
	if h.Phase() != HomingLocate {
		t.Fatalf("phase %v after held switch, want Locate", h.Phase())
	}
}

type glitchSwitch struct{ on bool }

func (g *glitchSwitch) LimitTriggered(int) bool { return g.on }

func TestHomingTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.HomingTimeout = 0.05
	pos := Coord{}
	h := NewHomingSequencer(cfg, deadSwitches{})
	port := &testPort{}
	if err := h.Start(1 << config.YAxis); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 200 && h.Active(); i++ {
		h.Tick(0.001, &pos, port)
	}
	if h.Phase() != HomingError {
		t.Fatalf("phase %v, want Error", h.Phase())
	}
	if !errors.Is(h.Err(), ErrTimeout) {
		t.Fatalf("err = %v, want timeout", h.Err())
	}
	if port.rates[config.YAxis] != 0 {
		t.Fatalf("rate still %v after timeout", port.rates[config.YAxis])
	}
}

func TestHomingStartRules(t *testing.T) {
	cfg := config.Default()
	h := NewHomingSequencer(cfg, deadSwitches{})
	if err := h.Start(0); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty mask: err = %v, want validation error", err)
	}
	if err := h.Start(1 << NumAxes); !errors.Is(err, ErrValidation) {
		t.Fatalf("out-of-range mask: err = %v, want validation error", err)
	}
	if err := h.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Start(1); !errors.Is(err, ErrBusy) {
		t.Fatalf("second start: err = %v, want busy", err)
	}
}
