package motion

import (
	"math"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/logger"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
	uuid "github.com/satori/go.uuid"
)

// MoveType selects how a submitted move is planned.
type MoveType int

const (
	// MoveRapid runs at the machine rate limit; feed override does
	// not apply.
	MoveRapid MoveType = iota
	// MoveLinear runs at the programmed feed rate.
	MoveLinear
	// MoveArcCW and MoveArcCCW are segmented into linear blocks.
	MoveArcCW
	MoveArcCCW
)

// MoveRequest is one move as handed over by the (external) command
// layer, already free of modal state.
type MoveRequest struct {
	Target   Coord
	FeedRate float64
	Type     MoveType
	// CenterOffset is the IJ center offset for arcs specified in
	// offset form.
	CenterOffset *[2]float64
	// Radius is the signed radius for arcs specified in R form.
	Radius *float64
	// JerkLimited selects the S-curve profile for a linear move.
	JerkLimited bool
}

// Snapshot is a point-in-time view of the engine for telemetry.
type Snapshot struct {
	State           string
	Alarm           string
	HomingPhase     string
	Position        [NumAxes]float64
	BufferOccupancy int
	BufferCapacity  int
	FeedOverride    int
	FeedHold        bool
}

// MotionEngine is the explicitly constructed motion context: it owns
// the buffer, segmenter, optimizer, executor, homing sequencer and
// safety governor, and is handed by reference to every operation.
// Multiple isolated engines can coexist, which the tests rely on.
type MotionEngine struct {
	cfg   *config.Config
	buf   *MotionBuffer
	seg   *ArcSegmenter
	opt   *JunctionOptimizer
	gov   *SafetyGovernor
	exec  *TrajectoryExecutor
	homer *HomingSequencer
	port  StepOutputPort

	nextBlockId uint64
	// planPos is the end position of the most recently queued block;
	// submissions plan from it, not from the live machine position.
	planPos Coord
	// lastQueued remembers the newest block's geometry for junction
	// seeding even after it leaves the buffer.
	lastQueued    MotionBlock
	hasLastQueued bool
}

func NewMotionEngine(cfg *config.Config, port StepOutputPort, switches SwitchReader, hooks MotionHooks) *MotionEngine {
	buf := NewMotionBuffer(cfg.BufferDepth)
	gov := NewSafetyGovernor(cfg)
	e := &MotionEngine{
		cfg:   cfg,
		buf:   buf,
		seg:   NewArcSegmenter(cfg),
		opt:   NewJunctionOptimizer(cfg.JunctionDeviation),
		gov:   gov,
		exec:  NewTrajectoryExecutor(cfg, buf, gov, port, hooks),
		homer: NewHomingSequencer(cfg, switches),
		port:  port,
	}
	return e
}

// Governor exposes the safety governor for the hard-limit switch layer
// and telemetry.
func (e *MotionEngine) Governor() *SafetyGovernor { return e.gov }

// SubmitMove validates and queues one move request. Arc requests are
// segmented first; either every resulting block is queued or none is.
func (e *MotionEngine) SubmitMove(req MoveRequest) error {
	if e.gov.InAlarm() {
		return ErrAlarm
	}
	if e.homer.Active() {
		return ErrBusy
	}
	if req.Target.HasNaN() {
		return validationErrorf("target contains NaN or Inf")
	}
	if req.Type != MoveRapid {
		if err := e.gov.CheckMoveRates(req.FeedRate); err != nil {
			return err
		}
	}
	if err := e.gov.CheckSoftLimits(req.Target); err != nil {
		return err
	}

	reqId := uuid.NewV4()
	switch req.Type {
	case MoveArcCW, MoveArcCCW:
		return e.submitArc(reqId, req)
	default:
		return e.submitLinear(reqId, req)
	}
}

func (e *MotionEngine) submitLinear(reqId uuid.UUID, req MoveRequest) error {
	profile := ProfileLinear
	if req.Type == MoveRapid {
		profile = ProfileRapid
	} else if req.JerkLimited {
		profile = ProfileSCurve
	}
	block, err := e.makeBlock(e.planPos, req.Target, req.FeedRate, profile)
	if err != nil {
		return err
	}
	if e.buf.Free() < 1 {
		return ErrCapacity
	}
	e.queueBlock(block)
	e.opt.Recalculate(e.buf)
	logger.Debugf("move %s queued as block %d (%v, d=%.4f)", reqId, block.Id, profile, block.Distance)
	return nil
}

func (e *MotionEngine) submitArc(reqId uuid.UUID, req MoveRequest) error {
	dir := ArcCCW
	if req.Type == MoveArcCW {
		dir = ArcCW
	}
	var params *ArcParams
	var err error
	switch {
	case req.CenterOffset != nil:
		params, err = e.seg.PlanOffset(e.planPos, req.Target, *req.CenterOffset, dir)
	case req.Radius != nil:
		params, err = e.seg.PlanRadius(e.planPos, req.Target, *req.Radius, dir)
	default:
		return validationErrorf("arc request without center offset or radius")
	}
	if err != nil {
		return err
	}

	targets := e.seg.Segment(params)
	blocks := make([]*MotionBlock, 0, len(targets))
	from := e.planPos
	for _, target := range targets {
		block, err := e.makeBlock(from, target, req.FeedRate, ProfileLinear)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
		from = target
	}
	// All-or-nothing: the caller retries the whole arc on a full
	// buffer rather than splitting it across submissions.
	if e.buf.Free() < len(blocks) {
		return ErrCapacity
	}
	for _, b := range blocks {
		e.queueBlock(b)
	}
	e.opt.Recalculate(e.buf)
	logger.Debugf("arc %s (%v, r=%.4f, %d segments) queued", reqId, dir, params.Radius, len(blocks))
	return nil
}

// makeBlock builds a planned block from geometry and clamps its speed
// and acceleration to the per-axis machine limits.
func (e *MotionEngine) makeBlock(start, end Coord, feedRate float64, profile ProfileType) (*MotionBlock, error) {
	delta := end.Sub(start)
	distance := delta.Norm()
	if distance < 1e-9 {
		return nil, validationErrorf("zero-length move")
	}

	block := &MotionBlock{
		Start:    start,
		End:      end,
		Distance: distance,
		Profile:  profile,
	}
	speed := math.Inf(1)
	if profile != ProfileRapid {
		speed = feedRate
	}
	accel := math.Inf(1)
	for i := 0; i < NumAxes; i++ {
		block.Unit[i] = delta[i] / distance
		r := math.Abs(block.Unit[i])
		if r < 1e-12 {
			continue
		}
		// Participating axes bound speed and acceleration by their
		// own capability scaled to the move direction.
		speed = math.Min(speed, e.cfg.Axes[i].MaxVelocity/r)
		accel = math.Min(accel, e.cfg.Axes[i].MaxAccel/r)
	}
	if math.IsInf(speed, 1) || math.IsInf(accel, 1) {
		return nil, validationErrorf("move participates in no axis")
	}
	block.NominalSpeed = speed
	block.Accel = accel
	return block, nil
}

// queueBlock assigns the block id, seeds its junction speed against
// the previous newest block and adds it to the buffer.
func (e *MotionEngine) queueBlock(block *MotionBlock) {
	e.nextBlockId++
	block.Id = e.nextBlockId
	block.Recalc = true
	if e.hasLastQueued {
		block.MaxEntrySpeed = e.opt.JunctionSpeed(&e.lastQueued, block)
	} else {
		block.MaxEntrySpeed = 0
	}
	e.buf.Add(block)
	e.opt.BlockAdded()
	e.planPos = block.End
	e.lastQueued = *block
	e.hasLastQueued = true
}

// SubmitDwell queues a timed wait.
func (e *MotionEngine) SubmitDwell(seconds float64) error {
	if e.gov.InAlarm() {
		return ErrAlarm
	}
	if e.homer.Active() {
		return ErrBusy
	}
	if seconds <= 0 || math.IsNaN(seconds) {
		return validationErrorf("dwell time must be positive, got %v", seconds)
	}
	if e.buf.Free() < 1 {
		return ErrCapacity
	}
	e.nextBlockId++
	block := &MotionBlock{
		Id:        e.nextBlockId,
		Start:     e.planPos,
		End:       e.planPos,
		DwellTime: seconds,
	}
	e.buf.Add(block)
	e.opt.BlockAdded()
	e.opt.Recalculate(e.buf)
	e.lastQueued = *block
	e.hasLastQueued = true
	return nil
}

// StartHoming begins the homing sequence for the axes in the mask.
// Queued motion is rejected while it runs.
func (e *MotionEngine) StartHoming(axisMask uint8) error {
	if e.gov.InAlarm() {
		return ErrAlarm
	}
	if e.exec.State() != StateIdle || e.buf.Len() > 0 {
		return ErrBusy
	}
	return e.homer.Start(axisMask)
}

// AbortHoming cancels an in-flight homing sequence. Planning re-anchors
// at wherever the axis stopped.
func (e *MotionEngine) AbortHoming() {
	e.homer.Abort(e.port)
	e.resetPlanning()
}

// EmergencyStop latches the e-stop from any context. The executor
// clears rates, active block and buffer by the next tick; homing is
// forced off immediately.
func (e *MotionEngine) EmergencyStop() {
	e.gov.EmergencyStop()
	e.homer.Abort(e.port)
	e.resetPlanning()
}

func (e *MotionEngine) FeedHold(hold bool) { e.gov.FeedHold(hold) }

func (e *MotionEngine) CycleStart() { e.gov.CycleStart() }

func (e *MotionEngine) SetFeedOverride(percent int) error {
	return e.gov.SetFeedOverride(percent)
}

// ClearAlarm drops the sticky alarm and flushes residual queued work,
// re-anchoring planning at the live machine position.
func (e *MotionEngine) ClearAlarm() {
	e.buf.Clear()
	e.gov.ClearAlarm()
	e.resetPlanning()
}

func (e *MotionEngine) resetPlanning() {
	e.planPos = e.exec.Position()
	e.hasLastQueued = false
}

func (e *MotionEngine) GetCurrentPosition() Coord { return e.exec.Position() }

func (e *MotionEngine) GetMotionState() MotionState { return e.exec.State() }

func (e *MotionEngine) GetBufferOccupancy() int { return e.buf.Len() }

// Tick is the fixed-cadence entry point. The homing sequencer has
// exclusive priority over ordinary consumption while active.
func (e *MotionEngine) Tick() {
	dt := e.cfg.TickPeriod
	if e.gov.EStopActive() {
		e.homer.Abort(e.port)
	}
	if e.homer.Active() {
		e.exec.Tick(0) // still runs safety checks
		if e.gov.FeedHoldActive() {
			// Holding pauses the sequence in place; the switch state
			// is re-evaluated when motion resumes.
			return
		}
		e.homer.Tick(dt, e.exec.posPtr(), e.port)
		if e.homer.Phase() == HomingError {
			e.gov.RaiseAlarm(AlarmHomingTimeout)
		}
		if !e.homer.Active() {
			// The sequencer redefined the machine position; planning
			// must re-anchor on it or the next move starts from the
			// pre-homing coordinates.
			e.resetPlanning()
		}
		return
	}
	e.exec.Tick(dt)
	// E-stop also re-anchors the planning position once the executor
	// has halted.
	if e.gov.EStopActive() {
		e.resetPlanning()
	}
}

// Snapshot captures the telemetry view of the engine.
func (e *MotionEngine) Snapshot() Snapshot {
	return Snapshot{
		State:           e.exec.State().String(),
		Alarm:           e.gov.Alarm().String(),
		HomingPhase:     e.homer.Phase().String(),
		Position:        e.exec.Position(),
		BufferOccupancy: e.buf.Len(),
		BufferCapacity:  e.buf.Cap(),
		FeedOverride:    int(e.gov.Override()*100 + 0.5),
		FeedHold:        e.gov.FeedHoldActive(),
	}
}
