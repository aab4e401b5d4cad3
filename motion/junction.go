package motion

import "math"

// Junction speed math follows the "approximated centripetal velocity"
// model: a circle of the configured junction deviation is fitted into
// the corner between two moves and the pass speed is the speed at
// which centripetal acceleration on that circle equals the move
// acceleration.

// Pairs closer to collinear than this cosine get no cornering penalty
// (a turn of roughly 18 degrees or less).
const junctionCosThreshold = 0.95

// JunctionOptimizer assigns safe entry and exit speeds across the
// queued region of the buffer. The junction geometry of each adjacent
// pair is evaluated once, when the newer block is added; the two
// feasibility passes then re-run over the whole region whenever the
// queue changes. It only runs in the submission context; the buffer
// lock keeps a pass from interleaving with the tick context retiring
// the tail.
type JunctionOptimizer struct {
	deviation    float64
	recalcNeeded bool
}

func NewJunctionOptimizer(junctionDeviation float64) *JunctionOptimizer {
	return &JunctionOptimizer{deviation: junctionDeviation}
}

// JunctionSpeed computes the safe pass speed between two adjacent
// blocks from the angle between their direction cosines. The
// submission path calls it to seed MaxEntrySpeed on every new block.
func (o *JunctionOptimizer) JunctionSpeed(prev, next *MotionBlock) float64 {
	limit := math.Min(prev.NominalSpeed, next.NominalSpeed)
	// S-curve blocks are planned stop-to-stop; they never chain
	// through a junction at speed.
	if prev.Profile == ProfileSCurve || next.Profile == ProfileSCurve {
		return 0
	}
	if prev.IsDwell() || next.IsDwell() {
		return 0
	}
	var cosTheta float64
	for i := 0; i < NumAxes; i++ {
		cosTheta -= prev.Unit[i] * next.Unit[i]
	}
	if cosTheta >= junctionCosThreshold {
		// Near-collinear, no penalty.
		return limit
	}
	sinHalf := math.Sqrt(math.Max(0.5*(1.0-cosTheta), 0))
	oneMinus := 1.0 - sinHalf
	if oneMinus <= 0 {
		// Full reversal, stop at the corner.
		return 0
	}
	accel := math.Min(prev.Accel, next.Accel)
	v := math.Sqrt(accel * o.deviation * sinHalf / oneMinus)
	return math.Min(v, limit)
}

// BlockAdded marks the queue dirty. Called by the submission path
// after a successful Add.
func (o *JunctionOptimizer) BlockAdded() {
	o.recalcNeeded = true
}

// Recalculate runs the two-pass look-ahead over the queued-but-not-
// executing region. Re-running it on an unchanged queue is idempotent
// and a no-op unless a block was added since the last run.
func (o *JunctionOptimizer) Recalculate(buf *MotionBuffer) {
	if !o.recalcNeeded {
		return
	}
	buf.planRegion(func(prevExit float64, region []*MotionBlock) {
		o.backwardPass(region)
		o.forwardPass(prevExit, region)
		for _, b := range region {
			b.Recalc = false
		}
	})
	o.recalcNeeded = false
}

// backwardPass walks newest to oldest enforcing that every block can
// decelerate from its entry speed to its exit speed within its own
// distance, assuming the machine stops after the newest block. It only
// ever lowers speeds; a reduction that invalidates the preceding
// block's exit ripples backward via the recalc flag.
func (o *JunctionOptimizer) backwardPass(region []*MotionBlock) {
	nextEntry := 0.0
	for i := len(region) - 1; i >= 0; i-- {
		b := region[i]
		b.ExitSpeed = nextEntry
		reachable := math.Sqrt(nextEntry*nextEntry + 2*b.Accel*b.Distance)
		entry := math.Min(b.MaxEntrySpeed, b.NominalSpeed)
		if entry > reachable {
			entry = reachable
			if i > 0 {
				region[i-1].Recalc = true
			}
		}
		b.EntrySpeed = entry
		nextEntry = entry
	}
}

// forwardPass walks oldest to newest clamping entry speeds the
// preceding block cannot accelerate to, then pins exit speeds so that
// exit(i) == entry(i+1) holds across the region. The predecessor's
// exit speed is frozen once it executes, so the first plannable block
// chains from prevExit but can never raise above it.
func (o *JunctionOptimizer) forwardPass(prevExit float64, region []*MotionBlock) {
	if len(region) == 0 {
		return
	}
	first := region[0]
	if first.EntrySpeed > prevExit {
		first.EntrySpeed = prevExit
	}
	for i := 1; i < len(region); i++ {
		p := region[i-1]
		b := region[i]
		reachable := math.Sqrt(p.EntrySpeed*p.EntrySpeed + 2*p.Accel*p.Distance)
		if b.EntrySpeed > reachable {
			b.EntrySpeed = reachable
		}
		p.ExitSpeed = b.EntrySpeed
	}
	// The newest block always plans to a stop.
	region[len(region)-1].ExitSpeed = 0
}
