package motion

// StepOutputPort is the boundary to the hardware pulse layer. The
// executor calls it once per tick per axis; implementations must not
// block.
type StepOutputPort interface {
	SetStepRate(axis int, stepsPerSecond float64)
	SetDirection(axis int, forward bool)
	Enable() error
	Disable() error
}

// MotionHooks is the capability interface supplied at engine
// construction for completion and fault notification.
type MotionHooks interface {
	OnMotionComplete(blockId uint64)
	OnError(err error)
}

// NopHooks satisfies MotionHooks with no-ops.
type NopHooks struct{}

func (NopHooks) OnMotionComplete(uint64) {}
func (NopHooks) OnError(error)           {}
