package motion

import (
	"errors"
	"fmt"
)

// Error categories. Submission-path failures are synchronous return
// values; nothing crosses the tick boundary asynchronously.
var (
	// ErrValidation covers malformed, NaN or degenerate geometry.
	ErrValidation = errors.New("validation error")
	// ErrCapacity means the motion buffer is full; the caller must
	// back off and retry.
	ErrCapacity = errors.New("motion buffer full")
	// ErrKinematic covers non-positive feed rates, accelerations, or
	// unreachable profiles.
	ErrKinematic = errors.New("kinematic error")
	// ErrLimit covers soft-limit breaches at submission and the
	// sticky alarm raised by a hard-limit trigger.
	ErrLimit = errors.New("limit violation")
	// ErrTimeout is raised when a homing phase runs past its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrHardware is raised when the pulse-output layer reports a
	// start/stop failure.
	ErrHardware = errors.New("hardware fault")
	// ErrBusy means an exclusive operation (homing) is in progress.
	ErrBusy = errors.New("busy")
	// ErrAlarm means motion is locked out until the alarm is cleared.
	ErrAlarm = errors.New("alarm active")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func kinematicErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrKinematic, fmt.Sprintf(format, args...))
}

func limitErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrLimit, fmt.Sprintf(format, args...))
}
