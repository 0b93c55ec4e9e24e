package agent

import "errors"

var (
	// ErrMaxStepsExceeded is returned when the loop reaches its iteration ceiling.
	ErrMaxStepsExceeded = errors.New("organize loop exceeded max steps")
	// ErrRepeatedProtocolFault is returned when the model repeats an identical
	// out-of-contract response after it was already reported once.
	ErrRepeatedProtocolFault = errors.New("model repeated an identical protocol fault")
	// ErrInvalidRunStateTransition guards the run status state machine.
	ErrInvalidRunStateTransition = errors.New("invalid run state transition")
	// ErrContextNil is returned by components that require a context.
	ErrContextNil = errors.New("context is nil")
)
