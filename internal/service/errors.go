package service

import (
	"errors"
	"fmt"
)

// Failure kinds returned by the live session engine.  Callers match them
// with errors.Is; the wrapped message carries the specific cause.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrProviderUnavailable = errors.New("room provider unavailable")
	ErrInvalidArgument     = errors.New("invalid argument")

	// ErrInvalidTransition is a PreconditionFailed for a phase change the
	// transition table does not allow.
	ErrInvalidTransition = fmt.Errorf("%w: invalid phase transition", ErrPreconditionFailed)
)
