package production

import "errors"

var (
	// ErrUnitNotFound - the unit does not exist
	ErrUnitNotFound = errors.New("unit not found")

	// ErrStepNotFound - the step does not exist or belongs to another product
	ErrStepNotFound = errors.New("production step not found")

	// ErrDuplicateCompletion - this (unit, step) pair already has a completion
	// record. Hard error by policy; not retry-safe, surface to a human.
	ErrDuplicateCompletion = errors.New("step already completed")
)
