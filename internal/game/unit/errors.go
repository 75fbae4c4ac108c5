package unit

import "errors"

var (
	// ErrUnknownJob is returned when a job identifier or value is not one of the seven jobs.
	ErrUnknownJob = errors.New("unknown job")
	// ErrUnknownRank is returned when a rank identifier or value is not one of the five ranks.
	ErrUnknownRank = errors.New("unknown rank")
	// ErrInvalidAmount is returned for negative, NaN or infinite amounts.
	// The unit state is left untouched.
	ErrInvalidAmount = errors.New("amount must be a finite non-negative number")
	// ErrInvalidFraction is returned when a revive fraction is outside (0, 1].
	ErrInvalidFraction = errors.New("fraction must be in (0, 1]")
	// ErrInvalidLevel is returned when a unit is created or restored with a level
	// outside [1, MaxLevel].
	ErrInvalidLevel = errors.New("level must be in [1, 150]")
	// ErrInvalidName is returned when a unit name is empty.
	ErrInvalidName = errors.New("name must not be empty")
)
