package rvpmu

import "errors"

// Errors returned by the event lifecycle. Translation failures surface the
// errors of package events (events.ErrInvalidConfig, events.ErrUnsupported)
// unchanged.
var (
	// ErrNoSpace means no suitable counter is free, or the CPU's counter
	// capacity is already fully committed.
	ErrNoSpace = errors.New("rvpmu: no counter available")
	// ErrBusy means the shared PMC hardware reservation could not be
	// acquired.
	ErrBusy = errors.New("rvpmu: PMC hardware not available")
)
