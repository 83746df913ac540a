// Package csr provides access to the performance counter CSRs through a
// pluggable register bus. The Accessor is keyed by the small counter
// selectors of package platform and bounds-checks every access; the Bus
// behind it supplies the raw per-register reads and writes.
package csr

import (
	"errors"
	"fmt"

	"github.com/zyedidia/rvpmu/platform"
)

// Counter and event-selector CSR numbers from the priv spec. hpmcounterN
// lives at CounterBase+N; its event selector at EventBase+N. The machine-mode
// mhpmevent CSRs are what the bus is expected to reach, whether by SBI call,
// shadow CSR, or emulation.
const (
	CounterBase = 0xC00 // cycle
	EventBase   = 0x320 // mhpmevent0 (unimplemented; selectors start at 3)
)

// CounterCSR returns the CSR number of the counter idx selects.
func CounterCSR(idx int) uint16 {
	return uint16(CounterBase + idx)
}

// EventCSR returns the event-selector CSR number for a programmable counter.
func EventCSR(idx int) uint16 {
	return uint16(EventBase + idx)
}

// ErrBadCounter is returned for counter selectors outside the platform's
// fixed and programmable ranges.
var ErrBadCounter = errors.New("csr: counter selector out of range")

// A Bus reads and writes individual CSRs. Implementations exist for a
// simulated machine and, on Linux hosts, for perf-backed emulation; a port
// to real hardware supplies one backed by SBI or csrr.
type Bus interface {
	Read(csr uint16) (uint64, error)
	Write(csr uint16, v uint64) error
}

// An Accessor exposes the counters the platform declares, addressed by
// counter selector rather than CSR number.
type Accessor struct {
	bus  Bus
	desc *platform.Description
}

// NewAccessor returns an Accessor for the counters desc declares, backed by
// bus.
func NewAccessor(bus Bus, desc *platform.Description) *Accessor {
	return &Accessor{bus: bus, desc: desc}
}

// ReadCounter returns the current raw value of a counter. Selectors outside
// the fixed and programmable ranges fail with ErrBadCounter.
func (a *Accessor) ReadCounter(idx int) (uint64, error) {
	if !platform.IsBaseCounter(idx) && !a.desc.IsHPMCounter(idx) {
		return 0, ErrBadCounter
	}
	return a.bus.Read(CounterCSR(idx))
}

// WriteCounter always panics: the counters are free-running and cannot be
// seeded or reset. A port to hardware with writable counters must replace
// this rather than work around it.
func (a *Accessor) WriteCounter(idx int, v uint64) {
	panic(fmt.Sprintf("csr: counter %d is free-running and cannot be written", idx))
}

// WriteEvent programs which hardware activity a programmable counter
// observes. Code 0 disables the counter's activity. Fixed-function counters
// have no event selector; asking for one is a caller bug.
func (a *Accessor) WriteEvent(idx int, code uint64) {
	if !a.desc.IsHPMCounter(idx) {
		panic(fmt.Sprintf("csr: counter %d has no event selector", idx))
	}
	if err := a.bus.Write(EventCSR(idx), code); err != nil {
		panic(fmt.Sprintf("csr: writing event selector %d: %v", idx, err))
	}
}
