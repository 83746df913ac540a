package csr

import (
	"fmt"
	"sync"

	"github.com/zyedidia/rvpmu/platform"
)

// A SimBus is an in-memory machine for tests and hosted runs. Counters are
// free-running and read-only, exactly like the hardware: reads see values
// masked to the configured widths, writes to counter CSRs fail, and writes
// to event-selector CSRs control whether the matching programmable counter
// advances during Tick.
type SimBus struct {
	mu sync.Mutex

	baseWidth int
	hpmWidth  int

	counters  map[uint16]uint64
	selectors map[uint16]uint64
}

// NewSimBus returns a SimBus whose fixed-function counters wrap at baseWidth
// bits and whose programmable counters wrap at hpmWidth bits.
func NewSimBus(baseWidth, hpmWidth int) *SimBus {
	return &SimBus{
		baseWidth: baseWidth,
		hpmWidth:  hpmWidth,
		counters:  make(map[uint16]uint64),
		selectors: make(map[uint16]uint64),
	}
}

func widthMask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

func (b *SimBus) width(csr uint16) int {
	switch csr {
	case CounterCSR(platform.CounterCycle), CounterCSR(platform.CounterTime), CounterCSR(platform.CounterInstret):
		return b.baseWidth
	}
	return b.hpmWidth
}

// Read returns the value of a counter or event-selector CSR.
func (b *SimBus) Read(csr uint16) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if csr >= EventBase && csr < EventBase+platform.NumSelectors {
		return b.selectors[csr], nil
	}
	return b.counters[csr] & widthMask(b.width(csr)), nil
}

// Write stores an event-selector value. Counter CSRs are read-only, as on
// the hardware.
func (b *SimBus) Write(csr uint16, v uint64) error {
	if csr >= CounterBase && csr < CounterBase+platform.NumSelectors {
		return fmt.Errorf("csr: 0x%x is read-only", csr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectors[csr] = v
	return nil
}

// Advance moves one counter forward by delta ticks, wrapping at its width.
// Tests use it to place counters at exact values.
func (b *SimBus) Advance(idx int, delta uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	csr := CounterCSR(idx)
	b.counters[csr] = (b.counters[csr] + delta) & widthMask(b.width(csr))
}

// Tick advances the machine by n cycles: the cycle and time counters move by
// n, instret by a fixed fraction of n, and every programmable counter with a
// nonzero event selector by a fraction derived from its selector code. The
// exact rates are arbitrary but deterministic.
func (b *SimBus) Tick(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	add := func(idx int, delta uint64) {
		csr := CounterCSR(idx)
		b.counters[csr] = (b.counters[csr] + delta) & widthMask(b.width(csr))
	}
	add(platform.CounterCycle, n)
	add(platform.CounterTime, n)
	add(platform.CounterInstret, n-n/8)
	for idx := platform.HPMFirst; idx < platform.NumSelectors; idx++ {
		code := b.selectors[EventCSR(idx)]
		if code == 0 {
			continue
		}
		add(idx, n/(2+code%7))
	}
}
