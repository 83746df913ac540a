// Package platform describes the performance monitoring hardware of a
// RISC-V machine: how many counters it has, how wide they are, and which
// generic events its event selectors can express. A Description is built up
// during boot (from a built-in default or a description file) and then
// published, after which it is immutable and may be shared without locking.
package platform

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/zyedidia/rvpmu/events"
)

// Counter selectors. The numbering follows the priv spec's counter CSRs:
// cycle and instret are fixed-function, hpmcounter3 and up are programmable.
// Selector 1 is the time CSR and is never allocatable.
const (
	CounterCycle   = 0
	CounterTime    = 1
	CounterInstret = 2
	HPMFirst       = 3

	// BaseCounters is the number of fixed-function counters.
	BaseCounters = 2
	// MaxHPMCounters bounds the programmable counters an implementation may
	// declare (hpmcounter3 through hpmcounter31).
	MaxHPMCounters = 29
	// NumSelectors is the size of any table indexed by counter selector.
	NumSelectors = HPMFirst + MaxHPMCounters
)

// IsBaseCounter reports whether idx selects a fixed-function counter.
func IsBaseCounter(idx int) bool {
	return idx == CounterCycle || idx == CounterInstret
}

// minPrivSpec is the oldest priv spec revision with a usable counter CSR
// layout. Counter overflow interrupts additionally need irqPrivSpec.
var (
	minPrivSpec = semver.MustParse("1.10.0")
	irqPrivSpec = semver.MustParse("1.11.0")
)

// A Description holds everything the engine needs to know about the PMU
// hardware. Zero or more fields may be overridden before Publish; after
// Publish the Description is frozen.
type Description struct {
	// Compatible identifies the hardware this description matches, in
	// device tree "compatible" style.
	Compatible string

	// NumHPMCounters is how many programmable counters exist, starting at
	// hpmcounter3. May be zero.
	NumHPMCounters int

	// BaseWidth and HPMWidth are the usable bit widths of the fixed-function
	// and programmable counters.
	BaseWidth int
	HPMWidth  int

	// IRQ is the overflow interrupt line, or -1 if the hardware has none.
	IRQ int

	// PrivSpec is the priv spec revision the hardware implements.
	PrivSpec semver.Version

	// HW and Cache translate generic event requests to hardware codes.
	HW    events.HardwareMap
	Cache events.CacheMap

	published bool
}

// TotalCounters returns the per-CPU event capacity: every fixed-function
// counter plus every programmable one.
func (d *Description) TotalCounters() int {
	return BaseCounters + d.NumHPMCounters
}

// IsHPMCounter reports whether idx selects one of this platform's
// programmable counters.
func (d *Description) IsHPMCounter(idx int) bool {
	return idx >= HPMFirst && idx < HPMFirst+d.NumHPMCounters
}

// CounterWidth returns the bit width of the counter idx selects.
func (d *Description) CounterWidth(idx int) int {
	if IsBaseCounter(idx) {
		return d.BaseWidth
	}
	return d.HPMWidth
}

// MapHardwareEvent resolves a generic hardware event config to a hardware
// code. Safe to call concurrently once the Description is published.
func (d *Description) MapHardwareEvent(config uint64) (int, error) {
	return d.HW.Lookup(config)
}

// MapCacheEvent resolves a packed cache event config to a hardware code.
func (d *Description) MapCacheEvent(config uint64) (int, error) {
	return d.Cache.Lookup(config)
}

// SetHardwareEvent overrides the translation for one generic hardware event.
// Only legal before Publish.
func (d *Description) SetHardwareEvent(id int, code int) {
	d.mutable()
	if id < 0 || id >= events.HwMax {
		panic(fmt.Sprintf("platform: hardware event id %d out of range", id))
	}
	d.HW[id] = code
}

// SetCacheEvent overrides the translation for one cache event. Only legal
// before Publish.
func (d *Description) SetCacheEvent(cache, op, result int, code int) {
	d.mutable()
	if cache < 0 || cache >= events.CacheMax ||
		op < 0 || op >= events.OpMax ||
		result < 0 || result >= events.ResultMax {
		panic(fmt.Sprintf("platform: cache event (%d,%d,%d) out of range", cache, op, result))
	}
	d.Cache[cache][op][result] = code
}

func (d *Description) mutable() {
	if d.published {
		panic("platform: description mutated after publish")
	}
}

// Validate checks the Description's invariants without publishing it.
func (d *Description) Validate() error {
	if d.NumHPMCounters < 0 || d.NumHPMCounters > MaxHPMCounters {
		return fmt.Errorf("platform: %d hpm counters outside [0,%d]", d.NumHPMCounters, MaxHPMCounters)
	}
	if d.BaseWidth < 1 || d.BaseWidth > 64 {
		return fmt.Errorf("platform: base counter width %d outside [1,64]", d.BaseWidth)
	}
	if d.HPMWidth < 1 || d.HPMWidth > 64 {
		return fmt.Errorf("platform: hpm counter width %d outside [1,64]", d.HPMWidth)
	}
	if d.PrivSpec.LT(minPrivSpec) {
		return fmt.Errorf("platform: priv spec %s older than %s", d.PrivSpec, minPrivSpec)
	}
	if d.IRQ >= 0 && d.PrivSpec.LT(irqPrivSpec) {
		return fmt.Errorf("platform: overflow interrupt declared but priv spec %s older than %s", d.PrivSpec, irqPrivSpec)
	}
	return nil
}

// Publish validates the Description and freezes it. After a successful
// Publish all mutating methods panic and the Description may be shared
// freely between CPUs.
func (d *Description) Publish() error {
	if d.published {
		return nil
	}
	if err := d.Validate(); err != nil {
		return err
	}
	d.published = true
	return nil
}

// Published reports whether the Description has been frozen.
func (d *Description) Published() bool {
	return d.published
}
