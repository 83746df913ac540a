package platform

import (
	"github.com/blang/semver"

	"github.com/zyedidia/rvpmu/events"
)

func unsupportedDescription(compatible string) *Description {
	d := &Description{
		Compatible: compatible,
		IRQ:        -1,
	}
	for i := range d.HW {
		d.HW[i] = events.Unsupported
	}
	d.Cache.AllUnsupported()
	return d
}

// Base returns the most conservative description: the two fixed-function
// counters only, no programmable counters, no overflow interrupt. Any
// machine implementing the priv spec can run with it. The cycle and instret
// CSRs are 64-bit but only 63 bits are used so that deltas stay well clear
// of the sign bit in consumers that store totals in signed integers.
func Base() *Description {
	d := unsupportedDescription("riscv,base-pmu")
	d.BaseWidth = 63
	d.HPMWidth = 63
	d.PrivSpec = semver.MustParse("1.10.0")
	d.HW[events.HwCPUCycles] = CounterCycle
	d.HW[events.HwInstructions] = CounterInstret
	return d
}

// Generic returns a richer default: both fixed-function counters plus six
// programmable counters (hpmcounter3 through hpmcounter8), full-width. The
// generic->selector tables still map only cycles and instructions; raw
// event codes reach the programmable counters.
func Generic() *Description {
	d := unsupportedDescription("riscv,generic-pmu")
	d.NumHPMCounters = 6
	d.BaseWidth = 64
	d.HPMWidth = 64
	d.PrivSpec = semver.MustParse("1.11.0")
	d.HW[events.HwCPUCycles] = CounterCycle
	d.HW[events.HwInstructions] = CounterInstret
	return d
}
