package rvpmu

import (
	"fmt"
	"math/bits"

	"github.com/zyedidia/rvpmu/platform"
)

// cpuEvents is one CPU's counter registry: which counters are occupied and
// by which event. All access is serialized by the caller on the owning CPU;
// see the concurrency notes on PMU.
type cpuEvents struct {
	// nEvents counts the events currently added on this CPU.
	nEvents int
	// used has one bit per counter selector.
	used uint32
	// events maps an occupied selector to its event.
	events [platform.NumSelectors]*Event
}

// alloc picks a counter for ev and marks it used. Fixed-class events get the
// selector their code names; programmable-class events get the
// lowest-numbered free hpmcounter. Fails with ErrNoSpace when nothing
// suitable is free.
func (c *cpuEvents) alloc(ev *Event, nhpm int) (int, error) {
	var idx int
	switch ev.kind {
	case kindBase:
		idx = int(ev.config)
		if !platform.IsBaseCounter(idx) || c.used&(1<<idx) != 0 {
			// A base-class event naming anything but a free fixed-function
			// counter means the translation tables are wrong.
			return 0, ErrNoSpace
		}
	case kindEvent:
		idx = platform.HPMFirst + bits.TrailingZeros32(^(c.used >> platform.HPMFirst))
		if idx >= platform.HPMFirst+nhpm {
			return 0, ErrNoSpace
		}
	default:
		panic(fmt.Sprintf("rvpmu: event with unclassified kind %d", ev.kind))
	}

	c.used |= 1 << idx
	return idx, nil
}

// release returns a counter to the free set. Releasing a counter that is not
// occupied is a caller bug, not something to paper over.
func (c *cpuEvents) release(idx int) {
	if c.used&(1<<idx) == 0 {
		panic(fmt.Sprintf("rvpmu: releasing free counter %d", idx))
	}
	c.used &^= 1 << idx
}
