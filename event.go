package rvpmu

import (
	"sync/atomic"

	"github.com/zyedidia/rvpmu/events"
)

// kind classifies a resolved event by the counter class that can count it.
type kind int

const (
	kindBase  kind = iota + 1 // hardwired to a fixed-function counter
	kindEvent                 // needs a programmable counter
)

// state tracks where an added event is in its start/stop cycle.
type state uint8

const (
	// stateStopped is set while the event's counter activity is disabled.
	stateStopped state = 1 << iota
	// stateUptodate is set when the logical total already reflects the
	// latest hardware read.
	stateUptodate
)

// A Flag modifies a lifecycle operation.
type Flag int

const (
	// FlagStart makes Add start the event immediately.
	FlagStart Flag = 1 << iota
	// FlagReload asks Start to re-arm a sampling period. The counters here
	// are free-running, so it only asserts that the total is up to date.
	FlagReload
	// FlagUpdate makes Stop fold the final hardware reading into the total.
	FlagUpdate
)

// Unbound marks an event not currently holding a counter.
const Unbound = -1

// An Event is the hardware-side state of one logical performance event: its
// resolved hardware code, the counter currently bound to it, and the
// wraparound-safe running total. Events are created by PMU.NewEvent and
// freed by Destroy.
//
// The prev baseline is read and replaced from both normal and interrupt-like
// contexts, so it is only ever touched through atomic operations. Everything
// else is guarded by the caller's serialization of Add/Del/Start/Stop on the
// owning CPU.
type Event struct {
	pmu  *PMU
	attr events.Attr

	kind   kind
	config uint64 // fixed counter selector (kindBase) or event-selector code

	cpu int // CPU the event is bound on, valid while idx != Unbound
	idx int // bound counter selector, or Unbound

	state state

	prev  atomic.Uint64 // last-observed raw counter value
	count atomic.Uint64 // running logical total
}

// Attr returns the generic request this event was created from.
func (e *Event) Attr() events.Attr { return e.attr }

// Count returns the event's running logical total. It does not read the
// hardware; call PMU.Read first for a current value.
func (e *Event) Count() uint64 { return e.count.Load() }

// Index returns the counter selector the event is bound to, or Unbound. The
// framework uses it as the user-visible counter identity.
func (e *Event) Index() int { return e.idx }

// Destroy frees the event's share of the PMC hardware reservation. If the
// event is still bound to a counter it is deleted first.
func (e *Event) Destroy() {
	if e.idx != Unbound {
		e.pmu.Del(e.cpu, e, FlagUpdate)
	}
	e.pmu.putReservation()
}
