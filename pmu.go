// Package rvpmu multiplexes the architectural performance counters of a
// RISC-V machine onto logical performance events. It implements the counter
// allocation, the event lifecycle (init, add, start/stop, read, del,
// destroy), and wraparound-safe accumulation of free-running counter deltas
// into 64-bit totals. The monitoring framework on top owns scheduling policy
// and the user-facing API; the register access below is supplied through
// csr.Bus.
package rvpmu

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/zyedidia/rvpmu/csr"
	"github.com/zyedidia/rvpmu/events"
	"github.com/zyedidia/rvpmu/platform"
)

// A Driver is the set of lifecycle operations the monitoring framework binds
// when it registers a PMU.
type Driver interface {
	NewEvent(attr events.Attr) (*Event, error)
	Add(cpu int, ev *Event, flags Flag) error
	Del(cpu int, ev *Event, flags Flag)
	Start(ev *Event, flags Flag)
	Stop(ev *Event, flags Flag)
	Read(ev *Event)
}

// An IRQRequester claims and releases interrupt lines. It stands in for the
// interrupt controller, which is not this package's business.
type IRQRequester interface {
	Request(line int, handler func(line int)) error
	Free(line int)
}

// A PMU drives the counters one platform description declares. The
// per-operation concurrency contract matches the hardware's:
//
//   - Add, Del, Start and Stop touch per-CPU registry state and must be
//     serialized by the caller on the owning CPU (on a real system, by
//     running them with local interrupts off).
//   - Read is safe to call concurrently with itself from normal and
//     interrupt context; the baseline swap is lock-free.
//   - NewEvent and Destroy may be called from anywhere.
type PMU struct {
	desc *platform.Description
	acc  *csr.Accessor

	cpus []cpuEvents

	// OnUpdate, when set, runs after every start, add and del so external
	// observers can refresh cached counter metadata. Optional.
	OnUpdate func(*Event)

	// IRQ handles counter overflow interrupts while the reservation is
	// held. Nothing is re-armed on this hardware, so the default handler
	// only exists as a registration point. Optional.
	IRQ IRQRequester

	active    atomic.Int64
	reserveMu sync.Mutex
	reserved  bool // whether the IRQ line is currently held; guarded by reserveMu
}

var _ Driver = (*PMU)(nil)

// New returns a PMU for ncpus processors described by desc, with registers
// reached through bus. The description must already be published.
func New(desc *platform.Description, bus csr.Bus, ncpus int) (*PMU, error) {
	if !desc.Published() {
		return nil, fmt.Errorf("rvpmu: description %q is not published", desc.Compatible)
	}
	if ncpus < 1 {
		return nil, fmt.Errorf("rvpmu: need at least one cpu, have %d", ncpus)
	}
	return &PMU{
		desc: desc,
		acc:  csr.NewAccessor(bus, desc),
		cpus: make([]cpuEvents, ncpus),
	}, nil
}

// Description returns the published platform description the PMU runs on.
func (p *PMU) Description() *platform.Description { return p.desc }

// handleIRQ is the overflow interrupt skeleton. The counters cannot be
// written, so there is no sampling period to re-arm; the handler exists so
// that ports to interrupt-capable hardware have somewhere to hook in.
func (p *PMU) handleIRQ(line int) {
	log.Debugf("rvpmu: overflow interrupt on line %d ignored", line)
}

// getReservation claims the shared PMC hardware on the 0->1 active-event
// edge. Reservation traffic is rare, so a mutex is fine here; the per-read
// hot path never takes it.
//
// The refcount is incremented before the reservation is taken, so a second
// initializer racing with a failing first one can be handed a live event
// while no reservation is held. The reserved flag keeps the eventual
// releases of such events from freeing an IRQ line that was never granted;
// the next 0->1 initializer simply tries to reserve again.
func (p *PMU) getReservation() error {
	p.reserveMu.Lock()
	defer p.reserveMu.Unlock()
	if p.desc.IRQ >= 0 && p.IRQ != nil {
		if err := p.IRQ.Request(p.desc.IRQ, p.handleIRQ); err != nil {
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
	}
	p.reserved = true
	return nil
}

func (p *PMU) releaseReservation() {
	p.reserveMu.Lock()
	defer p.reserveMu.Unlock()
	if !p.reserved {
		return
	}
	p.reserved = false
	if p.desc.IRQ >= 0 && p.IRQ != nil {
		p.IRQ.Free(p.desc.IRQ)
	}
}

// putReservation drops one event's share of the reservation, releasing the
// hardware on the 1->0 edge.
func (p *PMU) putReservation() {
	if p.active.Add(-1) == 0 {
		p.releaseReservation()
	}
}

// NewEvent translates a generic event request and returns an initialized,
// unbound Event. The first live event in the system acquires the shared PMC
// hardware reservation; if that fails, NewEvent returns ErrBusy and the
// refcount is rolled back so a later attempt can retry. Translation
// failures surface as events.ErrInvalidConfig or events.ErrUnsupported.
func (p *PMU) NewEvent(attr events.Attr) (*Event, error) {
	if p.active.Add(1) == 1 {
		if err := p.getReservation(); err != nil {
			log.Warn("rvpmu: PMC hardware not available")
			p.active.Add(-1)
			return nil, err
		}
	}

	var code int
	var err error
	switch attr.Type {
	case events.TypeHardware:
		code, err = p.desc.MapHardwareEvent(attr.Config)
	case events.TypeHWCache:
		code, err = p.desc.MapCacheEvent(attr.Config)
	case events.TypeRaw:
		code = int(attr.Config)
	default:
		err = events.ErrInvalidConfig
	}
	if err != nil {
		p.putReservation()
		return nil, err
	}

	ev := &Event{
		pmu:    p,
		attr:   attr,
		config: uint64(code),
		idx:    Unbound,
	}
	if platform.IsBaseCounter(code) {
		ev.kind = kindBase
	} else {
		ev.kind = kindEvent
	}
	return ev, nil
}

// Add binds ev to a free counter on cpu and accounts it against the CPU's
// capacity. The event comes up stopped and up to date; FlagStart starts it
// before returning. Fails with ErrNoSpace when the CPU is at capacity or no
// suitable counter is free, leaving the registry untouched.
func (p *PMU) Add(cpu int, ev *Event, flags Flag) error {
	c := &p.cpus[cpu]

	if c.nEvents == p.desc.TotalCounters() {
		return ErrNoSpace
	}
	idx, err := c.alloc(ev, p.desc.NumHPMCounters)
	if err != nil {
		return err
	}

	c.nEvents++
	ev.cpu = cpu
	ev.idx = idx
	c.events[idx] = ev
	ev.state = stateUptodate | stateStopped

	log.Debugf("rvpmu: cpu%d bound %s to counter %d", cpu, ev.attr, idx)

	if flags&FlagStart != 0 {
		p.Start(ev, FlagReload)
	}
	p.update(ev)
	return nil
}

// Del unbinds ev from its counter on cpu, folding the final hardware
// reading into the logical total so no ticks are lost.
func (p *PMU) Del(cpu int, ev *Event, flags Flag) {
	c := &p.cpus[cpu]
	if ev.idx == Unbound || ev.cpu != cpu {
		panic(fmt.Sprintf("rvpmu: deleting event not bound on cpu%d", cpu))
	}

	c.nEvents--
	c.release(ev.idx)
	c.events[ev.idx] = nil

	if ev.state&stateStopped == 0 {
		p.Stop(ev, FlagUpdate)
	} else if ev.state&stateUptodate == 0 {
		p.Read(ev)
		ev.state |= stateUptodate
	}
	ev.idx = Unbound
	p.update(ev)
}

// Start enables counting for a stopped, bound event. The saved raw value is
// re-baselined to the current hardware reading on every start; the first
// delta after a (re)start would otherwise count ticks from before it.
func (p *PMU) Start(ev *Event, flags Flag) {
	if ev.state&stateStopped == 0 {
		panic("rvpmu: starting event that is not stopped")
	}
	if ev.idx == Unbound {
		panic("rvpmu: starting unbound event")
	}
	if flags&FlagReload != 0 {
		if ev.state&stateUptodate == 0 {
			panic("rvpmu: reload of event with stale total")
		}
		// Free-running counters: no period to set up.
	}

	ev.state = 0

	if p.desc.IsHPMCounter(ev.idx) {
		p.acc.WriteEvent(ev.idx, ev.config)
	}
	ev.prev.Store(p.readCounter(ev.idx))

	p.update(ev)
}

// Stop disables counting for a bound event. With FlagUpdate the logical
// total is brought current first unless it already is.
func (p *PMU) Stop(ev *Event, flags Flag) {
	if ev.idx == Unbound {
		panic("rvpmu: stopping unbound event")
	}

	if p.desc.IsHPMCounter(ev.idx) {
		p.acc.WriteEvent(ev.idx, 0)
	}

	if ev.state&stateStopped != 0 {
		panic("rvpmu: stopping stopped event")
	}
	ev.state |= stateStopped

	if flags&FlagUpdate != 0 && ev.state&stateUptodate == 0 {
		p.Read(ev)
		ev.state |= stateUptodate
	}
}

// Read folds the ticks since the last observation into ev's logical total.
// The baseline is advanced with a compare-and-retry loop so that concurrent
// readers (the owning CPU and an interrupt-context caller) each account a
// tick exactly once, and the delta is reduced modulo the counter width so
// wraparound needs no special detection.
func (p *PMU) Read(ev *Event) {
	var prev, cur uint64
	for {
		prev = ev.prev.Load()
		cur = p.readCounter(ev.idx)
		if ev.prev.CompareAndSwap(prev, cur) {
			break
		}
	}

	delta := (cur - prev) & widthMask(p.desc.CounterWidth(ev.idx))
	ev.count.Add(delta)
}

func (p *PMU) readCounter(idx int) uint64 {
	v, err := p.acc.ReadCounter(idx)
	if err != nil {
		// idx came out of the registry, so it is in range by construction.
		panic(fmt.Sprintf("rvpmu: reading counter %d: %v", idx, err))
	}
	return v
}

func (p *PMU) update(ev *Event) {
	if p.OnUpdate != nil {
		p.OnUpdate(ev)
	}
}

func widthMask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}
