//go:build linux

package csr

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/zyedidia/rvpmu/platform"
)

// A PerfBus emulates the counter CSRs on a hosted Linux kernel using
// perf_event_open: cycle and instret map to the generic cycle and
// instruction events, and writing an hpm event selector opens a raw hardware
// event with that code. This lets the engine run unmodified on a development
// machine with no RISC-V counters in sight.
//
// perf counters restart from zero every time they are opened, while CSR
// counters are free-running, so the bus keeps a per-counter base that
// accumulates the value of every closed counting period.
type PerfBus struct {
	mu sync.Mutex

	pid, cpu int

	fds       map[uint16]*os.File
	base      map[uint16]uint64
	selectors map[uint16]uint64
}

// NewPerfBus returns a Bus that counts for the given process and cpu, with
// the perf_event_open meaning for both: pid 0 is the calling process, cpu -1
// is any cpu.
func NewPerfBus(pid, cpu int) (*PerfBus, error) {
	b := &PerfBus{
		pid:       pid,
		cpu:       cpu,
		fds:       make(map[uint16]*os.File),
		base:      make(map[uint16]uint64),
		selectors: make(map[uint16]uint64),
	}
	// Open the fixed-function counters eagerly so that permission problems
	// surface at boot rather than on the first read.
	for idx, config := range map[int]uint64{
		platform.CounterCycle:   unix.PERF_COUNT_HW_CPU_CYCLES,
		platform.CounterInstret: unix.PERF_COUNT_HW_INSTRUCTIONS,
	} {
		f, err := b.open(unix.PERF_TYPE_HARDWARE, config)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.fds[CounterCSR(idx)] = f
	}
	return b, nil
}

func (b *PerfBus) open(typ uint32, config uint64) (*os.File, error) {
	attr := unix.PerfEventAttr{
		Type:   typ,
		Config: config,
	}
	attr.Size = uint32(unsafe.Sizeof(attr))
	attr.Bits = unix.PerfBitExcludeHv
	fd, err := unix.PerfEventOpen(&attr, b.pid, b.cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("csr: perf_event_open type=%d config=%#x: %w", typ, config, err)
	}
	return os.NewFile(uintptr(fd), "<perf-event>"), nil
}

func readCount(f *os.File) (uint64, error) {
	var buf [8]byte
	if _, err := f.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

// Read returns the emulated value of a counter or event-selector CSR.
func (b *PerfBus) Read(csr uint16) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if csr >= EventBase && csr < EventBase+platform.NumSelectors {
		return b.selectors[csr], nil
	}
	f, ok := b.fds[csr]
	if !ok {
		// Disabled or never-programmed counters hold their last value.
		return b.base[csr], nil
	}
	v, err := readCount(f)
	if err != nil {
		return 0, err
	}
	return b.base[csr] + v, nil
}

// Write stores an event selector, opening or closing the raw perf event
// behind the matching programmable counter. Counter CSRs are read-only.
func (b *PerfBus) Write(csr uint16, v uint64) error {
	if csr >= CounterBase && csr < CounterBase+platform.NumSelectors {
		return fmt.Errorf("csr: 0x%x is read-only", csr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	counter := CounterCSR(int(csr) - EventBase)
	if f, ok := b.fds[counter]; ok {
		// Fold the finished counting period into the base so the counter
		// appears free-running across reprogramming.
		if final, err := readCount(f); err == nil {
			b.base[counter] += final
		}
		f.Close()
		delete(b.fds, counter)
	}
	b.selectors[csr] = v
	if v == 0 {
		return nil
	}
	f, err := b.open(unix.PERF_TYPE_RAW, v)
	if err != nil {
		return err
	}
	b.fds[counter] = f
	return nil
}

// Close releases every perf event the bus holds open.
func (b *PerfBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for csr, f := range b.fds {
		f.Close()
		delete(b.fds, csr)
	}
}
