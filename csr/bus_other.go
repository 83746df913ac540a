//go:build !linux

package csr

import "errors"

// A PerfBus requires perf_event_open and only exists on Linux.
type PerfBus struct{}

// NewPerfBus fails on non-Linux hosts.
func NewPerfBus(pid, cpu int) (*PerfBus, error) {
	return nil, errors.New("csr: the perf-backed bus requires linux")
}

func (b *PerfBus) Read(csr uint16) (uint64, error)  { panic("csr: perf bus unavailable") }
func (b *PerfBus) Write(csr uint16, v uint64) error { panic("csr: perf bus unavailable") }
func (b *PerfBus) Close()                           {}
