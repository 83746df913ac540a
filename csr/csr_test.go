package csr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyedidia/rvpmu/platform"
)

func testAccessor(t *testing.T) (*Accessor, *SimBus) {
	t.Helper()
	desc := platform.Generic()
	require.NoError(t, desc.Publish())
	bus := NewSimBus(desc.BaseWidth, desc.HPMWidth)
	return NewAccessor(bus, desc), bus
}

func TestReadCounterBounds(t *testing.T) {
	acc, bus := testAccessor(t)

	bus.Advance(platform.CounterCycle, 42)
	v, err := acc.ReadCounter(platform.CounterCycle)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	_, err = acc.ReadCounter(platform.CounterInstret)
	require.NoError(t, err)
	_, err = acc.ReadCounter(platform.HPMFirst)
	require.NoError(t, err)
	_, err = acc.ReadCounter(platform.HPMFirst + 5)
	require.NoError(t, err)

	// The time CSR and anything past the declared hpm counters are not
	// counters the engine may touch.
	for _, idx := range []int{platform.CounterTime, platform.HPMFirst + 6, -1, platform.NumSelectors} {
		_, err := acc.ReadCounter(idx)
		require.ErrorIs(t, err, ErrBadCounter, "selector %d", idx)
	}
}

func TestWriteCounterPanics(t *testing.T) {
	acc, _ := testAccessor(t)
	require.Panics(t, func() { acc.WriteCounter(platform.CounterCycle, 0) })
	require.Panics(t, func() { acc.WriteCounter(platform.HPMFirst, 123) })
}

func TestWriteEventFixedPanics(t *testing.T) {
	acc, _ := testAccessor(t)
	require.Panics(t, func() { acc.WriteEvent(platform.CounterCycle, 1) })
	require.Panics(t, func() { acc.WriteEvent(platform.CounterInstret, 1) })
	require.Panics(t, func() { acc.WriteEvent(platform.HPMFirst+6, 1) })
}

func TestSimSelectorGatesCounting(t *testing.T) {
	acc, bus := testAccessor(t)
	idx := platform.HPMFirst

	// Nothing programmed: the counter holds still.
	bus.Tick(1000)
	v, err := acc.ReadCounter(idx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)

	acc.WriteEvent(idx, 5)
	bus.Tick(1000)
	v, err = acc.ReadCounter(idx)
	require.NoError(t, err)
	require.NotZero(t, v)

	sel, err := bus.Read(EventCSR(idx))
	require.NoError(t, err)
	require.Equal(t, uint64(5), sel)

	// Writing 0 disables further counting but keeps the value.
	acc.WriteEvent(idx, 0)
	bus.Tick(1000)
	after, err := acc.ReadCounter(idx)
	require.NoError(t, err)
	require.Equal(t, v, after)
}

func TestSimFixedCountersFreeRun(t *testing.T) {
	acc, bus := testAccessor(t)
	bus.Tick(1000)

	cycles, err := acc.ReadCounter(platform.CounterCycle)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), cycles)

	instret, err := acc.ReadCounter(platform.CounterInstret)
	require.NoError(t, err)
	require.NotZero(t, instret)
	require.Less(t, instret, cycles)
}

func TestSimWidthWrap(t *testing.T) {
	bus := NewSimBus(8, 8)
	bus.Advance(platform.CounterCycle, 300)
	v, err := bus.Read(CounterCSR(platform.CounterCycle))
	require.NoError(t, err)
	require.Equal(t, uint64(300%256), v)
}

func TestSimCountersReadOnly(t *testing.T) {
	bus := NewSimBus(64, 64)
	require.Error(t, bus.Write(CounterCSR(platform.CounterCycle), 1))
	require.Error(t, bus.Write(CounterCSR(platform.HPMFirst), 1))
}

func TestCSRNumbers(t *testing.T) {
	require.Equal(t, uint16(0xC00), CounterCSR(platform.CounterCycle))
	require.Equal(t, uint16(0xC02), CounterCSR(platform.CounterInstret))
	require.Equal(t, uint16(0xC03), CounterCSR(platform.HPMFirst))
	require.Equal(t, uint16(0x323), EventCSR(platform.HPMFirst))
}
