package platform

import (
	"strings"
	"testing"

	"github.com/blang/semver"
	"github.com/stretchr/testify/require"

	"github.com/zyedidia/rvpmu/events"
)

func TestBase(t *testing.T) {
	d := Base()
	require.Equal(t, 0, d.NumHPMCounters)
	require.Equal(t, 63, d.BaseWidth)
	require.Equal(t, -1, d.IRQ)
	require.Equal(t, BaseCounters, d.TotalCounters())

	code, err := d.MapHardwareEvent(events.HwCPUCycles)
	require.NoError(t, err)
	require.Equal(t, CounterCycle, code)
	code, err = d.MapHardwareEvent(events.HwInstructions)
	require.NoError(t, err)
	require.Equal(t, CounterInstret, code)
	_, err = d.MapHardwareEvent(events.HwBranchMisses)
	require.ErrorIs(t, err, events.ErrUnsupported)

	// The default cache tables support nothing.
	for c := 0; c < events.CacheMax; c++ {
		for o := 0; o < events.OpMax; o++ {
			for r := 0; r < events.ResultMax; r++ {
				_, err := d.MapCacheEvent(events.PackCache(c, o, r))
				require.ErrorIs(t, err, events.ErrUnsupported)
			}
		}
	}

	require.NoError(t, d.Validate())
}

func TestGeneric(t *testing.T) {
	d := Generic()
	require.Equal(t, 6, d.NumHPMCounters)
	require.Equal(t, 8, d.TotalCounters())
	require.Equal(t, 64, d.CounterWidth(CounterCycle))
	require.Equal(t, 64, d.CounterWidth(HPMFirst))
	require.True(t, d.IsHPMCounter(HPMFirst))
	require.True(t, d.IsHPMCounter(HPMFirst+5))
	require.False(t, d.IsHPMCounter(HPMFirst+6))
	require.False(t, d.IsHPMCounter(CounterCycle))
	require.NoError(t, d.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Description)
	}{
		{"too many hpm counters", func(d *Description) { d.NumHPMCounters = MaxHPMCounters + 1 }},
		{"negative hpm counters", func(d *Description) { d.NumHPMCounters = -1 }},
		{"zero base width", func(d *Description) { d.BaseWidth = 0 }},
		{"oversized base width", func(d *Description) { d.BaseWidth = 65 }},
		{"zero hpm width", func(d *Description) { d.HPMWidth = 0 }},
		{"priv spec too old", func(d *Description) { d.PrivSpec = semver.MustParse("1.9.0") }},
		{"irq without new enough priv spec", func(d *Description) {
			d.PrivSpec = semver.MustParse("1.10.0")
			d.IRQ = 5
		}},
	}
	for _, test := range tests {
		d := Generic()
		test.mutate(d)
		require.Error(t, d.Validate(), test.name)
		require.Error(t, d.Publish(), test.name)
	}
}

func TestPublishFreezes(t *testing.T) {
	d := Generic()
	d.SetHardwareEvent(events.HwBranchMisses, 0x6001)
	require.NoError(t, d.Publish())
	require.True(t, d.Published())

	// Publishing twice is fine, mutating afterwards is not.
	require.NoError(t, d.Publish())
	require.Panics(t, func() { d.SetHardwareEvent(events.HwBranchMisses, 0x6002) })
	require.Panics(t, func() { d.SetCacheEvent(events.CacheL1D, events.OpRead, events.ResultMiss, 0x102) })

	code, err := d.MapHardwareEvent(events.HwBranchMisses)
	require.NoError(t, err)
	require.Equal(t, 0x6001, code)
}

func TestSetEventBounds(t *testing.T) {
	d := Generic()
	require.Panics(t, func() { d.SetHardwareEvent(events.HwMax, 1) })
	require.Panics(t, func() { d.SetCacheEvent(events.CacheMax, 0, 0, 1) })
}

const testDesc = `
compatible: riscv,generic-pmu
priv-spec: 1.11.0
hpm-counters: 2
hpm-width: 48
hardware-events:
  branch-misses: 0x6001
cache-events:
  - cache: l1d
    op: read
    result: miss
    code: 0x102
`

func TestLoad(t *testing.T) {
	d, err := Load(strings.NewReader(testDesc))
	require.NoError(t, err)
	require.Equal(t, "riscv,generic-pmu", d.Compatible)
	require.Equal(t, 2, d.NumHPMCounters)
	require.Equal(t, 48, d.HPMWidth)
	require.Equal(t, 64, d.BaseWidth) // inherited from the template

	code, err := d.MapHardwareEvent(events.HwBranchMisses)
	require.NoError(t, err)
	require.Equal(t, 0x6001, code)
	code, err = d.MapCacheEvent(events.PackCache(events.CacheL1D, events.OpRead, events.ResultMiss))
	require.NoError(t, err)
	require.Equal(t, 0x102, code)

	// Cycles keep the template's fixed-counter mapping.
	code, err = d.MapHardwareEvent(events.HwCPUCycles)
	require.NoError(t, err)
	require.Equal(t, CounterCycle, code)

	require.NoError(t, d.Publish())
}

func TestLoadUnknownCompatible(t *testing.T) {
	d, err := Load(strings.NewReader("compatible: acme,rocket-pmu\n"))
	require.NoError(t, err)
	require.Equal(t, Base().Compatible, d.Compatible)
	require.Equal(t, 0, d.NumHPMCounters)
}

func TestLoadErrors(t *testing.T) {
	bad := []string{
		"compatible: riscv,base-pmu\npriv-spec: not-a-version\n",
		"hardware-events:\n  no-such-event: 1\n",
		"cache-events:\n  - cache: l9\n    op: read\n    result: miss\n    code: 1\n",
		"cache-events:\n  - cache: l1d\n    op: shred\n    result: miss\n    code: 1\n",
		"cache-events:\n  - cache: l1d\n    op: read\n    result: maybe\n    code: 1\n",
		"no-such-field: true\n",
	}
	for _, doc := range bad {
		_, err := Load(strings.NewReader(doc))
		require.Error(t, err, doc)
	}
}

func TestLoadIRQGate(t *testing.T) {
	doc := "compatible: riscv,base-pmu\nirq: 5\n"
	d, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	// Base is priv spec 1.10: declaring an overflow interrupt must not
	// survive validation.
	require.Error(t, d.Publish())
}
