package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testHardwareMap() HardwareMap {
	var m HardwareMap
	for i := range m {
		m[i] = Unsupported
	}
	m[HwCPUCycles] = 0
	m[HwInstructions] = 2
	return m
}

func TestHardwareMapLookup(t *testing.T) {
	m := testHardwareMap()

	code, err := m.Lookup(HwCPUCycles)
	require.NoError(t, err)
	require.Equal(t, 0, code)

	code, err = m.Lookup(HwInstructions)
	require.NoError(t, err)
	require.Equal(t, 2, code)

	for _, id := range []uint64{HwCacheReferences, HwCacheMisses, HwBranchInstructions, HwBranchMisses, HwBusCycles} {
		_, err := m.Lookup(id)
		require.ErrorIs(t, err, ErrUnsupported, "id %d", id)
	}

	_, err = m.Lookup(HwMax)
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = m.Lookup(1 << 40)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCacheMapLookup(t *testing.T) {
	var m CacheMap
	m.AllUnsupported()
	m[CacheL1D][OpRead][ResultMiss] = 0x102

	code, err := m.Lookup(PackCache(CacheL1D, OpRead, ResultMiss))
	require.NoError(t, err)
	require.Equal(t, 0x102, code)

	_, err = m.Lookup(PackCache(CacheL1D, OpRead, ResultAccess))
	require.ErrorIs(t, err, ErrUnsupported)

	outOfBounds := []uint64{
		PackCache(CacheMax, OpRead, ResultMiss),
		PackCache(CacheL1D, OpMax, ResultMiss),
		PackCache(CacheL1D, OpRead, ResultMax),
		PackCache(0xff, 0xff, 0xff),
	}
	for _, config := range outOfBounds {
		_, err := m.Lookup(config)
		require.ErrorIs(t, err, ErrInvalidConfig, "config %#x", config)
	}
}

func TestPackUnpack(t *testing.T) {
	config := PackCache(CacheITLB, OpPrefetch, ResultMiss)
	cache, op, result := UnpackCache(config)
	require.Equal(t, uint64(CacheITLB), cache)
	require.Equal(t, uint64(OpPrefetch), op)
	require.Equal(t, uint64(ResultMiss), result)
}

func TestNameToAttr(t *testing.T) {
	attr, err := NameToAttr("cycles")
	require.NoError(t, err)
	require.Equal(t, Attr{Type: TypeHardware, Config: HwCPUCycles}, attr)

	attr, err = NameToAttr("l1d-read-miss")
	require.NoError(t, err)
	require.Equal(t, Attr{Type: TypeHWCache, Config: PackCache(CacheL1D, OpRead, ResultMiss)}, attr)

	attr, err = NameToAttr("r1a2")
	require.NoError(t, err)
	require.Equal(t, Attr{Type: TypeRaw, Config: 0x1a2}, attr)

	_, err = NameToAttr("does-not-exist")
	require.Error(t, err)
	_, err = NameToAttr("rzz")
	require.Error(t, err)
}

func TestAttrString(t *testing.T) {
	for _, name := range append(HardwareNames(), CacheNames()...) {
		attr, err := NameToAttr(name)
		require.NoError(t, err)
		require.Equal(t, name, attr.String())
	}
	require.Equal(t, "r1a2", Attr{Type: TypeRaw, Config: 0x1a2}.String())
}
