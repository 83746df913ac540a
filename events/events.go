// Package events defines the generic performance event identifiers understood
// by the PMU engine and the translation tables that map them onto hardware
// counter selectors.
package events

import "errors"

var (
	// ErrInvalidConfig means the event config does not have the shape the
	// event type requires (an id or field out of its declared range).
	ErrInvalidConfig = errors.New("events: invalid event config")
	// ErrUnsupported means the config is well formed but the platform does
	// not implement this particular event.
	ErrUnsupported = errors.New("events: event not supported on this platform")
)

// Type tags a generic event request.
type Type int

const (
	// TypeHardware selects one of the generic hardware event ids below.
	TypeHardware Type = iota
	// TypeHWCache selects a packed (cache, op, result) triple.
	TypeHWCache
	// TypeRaw passes a hardware event-selector code through verbatim.
	TypeRaw
)

// An Attr is an immutable generic event request: a type tag plus a config
// value whose interpretation depends on the tag.
type Attr struct {
	Type   Type
	Config uint64
}

// Generic hardware event ids.
const (
	HwCPUCycles = iota
	HwInstructions
	HwCacheReferences
	HwCacheMisses
	HwBranchInstructions
	HwBranchMisses
	HwBusCycles
	HwMax
)

// Cache ids, operations and results for TypeHWCache events.
const (
	CacheL1D = iota
	CacheL1I
	CacheLL
	CacheDTLB
	CacheITLB
	CacheBPU
	CacheMax
)

const (
	OpRead = iota
	OpWrite
	OpPrefetch
	OpMax
)

const (
	ResultAccess = iota
	ResultMiss
	ResultMax
)

// Packed cache config layout: three 8-bit fields.
const (
	cacheTypeShift   = 0
	cacheOpShift     = 8
	cacheResultShift = 16
	cacheFieldMask   = 0xff
)

// PackCache builds the config value for a (cache, op, result) triple.
func PackCache(cache, op, result int) uint64 {
	return uint64(cache)<<cacheTypeShift |
		uint64(op)<<cacheOpShift |
		uint64(result)<<cacheResultShift
}

// UnpackCache splits a packed cache config into its three fields. The fields
// are not validated here; table lookups bounds-check them.
func UnpackCache(config uint64) (cache, op, result uint64) {
	cache = (config >> cacheTypeShift) & cacheFieldMask
	op = (config >> cacheOpShift) & cacheFieldMask
	result = (config >> cacheResultShift) & cacheFieldMask
	return cache, op, result
}

// Unsupported is the table sentinel marking an event the platform does not
// implement.
const Unsupported = -1

// A HardwareMap maps each generic hardware event id to a hardware counter
// selector (for events hardwired to a fixed-function counter) or an
// event-selector code, or Unsupported.
type HardwareMap [HwMax]int

// Lookup resolves a TypeHardware config through the map.
func (m *HardwareMap) Lookup(config uint64) (int, error) {
	if config >= HwMax {
		return 0, ErrInvalidConfig
	}
	code := m[config]
	if code == Unsupported {
		return 0, ErrUnsupported
	}
	return code, nil
}

// A CacheMap maps (cache, op, result) triples to event-selector codes or
// Unsupported.
type CacheMap [CacheMax][OpMax][ResultMax]int

// Lookup resolves a packed TypeHWCache config through the map. Out-of-range
// fields are rejected before indexing.
func (m *CacheMap) Lookup(config uint64) (int, error) {
	cache, op, result := UnpackCache(config)
	if cache >= CacheMax || op >= OpMax || result >= ResultMax {
		return 0, ErrInvalidConfig
	}
	code := m[cache][op][result]
	if code == Unsupported {
		return 0, ErrUnsupported
	}
	return code, nil
}

// AllUnsupported fills every cell of a CacheMap with Unsupported.
func (m *CacheMap) AllUnsupported() {
	for c := range m {
		for o := range m[c] {
			for r := range m[c][o] {
				m[c][o][r] = Unsupported
			}
		}
	}
}
