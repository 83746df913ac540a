package events

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HardwareIDs maps event names used on the command line (and in platform
// description files) to generic hardware event ids.
var HardwareIDs = map[string]int{
	"cycles":              HwCPUCycles,
	"instructions":        HwInstructions,
	"cache-references":    HwCacheReferences,
	"cache-misses":        HwCacheMisses,
	"branch-instructions": HwBranchInstructions,
	"branch-misses":       HwBranchMisses,
	"bus-cycles":          HwBusCycles,
}

// CacheIDs, CacheOps and CacheResults name the three fields of a cache event.
var CacheIDs = map[string]int{
	"l1d":  CacheL1D,
	"l1i":  CacheL1I,
	"ll":   CacheLL,
	"dtlb": CacheDTLB,
	"itlb": CacheITLB,
	"bpu":  CacheBPU,
}

var CacheOps = map[string]int{
	"read":     OpRead,
	"write":    OpWrite,
	"prefetch": OpPrefetch,
}

var CacheResults = map[string]int{
	"access": ResultAccess,
	"miss":   ResultMiss,
}

func cacheAttrs() map[string]Attr {
	attrs := make(map[string]Attr)
	for cn, c := range CacheIDs {
		for on, o := range CacheOps {
			for rn, r := range CacheResults {
				name := fmt.Sprintf("%s-%s-%s", cn, on, rn)
				attrs[name] = Attr{
					Type:   TypeHWCache,
					Config: PackCache(c, o, r),
				}
			}
		}
	}
	return attrs
}

// HardwareNames returns the names of all generic hardware events, sorted.
func HardwareNames() []string {
	names := make([]string, 0, len(HardwareIDs))
	for name := range HardwareIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CacheNames returns the names of all cache events, sorted.
func CacheNames() []string {
	attrs := cacheAttrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameToAttr converts a string representation of an event to an Attr. Raw
// event-selector codes use the perf convention "rNNN" with NNN in hex.
func NameToAttr(name string) (Attr, error) {
	if id, ok := HardwareIDs[name]; ok {
		return Attr{Type: TypeHardware, Config: uint64(id)}, nil
	}
	if attr, ok := cacheAttrs()[name]; ok {
		return attr, nil
	}
	if strings.HasPrefix(name, "r") {
		code, err := strconv.ParseUint(name[1:], 16, 64)
		if err == nil {
			return Attr{Type: TypeRaw, Config: code}, nil
		}
	}
	return Attr{}, fmt.Errorf("not found: event %s", name)
}

// String returns the name of the event this Attr requests, preferably as the
// name accepted by NameToAttr.
func (a Attr) String() string {
	switch a.Type {
	case TypeHardware:
		for name, id := range HardwareIDs {
			if uint64(id) == a.Config {
				return name
			}
		}
	case TypeHWCache:
		for name, attr := range cacheAttrs() {
			if attr.Config == a.Config {
				return name
			}
		}
	case TypeRaw:
		return fmt.Sprintf("r%x", a.Config)
	}
	return "unknown"
}
