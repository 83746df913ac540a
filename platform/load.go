package platform

import (
	"io"
	"os"

	"github.com/blang/semver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/zyedidia/rvpmu/events"
)

// descFile is the on-disk shape of a platform description. It plays the role
// a pmu device tree node plays on a real system: counts, widths, and table
// overrides keyed by event name.
type descFile struct {
	Compatible  string `yaml:"compatible"`
	PrivSpec    string `yaml:"priv-spec"`
	HPMCounters int    `yaml:"hpm-counters"`
	BaseWidth   int    `yaml:"base-width"`
	HPMWidth    int    `yaml:"hpm-width"`
	IRQ         *int   `yaml:"irq"`

	// Overrides for the generic->hardware tables. Hardware events map a
	// generic event name to an event-selector code; cache events name all
	// three fields of the triple.
	HardwareEvents map[string]int `yaml:"hardware-events"`
	CacheEvents    []struct {
		Cache  string `yaml:"cache"`
		Op     string `yaml:"op"`
		Result string `yaml:"result"`
		Code   int    `yaml:"code"`
	} `yaml:"cache-events"`
}

// baseTemplates are the descriptions a file is allowed to refine, keyed by
// compatible string. An unknown compatible falls back to Base.
var baseTemplates = map[string]func() *Description{
	"riscv,base-pmu":    Base,
	"riscv,generic-pmu": Generic,
}

// Load reads a YAML platform description and returns the resulting
// unpublished Description. Fields absent from the file keep the values of
// the template its compatible string selects.
func Load(r io.Reader) (*Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading platform description")
	}

	var f descFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing platform description")
	}

	template, ok := baseTemplates[f.Compatible]
	if !ok {
		log.Warnf("platform: unknown compatible %q, falling back to %s", f.Compatible, Base().Compatible)
		template = Base
	}
	d := template()

	if f.PrivSpec != "" {
		v, err := semver.Parse(f.PrivSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "priv-spec %q", f.PrivSpec)
		}
		d.PrivSpec = v
	}
	if f.HPMCounters != 0 {
		d.NumHPMCounters = f.HPMCounters
	}
	if f.BaseWidth != 0 {
		d.BaseWidth = f.BaseWidth
	}
	if f.HPMWidth != 0 {
		d.HPMWidth = f.HPMWidth
	}
	if f.IRQ != nil {
		d.IRQ = *f.IRQ
	}

	for name, code := range f.HardwareEvents {
		id, ok := events.HardwareIDs[name]
		if !ok {
			return nil, errors.Errorf("unknown hardware event %q", name)
		}
		d.SetHardwareEvent(id, code)
	}
	for _, ce := range f.CacheEvents {
		cache, ok := events.CacheIDs[ce.Cache]
		if !ok {
			return nil, errors.Errorf("unknown cache %q", ce.Cache)
		}
		op, ok := events.CacheOps[ce.Op]
		if !ok {
			return nil, errors.Errorf("unknown cache op %q", ce.Op)
		}
		result, ok := events.CacheResults[ce.Result]
		if !ok {
			return nil, errors.Errorf("unknown cache result %q", ce.Result)
		}
		d.SetCacheEvent(cache, op, result, ce.Code)
	}

	return d, nil
}

// LoadFile is Load on the contents of path.
func LoadFile(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening platform description")
	}
	defer f.Close()
	return Load(f)
}
