package rvpmu

import (
	"bytes"
	"sort"
	"strconv"
)

// A Count is one event's logical total at a point in time, labeled with the
// event name and the counter it is bound to.
type Count struct {
	Event   string
	Counter int
	Value   uint64
}

// Counts is a snapshot of several events, in binding order.
type Counts []Count

// Snapshot reads every given event and returns its current totals.
func (p *PMU) Snapshot(evs []*Event) Counts {
	counts := make(Counts, 0, len(evs))
	for _, ev := range evs {
		if ev.Index() != Unbound {
			p.Read(ev)
		}
		counts = append(counts, Count{
			Event:   ev.Attr().String(),
			Counter: ev.Index(),
			Value:   ev.Count(),
		})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Counter < counts[j].Counter
	})
	return counts
}

// countHeader names the columns of a rendered snapshot.
var countHeader = []string{"event", "counter", "count"}

// record is the row form of one count, shared by every CountWriter. Unbound
// events render a "-" in the counter column.
func (c Count) record() []string {
	counter := "-"
	if c.Counter != Unbound {
		counter = strconv.Itoa(c.Counter)
	}
	return []string{c.Event, counter, strconv.FormatUint(c.Value, 10)}
}

// WriteTo renders the snapshot with the given writer.
func (c Counts) WriteTo(w CountWriter) error {
	return w.WriteCounts(c)
}

func (c Counts) String() string {
	buf := &bytes.Buffer{}
	NewTableWriter(buf).WriteCounts(c)
	return buf.String()
}
