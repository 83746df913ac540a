package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/zyedidia/rvpmu"
	"github.com/zyedidia/rvpmu/csr"
	"github.com/zyedidia/rvpmu/events"
	"github.com/zyedidia/rvpmu/platform"
)

var Version = "unknown"

// simHz is how many simulated cycles elapse per wall-clock second.
const simHz = 1000 * 1000 * 100

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "rvpmu: "+format+"\n", a...)
	os.Exit(1)
}

func must(what string, err error) {
	if err != nil {
		fatalf("%s: %v", what, err)
	}
}

// outputWriter picks the snapshot renderer the flags asked for.
func outputWriter(w io.Writer) rvpmu.CountWriter {
	if opts.Csv {
		return rvpmu.NewCSVWriter(w)
	}
	return rvpmu.NewTableWriter(w)
}

func description() *platform.Description {
	if opts.Platform != "" {
		d, err := platform.LoadFile(opts.Platform)
		must("platform", err)
		return d
	}
	if opts.Base {
		return platform.Base()
	}
	return platform.Generic()
}

// available reports whether the description can translate and count the
// event right now.
func available(pmu *rvpmu.PMU, attr events.Attr) bool {
	ev, err := pmu.NewEvent(attr)
	if err != nil {
		return false
	}
	if err := pmu.Add(0, ev, 0); err != nil {
		ev.Destroy()
		return false
	}
	pmu.Del(0, ev, 0)
	ev.Destroy()
	return true
}

func listEvents(pmu *rvpmu.PMU) {
	var names []string
	switch opts.List {
	case "hardware":
		names = events.HardwareNames()
	case "cache":
		names = events.CacheNames()
	default:
		fatalf("invalid event type %q", opts.List)
	}

	n := 0
	for _, name := range names {
		attr, err := events.NameToAttr(name)
		if err != nil || !available(pmu, attr) {
			continue
		}
		fmt.Printf("[%s event]: %s\n", opts.List, name)
		n++
	}
	if n == 0 {
		fmt.Println("No events supported by this platform description")
	}
}

func main() {
	flagparser := flags.NewParser(&opts, flags.PassDoubleDash|flags.PrintErrors)
	flagparser.Usage = "[OPTIONS]"
	_, err := flagparser.Parse()
	if err != nil {
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println("rvpmu version", Version)
		os.Exit(0)
	}
	if opts.Help {
		flagparser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	desc := description()
	must("platform", desc.Publish())

	var bus csr.Bus
	var sim *csr.SimBus
	if opts.Hosted {
		pb, err := csr.NewPerfBus(0, -1)
		must("perf", err)
		defer pb.Close()
		bus = pb
	} else {
		sim = csr.NewSimBus(desc.BaseWidth, desc.HPMWidth)
		bus = sim
	}

	pmu, err := rvpmu.New(desc, bus, 1)
	must("pmu", err)

	if opts.List != "" {
		listEvents(pmu)
		os.Exit(0)
	}

	duration, err := time.ParseDuration(opts.Duration)
	must("duration", err)

	attrs, err := ParseEventList(opts.Events)
	must("event-parse", err)

	var evs []*rvpmu.Event
	for _, attr := range attrs {
		ev, err := pmu.NewEvent(attr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "event-init %s: %v\n", attr, err)
			continue
		}
		if err := pmu.Add(0, ev, rvpmu.FlagStart); err != nil {
			fmt.Fprintf(os.Stderr, "event-add %s: %v\n", attr, err)
			ev.Destroy()
			continue
		}
		evs = append(evs, ev)
	}
	if len(evs) == 0 {
		fatalf("no events could be counted")
	}

	if opts.Listen != "" {
		serveCounts(pmu, evs, sim)
	} else {
		run(pmu, evs, duration, sim)
	}

	counts := pmu.Snapshot(evs)
	for _, ev := range evs {
		pmu.Del(0, ev, 0)
		ev.Destroy()
	}

	var out io.WriteCloser = os.Stdout
	if opts.Output != "" {
		f, err := os.OpenFile(opts.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
		must("open-output", err)
		out = f
	}
	must("write-output", counts.WriteTo(outputWriter(out)))
	out.Close()
}

// run counts for the requested duration. On the simulated bus the machine
// has to be clocked by hand; the hosted bus counts real activity on its own.
func run(pmu *rvpmu.PMU, evs []*rvpmu.Event, duration time.Duration, sim *csr.SimBus) {
	const tick = 10 * time.Millisecond

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		time.Sleep(tick)
		if sim != nil {
			sim.Tick(simHz / uint64(time.Second/tick))
		}
		for _, ev := range evs {
			pmu.Read(ev)
		}
	}
}

// serveCounts publishes totals as Prometheus metrics until interrupted.
func serveCounts(pmu *rvpmu.PMU, evs []*rvpmu.Event, sim *csr.SimBus) {
	startMetricsServer(opts.Listen)

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if sim != nil {
				sim.Tick(simHz)
			}
			publishCounts(pmu.Snapshot(evs))
		case <-interrupted:
			return
		}
	}
}
