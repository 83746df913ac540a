package main

import (
	"strings"

	"github.com/zyedidia/rvpmu/events"
)

var opts struct {
	List     string `short:"l" long:"list" description:"List available events for {hardware, cache} event types"`
	Events   string `short:"e" long:"events" default-mask:"-" default:"cycles,instructions" description:"Comma-separated list of events to count (rNNN for raw selector codes)"`
	Platform string `short:"p" long:"platform" description:"Platform description file (default: built-in generic description)"`
	Base     bool   `long:"base" description:"Use the built-in base description (fixed-function counters only)"`
	Duration string `short:"d" long:"duration" default:"1s" description:"How long to count"`
	Hosted   bool   `long:"hosted" description:"Back the counters with perf events on the host instead of the simulated machine"`
	Listen   string `long:"listen" description:"Serve counter totals as Prometheus metrics on this address until interrupted"`
	Csv      bool   `long:"csv" description:"Write output in CSV format"`
	Output   string `short:"o" long:"output" description:"Write output to file"`
	Verbose  bool   `short:"V" long:"verbose" description:"Show verbose debug information"`
	Version  bool   `short:"v" long:"version" description:"Show version information"`
	Help     bool   `short:"h" long:"help" description:"Show this help message"`
}

// ParseEventList looks at a comma-separated list of events and returns the
// generic event requests corresponding to those events.
func ParseEventList(s string) ([]events.Attr, error) {
	parts := strings.Split(s, ",")
	attrs := make([]events.Attr, 0, len(parts))
	for _, name := range parts {
		attr, err := events.NameToAttr(name)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}
