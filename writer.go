package rvpmu

import (
	"encoding/csv"
	"io"

	"github.com/olekukonko/tablewriter"
)

// A CountWriter renders a counter snapshot for the user.
type CountWriter interface {
	WriteCounts(counts Counts) error
}

// A CSVWriter renders snapshots in CSV format, one record per event.
type CSVWriter struct {
	w io.Writer
}

// NewCSVWriter creates a CSVWriter that writes to the given output writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// WriteCounts writes the header record followed by one record per count.
// The csv encoder defers write errors; they surface on the final flush.
func (c *CSVWriter) WriteCounts(counts Counts) error {
	cw := csv.NewWriter(c.w)
	if err := cw.Write(countHeader); err != nil {
		return err
	}
	for _, count := range counts {
		if err := cw.Write(count.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// A TableWriter renders snapshots as a pretty-printed ASCII table.
type TableWriter struct {
	w io.Writer
}

// NewTableWriter creates a TableWriter that writes to the given output writer.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

// WriteCounts renders the snapshot as one table: a header row and one row per
// event, all left-aligned, header names passed through verbatim.
func (t *TableWriter) WriteCounts(counts Counts) error {
	table := tablewriter.NewWriter(t.w)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(countHeader)
	for _, count := range counts {
		table.Append(count.record())
	}
	table.Render()
	return nil
}
