// Package console prints batch progress as plain lines for non-interactive
// runs and log capture.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/titledate-verifier/internal/entity"
)

// Printer writes one line per progress event.
type Printer struct {
	w       io.Writer
	verbose bool
}

// NewPrinter returns a Printer writing to w. Step lines inside a row are
// only printed when verbose is set.
func NewPrinter(w io.Writer, verbose bool) *Printer {
	return &Printer{w: w, verbose: verbose}
}

// Drain prints events until the channel is closed and returns the report
// carried by the final event, or nil if the batch never finished.
func (p *Printer) Drain(events <-chan entity.ProgressEvent) *entity.BatchReport {
	var report *entity.BatchReport
	for ev := range events {
		p.Print(ev)
		if ev.Kind == entity.ProgressBatchFinished {
			report = ev.Report
		}
	}
	return report
}

// Print writes a single event.
func (p *Printer) Print(ev entity.ProgressEvent) {
	switch ev.Kind {
	case entity.ProgressBatchStarted:
		fmt.Fprintf(p.w, "Verifying %d rows from %s\n", ev.Total, ev.Message)
	case entity.ProgressRowStarted:
		fmt.Fprintf(p.w, "[%d/%d] row %d: %s\n", ev.Index, ev.Total, ev.Row, ev.Message)
	case entity.ProgressRowLog:
		if p.verbose {
			fmt.Fprintf(p.w, "    %s\n", ev.Message)
		}
	case entity.ProgressRowSkipped:
		fmt.Fprintf(p.w, "[%d/%d] row %d skipped: %s\n", ev.Index, ev.Total, ev.Row, ev.Message)
	case entity.ProgressRowVerdict:
		fmt.Fprintf(p.w, "[%d/%d] row %d %s\n", ev.Index, ev.Total, ev.Row, ev.Message)
	case entity.ProgressBatchFinished:
		fmt.Fprintf(p.w, "Batch %s\n", ev.Message)
	}
}

// PrintSummary writes the counts and the rows judged not matched.
func PrintSummary(w io.Writer, r *entity.BatchReport) {
	c := r.Counts()
	fmt.Fprintf(w, "\nStatus:       %s\n", r.Status)
	fmt.Fprintf(w, "Rows:         %d\n", c.Total)
	fmt.Fprintf(w, "Matched:      %d\n", c.Matched)
	fmt.Fprintf(w, "Not matched:  %d\n", c.NotMatched)
	fmt.Fprintf(w, "Inconclusive: %d\n", c.Inconclusive)
	fmt.Fprintf(w, "Skipped:      %d\n", c.Skipped)

	if rows := r.NotMatchedRows(); len(rows) > 0 {
		fmt.Fprintf(w, "\nRows not matched: %s\n", joinInts(rows))
	} else {
		fmt.Fprintln(w, "\nEvery verified row matched.")
	}
	if rows := r.InconclusiveRows(); len(rows) > 0 {
		fmt.Fprintf(w, "Rows to check by hand: %s\n", joinInts(rows))
	}
}

// WriteJSON stores the full report at path.
func WriteJSON(path string, r *entity.BatchReport) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
