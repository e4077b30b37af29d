package entity

import (
	"sort"
	"time"
)

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchQueued    BatchStatus = "queued"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
	BatchFailed    BatchStatus = "failed"
)

// RowOutcome is the report entry for one spreadsheet row.
type RowOutcome struct {
	RowNumber  int           `json:"row"`
	Title      string        `json:"title"`
	DateText   string        `json:"date,omitempty"`
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Verdict    *Verdict      `json:"verdict,omitempty"` // nil when skipped
	Duration   time.Duration `json:"duration_ns,omitempty"`
}

// Counts summarizes a report.
type Counts struct {
	Total        int `json:"total"`
	Matched      int `json:"matched"`
	NotMatched   int `json:"not_matched"`
	Inconclusive int `json:"inconclusive"`
	Skipped      int `json:"skipped"`
}

// BatchReport is the ordered, append-only result of one batch run.
type BatchReport struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	Path       string       `json:"-"` // stored dataset file
	Status     BatchStatus  `json:"status"`
	TotalRows  int          `json:"total_rows"`
	CreatedAt  time.Time    `json:"created_at"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	FailReason string       `json:"fail_reason,omitempty"`
	Rows       []RowOutcome `json:"rows"`
}

// Append adds an outcome to the end of the report.
func (r *BatchReport) Append(o RowOutcome) {
	r.Rows = append(r.Rows, o)
}

// Start marks the report as running.
func (r *BatchReport) Start(totalRows int, at time.Time) {
	r.Status = BatchRunning
	r.TotalRows = totalRows
	r.StartedAt = &at
}

// Finish stamps the report with a terminal status.
func (r *BatchReport) Finish(status BatchStatus, at time.Time) {
	r.Status = status
	r.FinishedAt = &at
}

// NotMatchedRows returns the row numbers judged NotMatched, in report order.
func (r *BatchReport) NotMatchedRows() []int {
	return r.rowsWhere(func(o RowOutcome) bool {
		return o.Verdict != nil && o.Verdict.Kind == VerdictNotMatched
	})
}

// InconclusiveRows returns the row numbers judged Inconclusive.
func (r *BatchReport) InconclusiveRows() []int {
	return r.rowsWhere(func(o RowOutcome) bool {
		return o.Verdict != nil && o.Verdict.Kind == VerdictInconclusive
	})
}

func (r *BatchReport) rowsWhere(keep func(RowOutcome) bool) []int {
	rows := []int{}
	for _, o := range r.Rows {
		if keep(o) {
			rows = append(rows, o.RowNumber)
		}
	}
	return rows
}

// Counts tallies the outcomes in the report.
func (r *BatchReport) Counts() Counts {
	c := Counts{Total: len(r.Rows)}
	for _, o := range r.Rows {
		if o.Skipped || o.Verdict == nil {
			c.Skipped++
			continue
		}
		switch o.Verdict.Kind {
		case VerdictMatched:
			c.Matched++
		case VerdictNotMatched:
			c.NotMatched++
		default:
			c.Inconclusive++
		}
	}
	return c
}

// SortRows orders rows by row number. Stores return rows in insertion order
// already; this is for reports assembled from several sources.
func (r *BatchReport) SortRows() {
	sort.SliceStable(r.Rows, func(i, j int) bool {
		return r.Rows[i].RowNumber < r.Rows[j].RowNumber
	})
}
