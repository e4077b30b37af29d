package entity

// ProgressKind classifies a progress event.
type ProgressKind int

const (
	ProgressBatchStarted ProgressKind = iota
	ProgressRowStarted
	ProgressRowSkipped
	ProgressRowLog
	ProgressRowVerdict
	ProgressBatchFinished
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressBatchStarted:
		return "batch_started"
	case ProgressRowStarted:
		return "row_started"
	case ProgressRowSkipped:
		return "row_skipped"
	case ProgressRowLog:
		return "row_log"
	case ProgressRowVerdict:
		return "row_verdict"
	case ProgressBatchFinished:
		return "batch_finished"
	}
	return "unknown"
}

// ProgressEvent is streamed from the batch runner to display surfaces.
type ProgressEvent struct {
	Kind ProgressKind
	// Row is the 1-based spreadsheet row number, header included.
	Row int
	// Index is the position of the row in the batch (1-based) and Total the
	// number of data rows.
	Index   int
	Total   int
	Message string
	Outcome *RowOutcome
	Report  *BatchReport // set on ProgressBatchFinished
}
