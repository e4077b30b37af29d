package console

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/titledate-verifier/internal/entity"
)

func sampleReport() *entity.BatchReport {
	return &entity.BatchReport{
		ID:     "b-1",
		Source: "papers.xlsx",
		Status: entity.BatchCompleted,
		Rows: []entity.RowOutcome{
			{RowNumber: 2, Title: "甲", Verdict: &entity.Verdict{Kind: entity.VerdictMatched, Pass: "exact", Page: 1}},
			{RowNumber: 3, Title: "乙", Verdict: &entity.Verdict{Kind: entity.VerdictNotMatched, Page: 4}},
			{RowNumber: 5, Title: "丙", Verdict: &entity.Verdict{Kind: entity.VerdictInconclusive, Reason: "year option not found"}},
			{RowNumber: 6, Skipped: true, SkipReason: "empty title"},
		},
	}
}

func TestPrinter_Drain(t *testing.T) {
	report := sampleReport()
	events := make(chan entity.ProgressEvent, 8)
	events <- entity.ProgressEvent{Kind: entity.ProgressBatchStarted, Total: 2, Message: "papers.xlsx"}
	events <- entity.ProgressEvent{Kind: entity.ProgressRowStarted, Row: 2, Index: 1, Total: 2, Message: "甲"}
	events <- entity.ProgressEvent{Kind: entity.ProgressRowLog, Row: 2, Index: 1, Total: 2, Message: "selecting date"}
	events <- entity.ProgressEvent{Kind: entity.ProgressRowVerdict, Row: 2, Index: 1, Total: 2, Message: "matched (exact, page 1)"}
	events <- entity.ProgressEvent{Kind: entity.ProgressRowSkipped, Row: 3, Index: 2, Total: 2, Message: "empty title"}
	events <- entity.ProgressEvent{Kind: entity.ProgressBatchFinished, Total: 2, Message: "completed", Report: report}
	close(events)

	var buf bytes.Buffer
	got := NewPrinter(&buf, false).Drain(events)

	assert.Same(t, report, got)
	out := buf.String()
	assert.Contains(t, out, "Verifying 2 rows from papers.xlsx")
	assert.Contains(t, out, "[1/2] row 2: 甲")
	assert.Contains(t, out, "[1/2] row 2 matched (exact, page 1)")
	assert.Contains(t, out, "[2/2] row 3 skipped: empty title")
	assert.Contains(t, out, "Batch completed")
	assert.NotContains(t, out, "selecting date")
}

func TestPrinter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Print(entity.ProgressEvent{Kind: entity.ProgressRowLog, Message: "selecting date"})
	assert.Equal(t, "    selecting date\n", buf.String())
}

func TestPrinter_DrainWithoutFinish(t *testing.T) {
	events := make(chan entity.ProgressEvent)
	close(events)
	assert.Nil(t, NewPrinter(&bytes.Buffer{}, false).Drain(events))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleReport())

	out := buf.String()
	assert.Contains(t, out, "Status:       completed")
	assert.Contains(t, out, "Not matched:  1")
	assert.Contains(t, out, "Rows not matched: 3\n")
	assert.Contains(t, out, "Rows to check by hand: 5\n")

	buf.Reset()
	PrintSummary(&buf, &entity.BatchReport{Status: entity.BatchCompleted})
	assert.Contains(t, buf.String(), "Every verified row matched.")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, sampleReport()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got entity.BatchReport
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "b-1", got.ID)
	require.Len(t, got.Rows, 4)
	assert.Equal(t, entity.VerdictNotMatched, got.Rows[1].Verdict.Kind)
	assert.NotContains(t, string(b), "Path")
}
