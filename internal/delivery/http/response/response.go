package response

import (
	"time"

	"github.com/user/titledate-verifier/internal/entity"
)

type SubmitBatchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	BatchID string `json:"batch_id"`
}

// BatchStatusResponse is a DTO for batch status, mirroring entity.BatchReport
type BatchStatusResponse struct {
	ID               string              `json:"id"`
	Source           string              `json:"source"`
	Status           string              `json:"status"` // "queued", "running", "completed", "cancelled", "failed"
	TotalRows        int                 `json:"total_rows"`
	CreatedAt        time.Time           `json:"created_at"`
	StartedAt        *time.Time          `json:"started_at,omitempty"`
	FinishedAt       *time.Time          `json:"finished_at,omitempty"`
	FailReason       string              `json:"fail_reason,omitempty"`
	Counts           entity.Counts       `json:"counts"`
	NotMatchedRows   []int               `json:"not_matched_rows"`
	InconclusiveRows []int               `json:"inconclusive_rows"`
	Rows             []entity.RowOutcome `json:"rows"`
}

// NewBatchStatus builds the status DTO from a report.
func NewBatchStatus(r *entity.BatchReport) BatchStatusResponse {
	rows := r.Rows
	if rows == nil {
		rows = []entity.RowOutcome{}
	}
	return BatchStatusResponse{
		ID:               r.ID,
		Source:           r.Source,
		Status:           string(r.Status),
		TotalRows:        r.TotalRows,
		CreatedAt:        r.CreatedAt,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		FailReason:       r.FailReason,
		Counts:           r.Counts(),
		NotMatchedRows:   r.NotMatchedRows(),
		InconclusiveRows: r.InconclusiveRows(),
		Rows:             rows,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
