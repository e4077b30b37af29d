package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/repository"
)

// BatchRepoImpl provides a concrete implementation for the BatchRepository interface using PostgreSQL.
type BatchRepoImpl struct {
	db *pgxpool.Pool
}

// NewBatchRepo creates a new instance of BatchRepoImpl.
func NewBatchRepo(db *pgxpool.Pool) *BatchRepoImpl {
	return &BatchRepoImpl{db: db}
}

// Create stores a new batch.
func (r *BatchRepoImpl) Create(ctx context.Context, report *entity.BatchReport) error {
	query := `
		INSERT INTO batches (id, source, path, status, total_rows, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.Source,
		report.Path,
		string(report.Status),
		report.TotalRows,
		report.CreatedAt,
	)
	return err
}

// MarkRunning records the row count and start time of a batch.
func (r *BatchRepoImpl) MarkRunning(ctx context.Context, id string, totalRows int, at time.Time) error {
	query := `UPDATE batches SET status = $2, total_rows = $3, started_at = $4 WHERE id = $1;`
	tag, err := r.db.Exec(ctx, query, id, string(entity.BatchRunning), totalRows, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrBatchNotFound
	}
	return nil
}

// AppendRow inserts one row outcome. The serial id keeps arrival order.
func (r *BatchRepoImpl) AppendRow(ctx context.Context, id string, o entity.RowOutcome) error {
	var verdict []byte
	if o.Verdict != nil {
		b, err := entity.EncodeVerdict(*o.Verdict)
		if err != nil {
			return fmt.Errorf("encode verdict: %w", err)
		}
		verdict = b
	}

	query := `
		INSERT INTO batch_rows (batch_id, row_number, title, date_text, skipped, skip_reason, verdict, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db.Exec(ctx, query,
		id,
		o.RowNumber,
		o.Title,
		o.DateText,
		o.Skipped,
		o.SkipReason,
		verdict,
		o.Duration.Milliseconds(),
	)
	return err
}

// Finish stamps a batch with its terminal status.
func (r *BatchRepoImpl) Finish(ctx context.Context, id string, status entity.BatchStatus, reason string, at time.Time) error {
	query := `UPDATE batches SET status = $2, fail_reason = $3, finished_at = $4 WHERE id = $1;`
	tag, err := r.db.Exec(ctx, query, id, string(status), reason, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrBatchNotFound
	}
	return nil
}

// FindByID loads a batch and every row stored so far.
func (r *BatchRepoImpl) FindByID(ctx context.Context, id string) (*entity.BatchReport, error) {
	query := `
		SELECT id, source, path, status, total_rows, fail_reason, created_at, started_at, finished_at
		FROM batches
		WHERE id = $1;
	`
	var report entity.BatchReport
	var status string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.Source,
		&report.Path,
		&status,
		&report.TotalRows,
		&report.FailReason,
		&report.CreatedAt,
		&report.StartedAt,
		&report.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	report.Status = entity.BatchStatus(status)

	rows, err := r.findRows(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Rows = rows
	return &report, nil
}

func (r *BatchRepoImpl) findRows(ctx context.Context, id string) ([]entity.RowOutcome, error) {
	query := `
		SELECT row_number, title, date_text, skipped, skip_reason, verdict, duration_ms
		FROM batch_rows
		WHERE batch_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := []entity.RowOutcome{}
	for rows.Next() {
		var o entity.RowOutcome
		var verdict []byte
		var durationMS int64
		if err := rows.Scan(
			&o.RowNumber,
			&o.Title,
			&o.DateText,
			&o.Skipped,
			&o.SkipReason,
			&verdict,
			&durationMS,
		); err != nil {
			return nil, err
		}
		if verdict != nil {
			v, err := entity.DecodeVerdict(verdict)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", o.RowNumber, err)
			}
			o.Verdict = &v
		}
		o.Duration = time.Duration(durationMS) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
