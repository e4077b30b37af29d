package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/pkg/metrics"
)

// BatchRunner verifies spreadsheet rows one after another over a single
// browser session.
type BatchRunner struct {
	verifier Verifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewBatchRunner creates a BatchRunner using verifier for each valid row.
func NewBatchRunner(verifier Verifier, logger *zap.Logger) *BatchRunner {
	return &BatchRunner{verifier: verifier, logger: logger, now: time.Now}
}

// Run verifies rows in order and appends one outcome per row to report.
// Malformed rows are recorded as skipped. A failure inside one row never
// stops the batch; cancellation of ctx is checked between rows and marks
// the report cancelled. Progress is sent on events, which Run closes before
// returning; the caller must keep receiving until then. events may be nil.
func (r *BatchRunner) Run(ctx context.Context, report *entity.BatchReport, rows []entity.RawRow, events chan<- entity.ProgressEvent) *entity.BatchReport {
	emit := func(ev entity.ProgressEvent) {
		if events != nil {
			events <- ev
		}
	}
	if events != nil {
		defer close(events)
	}

	total := len(rows)
	report.Start(total, r.now())
	r.logger.Info("batch started", zap.String("batch", report.ID), zap.String("source", report.Source), zap.Int("rows", total))
	emit(entity.ProgressEvent{Kind: entity.ProgressBatchStarted, Total: total, Message: report.Source})

	status := entity.BatchCompleted
	for i, raw := range rows {
		if ctx.Err() != nil {
			status = entity.BatchCancelled
			r.logger.Warn("batch cancelled", zap.String("batch", report.ID), zap.Int("remaining", total-i))
			break
		}
		index := i + 1

		req, err := ParseRow(raw)
		if err != nil {
			o := entity.RowOutcome{RowNumber: raw.Number, Title: raw.Title, Skipped: true, SkipReason: skipReason(err)}
			report.Append(o)
			metrics.RowsSkippedTotal.Inc()
			r.logger.Info("row skipped", zap.Int("row", raw.Number), zap.String("reason", o.SkipReason))
			emit(entity.ProgressEvent{Kind: entity.ProgressRowSkipped, Row: raw.Number, Index: index, Total: total, Message: o.SkipReason, Outcome: &o})
			continue
		}

		emit(entity.ProgressEvent{Kind: entity.ProgressRowStarted, Row: req.RowNumber, Index: index, Total: total, Message: req.Title})
		start := r.now()
		v := r.verifyRow(ctx, req, func(step string) {
			emit(entity.ProgressEvent{Kind: entity.ProgressRowLog, Row: req.RowNumber, Index: index, Total: total, Message: step})
		})
		o := entity.RowOutcome{
			RowNumber: req.RowNumber,
			Title:     req.Title,
			DateText:  req.DateText(),
			Verdict:   &v,
			Duration:  r.now().Sub(start),
		}
		report.Append(o)
		emit(entity.ProgressEvent{Kind: entity.ProgressRowVerdict, Row: req.RowNumber, Index: index, Total: total, Message: v.String(), Outcome: &o})
	}
	if ctx.Err() != nil {
		status = entity.BatchCancelled
	}

	report.Finish(status, r.now())
	metrics.BatchesTotal.WithLabelValues(string(status)).Inc()
	c := report.Counts()
	r.logger.Info("batch finished",
		zap.String("batch", report.ID),
		zap.String("status", string(status)),
		zap.Int("matched", c.Matched),
		zap.Int("not_matched", c.NotMatched),
		zap.Int("inconclusive", c.Inconclusive),
		zap.Int("skipped", c.Skipped),
		zap.Ints("not_matched_rows", report.NotMatchedRows()),
	)
	emit(entity.ProgressEvent{Kind: entity.ProgressBatchFinished, Total: total, Message: string(status), Report: report})
	return report
}

// verifyRow turns a panic inside one verification into an Inconclusive verdict.
func (r *BatchRunner) verifyRow(ctx context.Context, req entity.VerificationRequest, onStep func(string)) (v entity.Verdict) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("unexpected failure while verifying row",
				zap.Int("row", req.RowNumber), zap.Any("panic", p), zap.Stack("stack"))
			metrics.VerdictsTotal.WithLabelValues(entity.VerdictInconclusive.String(), entity.ReasonUnexpectedFailure).Inc()
			v = entity.Inconclusive(fmt.Sprintf("%s: %v", entity.ReasonUnexpectedFailure, p))
		}
	}()
	return r.verifier.Verify(ctx, req, onStep)
}

func skipReason(err error) string {
	var mr *entity.MalformedRowError
	if errors.As(err, &mr) {
		return mr.Reason
	}
	return err.Error()
}
