package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/delivery/http/response"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/internal/usecase"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	batchManager   usecase.BatchManager
	checks         map[string]Pinger
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(batchManager usecase.BatchManager, checks map[string]Pinger, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		batchManager:   batchManager,
		checks:         checks,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HandleSubmitBatch accepts a multipart upload in the "file" field.
func (h *Handler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			h.writeJSONError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSONError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeJSONError(w, "Multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	batchID, err := h.batchManager.Submit(r.Context(), header.Filename, file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, repository.ErrUnsupportedFormat), errors.Is(err, usecase.ErrEmptyUpload):
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &tooLarge):
			h.writeJSONError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
		default:
			h.logger.Error("Failed to submit batch", zap.String("file", header.Filename), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	resp := response.SubmitBatchResponse{
		Status:  "success",
		Message: "Dataset queued for verification",
		BatchID: batchID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.batchManager.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			h.writeJSONError(w, "Batch not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get batch status", zap.String("batch", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.NewBatchStatus(report))
}

// HandleHealthCheck pings every configured dependency. Any failure turns the
// response into 503.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthStatus := map[string]string{"status": "ok"}
	healthy := true
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		healthStatus["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	h.writeJSON(w, http.StatusOK, healthStatus)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
