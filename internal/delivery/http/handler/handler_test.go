package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/delivery/http/handler"
	"github.com/user/titledate-verifier/internal/delivery/http/response"
	"github.com/user/titledate-verifier/internal/delivery/http/router"
	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/internal/usecase"
)

type fakeManager struct {
	submitErr error
	reports   map[string]*entity.BatchReport
	statusErr error

	gotName    string
	gotContent string
}

func (m *fakeManager) Submit(_ context.Context, filename string, content io.Reader) (string, error) {
	b, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.gotName, m.gotContent = filename, string(b)
	if m.submitErr != nil {
		return "", m.submitErr
	}
	return "b-1", nil
}

func (m *fakeManager) GetStatus(_ context.Context, id string) (*entity.BatchReport, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrBatchNotFound
	}
	return r, nil
}

func newServer(m usecase.BatchManager, checks map[string]handler.Pinger, maxBytes int64) http.Handler {
	h := handler.NewHandler(m, checks, maxBytes, zap.NewNop())
	return router.New(h, zap.NewNop())
}

func upload(t *testing.T, field, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleSubmitBatch(t *testing.T) {
	m := &fakeManager{}
	srv := newServer(m, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "file", "papers.csv", "发布时间,标题\n"))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode[response.SubmitBatchResponse](t, rec)
	assert.Equal(t, "b-1", resp.BatchID)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "papers.csv", m.gotName)
	assert.Equal(t, "发布时间,标题\n", m.gotContent)
}

func TestHandleSubmitBatch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		submitErr error
		maxBytes  int64
		want      int
	}{
		{name: "missing file field", field: "other", want: http.StatusBadRequest},
		{name: "unsupported format", field: "file", submitErr: repository.ErrUnsupportedFormat, want: http.StatusBadRequest},
		{name: "empty upload", field: "file", submitErr: usecase.ErrEmptyUpload, want: http.StatusBadRequest},
		{name: "storage failure", field: "file", submitErr: errors.New("disk full"), want: http.StatusInternalServerError},
		{name: "too large", field: "file", maxBytes: 16, want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(&fakeManager{submitErr: tt.submitErr}, nil, tt.maxBytes)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, upload(t, tt.field, "papers.csv", "发布时间,标题\n2020-05-01,测试标题\n"))

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode[response.ErrorResponse](t, rec).Error)
		})
	}
}

func TestHandleGetBatch(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	report := &entity.BatchReport{
		ID:        "b-1",
		Source:    "papers.xlsx",
		Status:    entity.BatchRunning,
		TotalRows: 3,
		CreatedAt: started,
		StartedAt: &started,
		Rows: []entity.RowOutcome{
			{RowNumber: 2, Title: "甲", Verdict: &entity.Verdict{Kind: entity.VerdictMatched}},
			{RowNumber: 3, Title: "乙", Verdict: &entity.Verdict{Kind: entity.VerdictNotMatched, Reason: "exhausted"}},
			{RowNumber: 4, Skipped: true, SkipReason: "bad date"},
		},
	}
	srv := newServer(&fakeManager{reports: map[string]*entity.BatchReport{"b-1": report}}, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/b-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[response.BatchStatusResponse](t, rec)
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, []int{3}, resp.NotMatchedRows)
	assert.Empty(t, resp.InconclusiveRows)
	assert.Equal(t, entity.Counts{Total: 3, Matched: 1, NotMatched: 1, Skipped: 1}, resp.Counts)
	assert.Len(t, resp.Rows, 3)
}

func TestHandleGetBatch_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		srv := newServer(&fakeManager{}, nil, 0)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		srv := newServer(&fakeManager{statusErr: errors.New("connection reset")}, nil, 0)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/b-1", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleHealthCheck(t *testing.T) {
	ok := handler.PingFunc(func(context.Context) error { return nil })
	down := handler.PingFunc(func(context.Context) error { return errors.New("refused") })

	t.Run("healthy", func(t *testing.T) {
		srv := newServer(&fakeManager{}, map[string]handler.Pinger{"postgres": ok, "redis": ok}, 0)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, map[string]string{"status": "ok", "postgres": "healthy", "redis": "healthy"}, body)
	})

	t.Run("degraded", func(t *testing.T) {
		srv := newServer(&fakeManager{}, map[string]handler.Pinger{"postgres": ok, "redis": down}, 0)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "unhealthy", body["redis"])
		assert.Equal(t, "degraded", body["status"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(&fakeManager{}, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/batches/{id}"`)
}
