package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core"
	"github.com/insightcoder/insightcoder/internal/jobs"
	"github.com/insightcoder/insightcoder/internal/progress"
	"github.com/insightcoder/insightcoder/internal/store"
)

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return `{"categories": ["Other"]}`, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jobStore, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { jobStore.Close() })

	tracker := progress.NewMemoryTracker()
	logger := zap.NewNop()
	return &Server{
		Runner: &jobs.Runner{
			Engine:  core.NewEngine(stubLLM{}, config.Default(), logger),
			Tracker: tracker,
			Store:   jobStore,
			Logger:  logger,
		},
		Tracker: tracker,
		Store:   jobStore,
		Logger:  logger,
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateJobValidation(t *testing.T) {
	srv := newTestServer(t)
	router := srv.SetupRouter()

	// Missing variables.
	body := `{"raw_path": "data.xlsx"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(body))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not JSON at all.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString("not json"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateJobPersistsAndReturnsID(t *testing.T) {
	srv := newTestServer(t)
	router := srv.SetupRouter()

	body := `{
		"raw_path": "/nonexistent/raw.xlsx",
		"variables": [{"name": "Q1", "question": "What should we improve?"}]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(body))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	assert.Equal(t, store.JobQueued, resp.Status)

	// The job is visible in the store immediately, whatever the background
	// run does with it later.
	job, err := srv.Store.GetJob(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "incremental", job.Mode)
	require.Len(t, job.Variables, 1)
	assert.Equal(t, "Q1", job.Variables[0].Name)
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil)
	srv.SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProgress(t *testing.T) {
	srv := newTestServer(t)
	router := srv.SetupRouter()

	srv.Tracker.Create("job-1", 1)
	srv.Tracker.Step("job-1", "Classifying...", 40)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1/progress", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status progress.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 40, status.VariableProgress)

	// Unknown job.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs/nope/progress", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProgress(t *testing.T) {
	srv := newTestServer(t)
	router := srv.SetupRouter()
	srv.Tracker.Create("job-1", 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/jobs/job-1/progress", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	_, ok := srv.Tracker.Get("job-1")
	assert.False(t, ok)
}

func TestListJobs(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	srv.SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
