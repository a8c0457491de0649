package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testJob(id string) Job {
	return Job{
		ID:      id,
		Status:  JobQueued,
		RawPath: "data/raw.xlsx",
		Variables: []Variable{
			{Name: "Q1", Question: "What should we improve?"},
			{Name: "Q2"},
		},
		Mode:      "incremental",
		CreatedAt: time.Now(),
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateJob(testJob("job-1")))

	got, err := s.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobQueued, got.Status)
	assert.Equal(t, "data/raw.xlsx", got.RawPath)
	require.Len(t, got.Variables, 2)
	assert.Equal(t, "Q1", got.Variables[0].Name)
	assert.Nil(t, got.FinishedAt)
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetJob("missing")
	assert.Error(t, err)
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateJob(testJob("job-1")))

	require.NoError(t, s.MarkRunning("job-1"))
	got, _ := s.GetJob("job-1")
	assert.Equal(t, JobRunning, got.Status)

	results := []model.VariableSummary{
		{Variable: "Q1", Status: model.StatusCompleted, ValidClassified: 10},
		{Variable: "Q2", Status: model.StatusFailed, Error: "column not found"},
	}
	require.NoError(t, s.MarkCompleted("job-1", results))

	got, err := s.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 10, got.Results[0].ValidClassified)
	assert.NotNil(t, got.FinishedAt)
}

func TestMarkFailed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateJob(testJob("job-1")))
	require.NoError(t, s.MarkFailed("job-1", assert.AnError))

	got, _ := s.GetJob("job-1")
	assert.Equal(t, JobFailed, got.Status)
	assert.Equal(t, assert.AnError.Error(), got.Error)
}

func TestListJobsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	early := testJob("job-early")
	early.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.CreateJob(early))
	require.NoError(t, s.CreateJob(testJob("job-late")))

	jobs, err := s.ListJobs(10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-late", jobs[0].ID)
	assert.Equal(t, "job-early", jobs[1].ID)

	jobs, err = s.ListJobs(1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
