// Package store persists classification jobs in SQLite so job history and
// results survive restarts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

// Job statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Variable is one (column, question) pair submitted for classification.
type Variable struct {
	Name     string `json:"name"`
	Question string `json:"question,omitempty"`
}

type Job struct {
	ID         string                  `json:"id"`
	Status     string                  `json:"status"`
	RawPath    string                  `json:"raw_path"`
	FormPath   string                  `json:"form_path,omitempty"`
	Variables  []Variable              `json:"variables"`
	Mode       string                  `json:"mode"`
	Error      string                  `json:"error,omitempty"`
	Results    []model.VariableSummary `json:"results,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		status      TEXT NOT NULL DEFAULT 'queued',
		raw_path    TEXT NOT NULL,
		form_path   TEXT DEFAULT '',
		variables   TEXT NOT NULL,
		mode        TEXT DEFAULT 'incremental',
		error       TEXT DEFAULT '',
		results     TEXT DEFAULT '',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateJob(job Job) error {
	vars, err := json.Marshal(job.Variables)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO jobs (id, status, raw_path, form_path, variables, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Status, job.RawPath, job.FormPath, string(vars), job.Mode, job.CreatedAt,
	)
	return err
}

func (s *Store) MarkRunning(id string) error {
	_, err := s.db.Exec(`UPDATE jobs SET status = ? WHERE id = ?`, JobRunning, id)
	return err
}

// MarkCompleted records the per-variable results and closes the job.
func (s *Store) MarkCompleted(id string, results []model.VariableSummary) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE jobs SET status = ?, results = ?, finished_at = ? WHERE id = ?`,
		JobCompleted, string(data), time.Now(), id,
	)
	return err
}

func (s *Store) MarkFailed(id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		JobFailed, msg, time.Now(), id,
	)
	return err
}

func (s *Store) GetJob(id string) (Job, error) {
	var (
		job        Job
		vars       string
		results    string
		finishedAt sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT id, status, raw_path, form_path, variables, mode, error, results, created_at, finished_at
		 FROM jobs WHERE id = ?`,
		id,
	).Scan(&job.ID, &job.Status, &job.RawPath, &job.FormPath, &vars, &job.Mode,
		&job.Error, &results, &job.CreatedAt, &finishedAt)
	if err != nil {
		return Job{}, err
	}
	if err := json.Unmarshal([]byte(vars), &job.Variables); err != nil {
		return Job{}, fmt.Errorf("decode job variables: %w", err)
	}
	if results != "" {
		if err := json.Unmarshal([]byte(results), &job.Results); err != nil {
			return Job{}, fmt.Errorf("decode job results: %w", err)
		}
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first. Result payloads are
// omitted to keep listings small.
func (s *Store) ListJobs(limit int) ([]Job, error) {
	rows, err := s.db.Query(
		`SELECT id, status, raw_path, form_path, variables, mode, error, created_at, finished_at
		 FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job        Job
			vars       string
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&job.ID, &job.Status, &job.RawPath, &job.FormPath, &vars,
			&job.Mode, &job.Error, &job.CreatedAt, &finishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vars), &job.Variables); err != nil {
			return nil, fmt.Errorf("decode job variables: %w", err)
		}
		if finishedAt.Valid {
			job.FinishedAt = &finishedAt.Time
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
