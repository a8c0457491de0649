package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

// redisTTL keeps finished job progress around long enough for late polls.
const redisTTL = 24 * time.Hour

// RedisTracker externalizes job progress to Redis so it survives worker
// restarts and is visible across processes. Updates are read-modify-write
// on one key per job; concurrent writers for the same job are not expected
// (one run owns one job).
type RedisTracker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisTracker(url string, logger *zap.Logger) (*RedisTracker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisTracker{client: redis.NewClient(opts), logger: logger}, nil
}

func (t *RedisTracker) key(jobID string) string {
	return "progress:" + jobID
}

func (t *RedisTracker) load(jobID string) (*Status, bool) {
	data, err := t.client.Get(context.Background(), t.key(jobID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			t.logger.Warn("progress read failed", zap.String("job", jobID), zap.Error(err))
		}
		return nil, false
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		t.logger.Warn("progress decode failed", zap.String("job", jobID), zap.Error(err))
		return nil, false
	}
	return &s, true
}

func (t *RedisTracker) save(jobID string, s *Status) {
	data, err := json.Marshal(s)
	if err != nil {
		t.logger.Warn("progress encode failed", zap.String("job", jobID), zap.Error(err))
		return
	}
	if err := t.client.Set(context.Background(), t.key(jobID), data, redisTTL).Err(); err != nil {
		t.logger.Warn("progress write failed", zap.String("job", jobID), zap.Error(err))
	}
}

func (t *RedisTracker) Create(jobID string, totalVariables int) {
	t.save(jobID, &Status{
		Status:         "initializing",
		CurrentStep:    "Starting classification...",
		TotalVariables: totalVariables,
		StartTime:      time.Now(),
	})
}

func (t *RedisTracker) StartVariable(jobID, variable, question string, index int) {
	s, ok := t.load(jobID)
	if !ok {
		return
	}
	s.Status = "processing"
	s.CurrentVariable = variable
	s.CurrentQuestion = question
	s.VariableProgress = 0
	s.CurrentStep = fmt.Sprintf("Processing variable: %s", variable)
	appendMessage(s, fmt.Sprintf("Starting classification for %s (%d/%d)", variable, index, s.TotalVariables))
	t.save(jobID, s)
}

func (t *RedisTracker) Step(jobID, message string, percent int) {
	s, ok := t.load(jobID)
	if !ok {
		return
	}
	applyStep(s, message, percent)
	t.save(jobID, s)
}

func (t *RedisTracker) CompleteVariable(jobID, variable string, summary model.VariableSummary) {
	s, ok := t.load(jobID)
	if !ok {
		return
	}
	s.CompletedVariables++
	s.Results = append(s.Results, summary)
	if s.TotalVariables > 0 {
		s.Progress = s.CompletedVariables * 100 / s.TotalVariables
	}
	appendMessage(s, fmt.Sprintf("%s complete: %d responses coded into %d categories",
		variable, summary.ValidClassified, summary.Categories))
	t.save(jobID, s)
}

func (t *RedisTracker) Complete(jobID string) {
	s, ok := t.load(jobID)
	if !ok {
		return
	}
	s.Status = "completed"
	s.Completed = true
	s.Progress = 100
	s.CurrentStep = "Classification complete!"
	s.EndTime = time.Now()
	appendMessage(s, fmt.Sprintf("Classification complete! %d variables processed.", s.CompletedVariables))
	t.save(jobID, s)
}

func (t *RedisTracker) Fail(jobID, errMsg string) {
	s, ok := t.load(jobID)
	if !ok {
		return
	}
	s.Status = "error"
	s.Error = errMsg
	s.CurrentStep = "Error: " + errMsg
	s.EndTime = time.Now()
	appendMessage(s, "Error: "+errMsg)
	t.save(jobID, s)
}

func (t *RedisTracker) Get(jobID string) (Status, bool) {
	s, ok := t.load(jobID)
	if !ok {
		return Status{}, false
	}
	return *s, true
}

func (t *RedisTracker) Delete(jobID string) {
	if err := t.client.Del(context.Background(), t.key(jobID)).Err(); err != nil {
		t.logger.Warn("progress delete failed", zap.String("job", jobID), zap.Error(err))
	}
}
