// Package jobs executes classification jobs: it opens the spreadsheet files,
// runs the engine over each requested variable, and reports progress and
// results to the tracker and job store.
package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/core"
	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/core/resume"
	"github.com/insightcoder/insightcoder/internal/dataset"
	"github.com/insightcoder/insightcoder/internal/progress"
	"github.com/insightcoder/insightcoder/internal/store"
)

type Runner struct {
	Engine  *core.Engine
	Tracker progress.Tracker
	Store   *store.Store // optional
	Logger  *zap.Logger
}

// Run executes the job to completion. Per-variable failures are recorded and
// the remaining variables still run; only a job-level failure (unreadable
// files, invalid mode) aborts. The returned error mirrors what was recorded
// in the tracker and store.
func (r *Runner) Run(ctx context.Context, job store.Job) error {
	r.Tracker.Create(job.ID, len(job.Variables))
	if r.Store != nil {
		if err := r.Store.MarkRunning(job.ID); err != nil {
			r.Logger.Warn("job store update failed", zap.String("job", job.ID), zap.Error(err))
		}
	}

	results, err := r.run(ctx, job)
	if err != nil {
		r.Tracker.Fail(job.ID, err.Error())
		if r.Store != nil {
			if serr := r.Store.MarkFailed(job.ID, err); serr != nil {
				r.Logger.Warn("job store update failed", zap.String("job", job.ID), zap.Error(serr))
			}
		}
		return err
	}

	r.Tracker.Complete(job.ID)
	if r.Store != nil {
		if serr := r.Store.MarkCompleted(job.ID, results); serr != nil {
			r.Logger.Warn("job store update failed", zap.String("job", job.ID), zap.Error(serr))
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, job store.Job) ([]model.VariableSummary, error) {
	mode, err := resume.ParseMode(job.Mode)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.OpenWorkbook(job.RawPath)
	if err != nil {
		return nil, fmt.Errorf("open raw data: %w", err)
	}

	var choices dataset.ChoiceStore
	if job.FormPath != "" {
		form, err := dataset.OpenFormFile(job.FormPath)
		if err != nil {
			return nil, fmt.Errorf("open form file: %w", err)
		}
		choices = form
	}

	log := r.Logger.With(zap.String("job", job.ID))
	results := make([]model.VariableSummary, 0, len(job.Variables))

	for i, v := range job.Variables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.Tracker.StartVariable(job.ID, v.Name, v.Question, i)
		cb := func(message string, percent int) {
			r.Tracker.Step(job.ID, message, percent)
		}

		summary, err := r.Engine.ProcessVariable(ctx, ds, choices, core.VariableRequest{
			Variable: v.Name,
			Question: v.Question,
			Mode:     mode,
			Progress: cb,
		})
		if err != nil {
			log.Error("variable failed", zap.String("variable", v.Name), zap.Error(err))
			summary = model.VariableSummary{
				Variable: v.Name,
				Question: v.Question,
				Status:   model.StatusFailed,
				Error:    err.Error(),
			}
		}

		results = append(results, summary)
		r.Tracker.CompleteVariable(job.ID, v.Name, summary)
	}

	return results, nil
}
