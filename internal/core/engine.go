// Package core wires the classification pipeline: validation, category
// generation, batch classification, outlier reanalysis, and persistence of
// coded results, orchestrated per variable.
package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core/category"
	"github.com/insightcoder/insightcoder/internal/core/classify"
	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/core/outlier"
	"github.com/insightcoder/insightcoder/internal/core/report"
	"github.com/insightcoder/insightcoder/internal/core/resume"
	"github.com/insightcoder/insightcoder/internal/core/semiopen"
	"github.com/insightcoder/insightcoder/internal/core/validate"
	"github.com/insightcoder/insightcoder/internal/dataset"
	"github.com/insightcoder/insightcoder/internal/llm"
	"github.com/insightcoder/insightcoder/internal/progress"
)

// Engine runs the classification pipeline. One ProcessVariable invocation
// owns its taxonomy and classification set exclusively; an Engine may serve
// concurrent invocations for different variables.
type Engine struct {
	Validator  *validate.Validator
	Generator  *category.Generator
	Classifier *classify.Classifier
	Reanalyzer *outlier.Reanalyzer
	SemiOpen   *semiopen.Processor

	cfg    config.EngineConfig
	logger *zap.Logger
}

func NewEngine(client llm.Client, cfg *config.Config, logger *zap.Logger) *Engine {
	generator := category.New(client, cfg.Engine, cfg.Prompts, logger)
	classifier := classify.New(client, cfg.Engine, cfg.Prompts, logger)
	return &Engine{
		Validator:  validate.New(cfg.Engine.InvalidPatterns),
		Generator:  generator,
		Classifier: classifier,
		Reanalyzer: outlier.New(client, classifier, cfg.Engine, cfg.Prompts, logger),
		SemiOpen:   semiopen.NewProcessor(generator, classifier, cfg.Engine, logger),
		cfg:        cfg.Engine,
		logger:     logger,
	}
}

// VariableRequest names one variable to classify, with optional question
// context and per-invocation overrides.
type VariableRequest struct {
	Variable string
	Question string
	// Mode overrides the configured classification mode when set.
	Mode resume.Mode
	// Progress receives step updates; nil discards them.
	Progress progress.Callback
}

// ProcessVariable runs the full pipeline for one variable: resolve mode,
// extract and filter responses, generate or reuse the taxonomy, classify in
// one or two passes, persist the coded column and choice metadata, and
// return the summary. Degraded LLM results never fail the run; only an
// unreadable dataset, a missing column, or a persistence failure do.
func (e *Engine) ProcessVariable(ctx context.Context, ds dataset.Dataset, choices dataset.ChoiceStore, req VariableRequest) (model.VariableSummary, error) {
	cb := monotone(req.Progress)

	mode := req.Mode
	if mode == "" {
		parsed, err := resume.ParseMode(e.cfg.Mode)
		if err != nil {
			return model.VariableSummary{}, err
		}
		mode = parsed
	}

	log := e.logger.With(zap.String("variable", req.Variable), zap.String("mode", string(mode)))

	// Load + resolve.
	cb("[1/9] Loading raw data...", 10)
	totalRows := ds.Rows()
	cb(fmt.Sprintf("Loaded %d submissions", totalRows), 12)

	decision, err := resume.Resolve(ds, choices, req.Variable, mode, e.cfg.InvalidCode)
	if err != nil {
		return model.VariableSummary{}, err
	}

	if decision.Action == resume.ActionSkip {
		log.Info("all rows already classified, skipping",
			zap.Int("classified", decision.CodedFilled))
		cb("All rows already classified - skipping", 100)
		return report.Skipped(req.Variable, req.Question, totalRows, decision.CodedFilled), nil
	}

	// Extract.
	cb(fmt.Sprintf("[2/9] Extracting %s responses...", req.Variable), 15)
	source, err := ds.Column(req.Variable)
	if err != nil {
		return model.VariableSummary{}, err
	}
	var responses []string
	for _, v := range source {
		if t := strings.TrimSpace(v); t != "" {
			responses = append(responses, t)
		}
	}
	cb(fmt.Sprintf("Found %d non-empty responses", len(responses)), 18)

	// Filter.
	cb("[3/9] Filtering valid responses...", 20)
	valid, invalid := e.Validator.Filter(responses)
	cb(fmt.Sprintf("Valid responses: %d", len(valid)), 22)
	cb(fmt.Sprintf("Invalid/empty responses: %d", len(invalid)), 25)

	// Generate or reuse the taxonomy.
	var tax *model.Taxonomy
	var degraded bool
	if decision.Action == resume.ActionIncremental && len(decision.PriorCategories) > 0 {
		cb("[4/9] Using existing categories...", 30)
		tax = model.Restore(decision.PriorCategories)
		cb(fmt.Sprintf("Loaded %d existing categories", tax.Len()), 40)
	} else {
		cb("[4/9] Generating categories with AI...", 30)
		cb(fmt.Sprintf("Analyzing %d responses", len(valid)), 32)
		result := e.Generator.Generate(ctx, valid, req.Question, e.cfg.MaxCategories)
		tax = model.NewTaxonomy(result.Categories)
		degraded = result.Degraded
		cb(fmt.Sprintf("Generated %d categories", tax.Len()), 40)
	}

	// Assign codes. A reused taxonomy may predate the Other catch-all; the
	// classifier requires it for its fallbacks.
	cb("[5/9] Creating category codes...", 45)
	tax.Append([]string{"Other"}, false)

	// Pass 1.
	if decision.Action == resume.ActionIncremental {
		cb(fmt.Sprintf("[6/9] Classifying %d uncoded rows (incremental)...", decision.CodedEmpty), 50)
	} else {
		cb(fmt.Sprintf("[6/9] Classifying %d responses with AI...", totalRows), 50)
	}
	classifications := e.classifyRows(ctx, source, decision, tax, req.Question, cb)
	cb(fmt.Sprintf("Classification completed: %d responses", len(classifications)), 70)

	// Detect outliers.
	cb("[7/9] Analyzing classification quality...", 75)
	outliers := e.Reanalyzer.Detect(classifications)
	cb(fmt.Sprintf("Found %d low-confidence responses", len(outliers)), 78)

	// Pass 2, conditional.
	newCategories := 0
	if len(outliers) >= e.cfg.MinOutliers {
		cb("[8/9] Re-analyzing outliers...", progress.Advisory)
		labels := e.Reanalyzer.Mine(ctx, outliers, req.Question)
		if len(labels) > 0 {
			newCategories = tax.Append(labels, true)
			log.Info("taxonomy extended from outliers",
				zap.Int("new_categories", newCategories),
				zap.Int("total_categories", tax.Len()))
			reclassified := e.Reanalyzer.Reclassify(ctx, classifications, outliers, tax, req.Question)
			cb(fmt.Sprintf("Re-classified %d outliers with %d new categories", reclassified, newCategories), progress.Advisory)
		}
	} else {
		log.Debug("skipping outlier re-analysis", zap.Int("outliers", len(outliers)))
	}

	// Persist.
	cb("[9/9] Saving results...", 85)
	if err := e.persist(ds, choices, req.Variable, classifications, tax); err != nil {
		return model.VariableSummary{}, err
	}
	cb("Files saved successfully", 95)
	cb("Classification complete!", 100)

	summary := report.Build(report.Input{
		Variable:        req.Variable,
		Question:        req.Question,
		TotalRows:       totalRows,
		ResponsesFound:  len(responses),
		InvalidCode:     e.cfg.InvalidCode,
		Classifications: classifications,
		Taxonomy:        tax,
		Outliers:        len(outliers),
		NewCategories:   newCategories,
		Degraded:        degraded,
	})

	log.Info("variable completed",
		zap.Int("valid_classified", summary.ValidClassified),
		zap.Int("invalid", summary.InvalidText),
		zap.Int("empty", summary.EmptyResponses),
		zap.Int("categories", summary.Categories),
		zap.Bool("degraded", summary.Degraded))

	return summary, nil
}

// classifyRows produces exactly one Classification per dataset row, in row
// order. Existing, empty, and invalid rows are resolved locally; only the
// remaining valid rows reach the LLM.
func (e *Engine) classifyRows(ctx context.Context, source []string, decision resume.Decision, tax *model.Taxonomy, question string, cb progress.Callback) []model.Classification {
	classifications := make([]model.Classification, 0, len(source))
	var pending []model.Response

	for row, value := range source {
		if decision.Action == resume.ActionIncremental {
			if code, ok := decision.ExistingCodes[row]; ok {
				classifications = append(classifications, model.Classification{
					Row:         row,
					Response:    strings.TrimSpace(value),
					Outcome:     model.OutcomeExisting,
					CarriedCode: code,
					Confidence:  1.0,
				})
				continue
			}
		}

		text := strings.TrimSpace(value)
		if text == "" {
			classifications = append(classifications, model.Classification{
				Row:     row,
				Outcome: model.OutcomeEmpty,
			})
			continue
		}

		if !e.Validator.IsValid(text) {
			classifications = append(classifications, model.Classification{
				Row:      row,
				Response: text,
				Outcome:  model.OutcomeInvalid,
				Assignments: []model.Assignment{
					{Category: e.cfg.InvalidCategory, Confidence: 1.0},
				},
				Codes:      []int{e.cfg.InvalidCode},
				Confidence: 1.0,
			})
			continue
		}

		pending = append(pending, model.Response{Row: row, Text: text})
	}

	// Scale classifier progress (0-100) into this stage's 50-70 band so the
	// later milestones keep their own percents.
	stage := func(msg string, pct int) {
		if pct < 0 {
			cb(msg, pct)
			return
		}
		cb(msg, 50+pct*20/100)
	}

	classifications = append(classifications, e.Classifier.Classify(ctx, pending, tax, question, stage)...)
	model.SortByRow(classifications)
	return classifications
}

func (e *Engine) persist(ds dataset.Dataset, choices dataset.ChoiceStore, variable string, classifications []model.Classification, tax *model.Taxonomy) error {
	values := make([]string, len(classifications))
	for i, c := range classifications {
		values[i] = c.CodeString()
	}

	if err := ds.SetColumn(dataset.CodedColumn(variable), variable, values); err != nil {
		return fmt.Errorf("write coded column: %w", err)
	}
	if err := ds.Save(); err != nil {
		return fmt.Errorf("save raw data: %w", err)
	}

	if choices == nil {
		return nil
	}
	invalid := model.Category{Label: e.cfg.InvalidCategory, Code: e.cfg.InvalidCode}
	if err := choices.SaveChoices(variable, tax.Categories(), invalid); err != nil {
		return fmt.Errorf("update choices: %w", err)
	}
	if err := choices.Save(); err != nil {
		return fmt.Errorf("save form file: %w", err)
	}
	return nil
}

// ProcessSemiOpen detects every semi open-ended pair in the form and codes
// each pair's free-text answers, merging them with the pre-coded selections.
// Both files are saved once all pairs are processed. A form with no such
// pairs is a no-op.
func (e *Engine) ProcessSemiOpen(ctx context.Context, ds dataset.Dataset, form semiopen.Form, cb progress.Callback) ([]semiopen.Summary, error) {
	pairs := semiopen.Detect(form)
	if len(pairs) == 0 {
		e.logger.Info("no semi open-ended pairs detected")
		return nil, nil
	}
	e.logger.Info("semi open-ended pairs detected", zap.Int("pairs", len(pairs)))

	summaries := make([]semiopen.Summary, 0, len(pairs))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		s, err := e.SemiOpen.Process(ctx, ds, form, pair, cb)
		if err != nil {
			return summaries, fmt.Errorf("process %s + %s: %w", pair.SelectVariable, pair.TextVariable, err)
		}
		summaries = append(summaries, s)
	}

	if err := ds.Save(); err != nil {
		return summaries, fmt.Errorf("save raw data: %w", err)
	}
	if err := form.Save(); err != nil {
		return summaries, fmt.Errorf("save form file: %w", err)
	}
	return summaries, nil
}

// monotone wraps a callback so the reported percent never regresses, even
// when parallel batches complete out of order. Advisory messages pass
// through untouched.
func monotone(cb progress.Callback) progress.Callback {
	if cb == nil {
		return progress.Nop
	}
	var last atomic.Int64
	return func(msg string, pct int) {
		if pct < 0 {
			cb(msg, pct)
			return
		}
		for {
			cur := last.Load()
			if int64(pct) <= cur {
				cb(msg, int(cur))
				return
			}
			if last.CompareAndSwap(cur, int64(pct)) {
				cb(msg, pct)
				return
			}
		}
	}
}
