// Package outlier implements the second-pass quality loop: mine new
// categories from low-confidence classifications and re-classify only the
// affected rows.
package outlier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core/classify"
	"github.com/insightcoder/insightcoder/internal/core/common"
	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/llm"
)

type outlierResponse struct {
	NewCategories []string `json:"new_categories"`
	Reasoning     string   `json:"reasoning"`
}

type Reanalyzer struct {
	llm        llm.Client
	classifier *classify.Classifier
	cfg        config.EngineConfig
	prompt     string
	logger     *zap.Logger
}

func New(client llm.Client, classifier *classify.Classifier, cfg config.EngineConfig, prompts config.Prompts, logger *zap.Logger) *Reanalyzer {
	return &Reanalyzer{
		llm:        client,
		classifier: classifier,
		cfg:        cfg,
		prompt:     prompts.Outliers,
		logger:     logger,
	}
}

// Detect returns the classifications whose confidence fell below the outlier
// cutoff. Only rows classified in this run qualify; invalid and existing
// rows carry a fixed confidence of 1.0 and never surface here.
func (r *Reanalyzer) Detect(classifications []model.Classification) []model.Classification {
	var outliers []model.Classification
	for _, c := range classifications {
		if c.Outcome == model.OutcomeClassified && c.Confidence < r.cfg.OutlierConfidence {
			outliers = append(outliers, c)
		}
	}
	return outliers
}

// Mine asks the model whether the outlier responses form coherent new
// themes. Below the minimum outlier count it skips silently; on API or
// parse failure it reports no new categories. Never an aborting error.
func (r *Reanalyzer) Mine(ctx context.Context, outliers []model.Classification, question string) []string {
	if len(outliers) < r.cfg.MinOutliers {
		return nil
	}

	texts := make([]string, len(outliers))
	for i, o := range outliers {
		texts[i] = o.Response
	}

	prompt := fmt.Sprintf(r.prompt,
		len(texts),
		common.QuestionContext(question),
		common.NumberedList(texts),
		r.cfg.MaxNewCategories,
	)

	raw, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("outlier analysis failed, keeping taxonomy unchanged", zap.Error(err))
		return nil
	}

	parsed, err := common.ParseJSON[outlierResponse](raw)
	if err != nil {
		r.logger.Warn("outlier analysis returned unparseable JSON", zap.Error(err))
		return nil
	}

	if len(parsed.NewCategories) > r.cfg.MaxNewCategories {
		parsed.NewCategories = parsed.NewCategories[:r.cfg.MaxNewCategories]
	}
	if len(parsed.NewCategories) == 0 {
		r.logger.Info("no new categories needed", zap.String("reasoning", parsed.Reasoning))
	}
	return parsed.NewCategories
}

// Reclassify re-runs classification for the outlier rows against the
// extended taxonomy and overwrites their entries in classifications in
// place. Rows outside the outlier set are never touched.
func (r *Reanalyzer) Reclassify(ctx context.Context, classifications []model.Classification, outliers []model.Classification, tax *model.Taxonomy, question string) int {
	if len(outliers) == 0 {
		return 0
	}

	responses := make([]model.Response, len(outliers))
	for i, o := range outliers {
		responses[i] = model.Response{Row: o.Row, Text: o.Response}
	}

	updated := r.classifier.Classify(ctx, responses, tax, question, nil)

	byRow := make(map[int]int, len(classifications))
	for i, c := range classifications {
		byRow[c.Row] = i
	}

	replaced := 0
	for _, u := range updated {
		if i, ok := byRow[u.Row]; ok {
			classifications[i] = u
			replaced++
		}
	}
	return replaced
}
