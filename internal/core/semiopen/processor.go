package semiopen

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core/category"
	"github.com/insightcoder/insightcoder/internal/core/classify"
	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/dataset"
	"github.com/insightcoder/insightcoder/internal/progress"
)

// Summary aggregates one processed semi open-ended pair.
type Summary struct {
	SelectVariable string `json:"select_variable"`
	TextVariable   string `json:"text_variable"`
	MergedVariable string `json:"merged_variable,omitempty"`
	TotalRows      int    `json:"total_rows"`
	OtherResponses int    `json:"other_responses"`
	PreCoded       int    `json:"pre_coded_choices"`
	NewCategories  int    `json:"new_categories"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// Processor codes the free-text answers of one semi open-ended pair and
// merges them with the pre-coded selections.
type Processor struct {
	Generator  *category.Generator
	Classifier *classify.Classifier

	cfg    config.EngineConfig
	logger *zap.Logger
}

func NewProcessor(generator *category.Generator, classifier *classify.Classifier, cfg config.EngineConfig, logger *zap.Logger) *Processor {
	return &Processor{
		Generator:  generator,
		Classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// MergedColumn returns the derived column name holding a pair's merged codes.
func MergedColumn(selectVariable string) string {
	return selectVariable + "_merged"
}

// Process codes the rows that picked the Other option: it generates a
// taxonomy from their free-text answers, classifies them, and writes a
// merged code column (plus a label column) combining pre-coded selections
// with the new codes. New categories continue after the list's highest
// existing code and are appended to the form's choice list. A pair with no
// Other answers is a no-op.
func (p *Processor) Process(ctx context.Context, ds dataset.Dataset, form Form, pair Pair, cb progress.Callback) (Summary, error) {
	if cb == nil {
		cb = progress.Nop
	}
	log := p.logger.With(
		zap.String("select_variable", pair.SelectVariable),
		zap.String("text_variable", pair.TextVariable))

	selectVals, err := ds.Column(pair.SelectVariable)
	if err != nil {
		return Summary{}, err
	}
	textVals, err := ds.Column(pair.TextVariable)
	if err != nil {
		return Summary{}, err
	}

	choices := form.ChoiceLists()[pair.ListName]
	labels := make(map[int]string, len(choices))
	maxCode := 0
	for _, c := range choices {
		labels[c.Code] = c.Label
		if c.Code > maxCode {
			maxCode = c.Code
		}
	}

	summary := Summary{
		SelectVariable: pair.SelectVariable,
		TextVariable:   pair.TextVariable,
		TotalRows:      ds.Rows(),
		PreCoded:       len(choices),
	}

	otherValue := strconv.Itoa(pair.OtherCode)
	var pending []model.Response
	for row, v := range selectVals {
		if strings.TrimSpace(v) != otherValue {
			continue
		}
		if text := strings.TrimSpace(textVals[row]); text != "" {
			pending = append(pending, model.Response{Row: row, Text: text})
		}
	}
	if len(pending) == 0 {
		log.Info("no answers with the Other option, nothing to code")
		return summary, nil
	}
	summary.OtherResponses = len(pending)

	cb(fmt.Sprintf("Classifying %d '%s' answers for %s...", len(pending), labels[pair.OtherCode], pair.TextVariable), progress.Advisory)

	texts := make([]string, len(pending))
	for i, r := range pending {
		texts[i] = r.Text
	}
	gen := p.Generator.Generate(ctx, texts, pair.TextLabel, p.cfg.SemiOpenMaxCategories)
	summary.Degraded = gen.Degraded

	newCats := make([]model.Category, len(gen.Categories))
	for i, label := range gen.Categories {
		newCats[i] = model.Category{Label: label, Code: maxCode + 1 + i, Added: true}
	}
	summary.NewCategories = len(newCats)
	log.Info("categories generated from Other answers", zap.Int("categories", len(newCats)))

	tax := model.Restore(newCats)
	advisory := func(msg string, _ int) { cb(msg, progress.Advisory) }
	classifications := p.Classifier.Classify(ctx, pending, tax, pair.TextLabel, advisory)

	rowCode := make(map[int]int, len(classifications))
	for _, c := range classifications {
		if len(c.Codes) > 0 {
			rowCode[c.Row] = c.Codes[0]
		}
	}
	catLabel := make(map[int]string, len(newCats))
	for _, c := range newCats {
		catLabel[c.Code] = c.Label
	}

	codes := make([]string, len(selectVals))
	labelCol := make([]string, len(selectVals))
	for row, v := range selectVals {
		raw := strings.TrimSpace(v)
		switch {
		case raw == "":
		case raw == otherValue:
			if code, ok := rowCode[row]; ok {
				codes[row] = strconv.Itoa(code)
				labelCol[row] = catLabel[code]
			} else {
				// Other picked but no classifiable text.
				codes[row] = otherValue
				labelCol[row] = labels[pair.OtherCode]
			}
		default:
			codes[row] = raw
			if n, err := strconv.Atoi(raw); err == nil {
				labelCol[row] = labels[n]
			}
		}
	}

	merged := MergedColumn(pair.SelectVariable)
	if err := ds.SetColumn(merged, pair.SelectVariable, codes); err != nil {
		return Summary{}, fmt.Errorf("write merged column: %w", err)
	}
	if err := ds.SetColumn(merged+"_label", merged, labelCol); err != nil {
		return Summary{}, fmt.Errorf("write merged label column: %w", err)
	}
	if err := form.AppendChoices(pair.ListName, newCats); err != nil {
		return Summary{}, fmt.Errorf("extend choice list: %w", err)
	}
	summary.MergedVariable = merged

	log.Info("semi open-ended pair merged",
		zap.Int("other_responses", summary.OtherResponses),
		zap.Int("new_categories", summary.NewCategories))
	return summary, nil
}
