// Package classify assigns survey responses to taxonomy categories in
// batched LLM calls, with multi-label reduction and an optional bounded
// worker pool for large datasets.
package classify

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core/common"
	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/llm"
	"github.com/insightcoder/insightcoder/internal/progress"
)

type batchItem struct {
	ResponseNumber int                `json:"response_number"`
	Category       string             `json:"category"`
	Confidence     float64            `json:"confidence"`
	Categories     []model.Assignment `json:"categories"`
}

type batchResponse struct {
	Classifications []batchItem `json:"classifications"`
}

type Classifier struct {
	llm     llm.Client
	cfg     config.EngineConfig
	prompts config.Prompts
	logger  *zap.Logger
}

func New(client llm.Client, cfg config.EngineConfig, prompts config.Prompts, logger *zap.Logger) *Classifier {
	return &Classifier{
		llm:     client,
		cfg:     cfg,
		prompts: prompts,
		logger:  logger,
	}
}

// batch is one contiguous slice of responses with their original rows.
type batch struct {
	idx       int
	responses []model.Response
}

// Classify codes the given valid responses against the taxonomy and returns
// one Classification per response in input order. Execution is parallel when
// enabled and the response count reaches the configured threshold, else
// sequential; both paths produce identical results. A failed batch degrades
// to ("Other", 0.0) for its responses and never aborts the run.
func (c *Classifier) Classify(ctx context.Context, responses []model.Response, tax *model.Taxonomy, question string, cb progress.Callback) []model.Classification {
	if len(responses) == 0 {
		return nil
	}
	if cb == nil {
		cb = progress.Nop
	}

	batches := c.partition(responses)
	results := make([][][]model.Assignment, len(batches))

	if c.cfg.Parallel && len(responses) >= c.cfg.ParallelThreshold {
		c.logger.Info("classifying in parallel",
			zap.Int("responses", len(responses)),
			zap.Int("batches", len(batches)),
			zap.Int("workers", c.cfg.MaxWorkers),
		)
		c.runParallel(ctx, batches, results, tax, question, len(responses), cb)
	} else {
		c.logger.Info("classifying sequentially",
			zap.Int("responses", len(responses)),
			zap.Int("batches", len(batches)),
		)
		c.runSequential(ctx, batches, results, tax, question, len(responses), cb)
	}

	// Reassemble by original batch index; batches are contiguous so this
	// restores input order exactly.
	out := make([]model.Classification, 0, len(responses))
	for bi, b := range batches {
		for ri, r := range b.responses {
			out = append(out, c.toClassification(r, results[bi][ri], tax))
		}
	}
	return out
}

// ClassifyBatch performs one LLM call for up to batch-size responses and
// returns the reduced assignment list per response, in input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, responses []string, tax *model.Taxonomy, question string) ([][]model.Assignment, error) {
	if len(responses) == 0 {
		return nil, nil
	}

	var prompt string
	if c.cfg.MultiLabel {
		prompt = fmt.Sprintf(c.prompts.MultiLabel,
			common.QuestionContext(question),
			common.BulletList(tax.Labels()),
			len(responses),
			common.NumberedList(responses),
			c.cfg.MinCategoryConfidence,
			c.cfg.MaxCategoriesPerResponse,
			c.cfg.SingleCategoryThreshold,
		)
	} else {
		prompt = fmt.Sprintf(c.prompts.SingleLabel,
			common.QuestionContext(question),
			common.BulletList(tax.Labels()),
			len(responses),
			common.NumberedList(responses),
			c.cfg.MinCategoryConfidence,
		)
	}

	raw, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("batch classification call: %w", err)
	}

	parsed, err := common.ParseJSON[batchResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("batch classification parse: %w", err)
	}

	// Index items by 1-based response number, falling back to position for
	// models that omit the field.
	byNumber := make(map[int]batchItem, len(parsed.Classifications))
	for i, item := range parsed.Classifications {
		n := item.ResponseNumber
		if n < 1 || n > len(responses) {
			n = i + 1
		}
		byNumber[n] = item
	}

	out := make([][]model.Assignment, len(responses))
	for i := range responses {
		item, ok := byNumber[i+1]
		if !ok {
			out[i] = []model.Assignment{{Category: "Other", Confidence: 0.3}}
			continue
		}
		if c.cfg.MultiLabel && len(item.Categories) > 0 {
			out[i] = c.reduce(c.coerce(item.Categories, tax))
		} else {
			out[i] = c.coerceSingle(item, tax)
		}
	}
	return out, nil
}

func (c *Classifier) partition(responses []model.Response) []batch {
	size := c.cfg.BatchSize
	if size <= 0 {
		size = 10
	}
	var batches []batch
	for i := 0; i < len(responses); i += size {
		end := min(i+size, len(responses))
		batches = append(batches, batch{idx: len(batches), responses: responses[i:end]})
	}
	return batches
}

func (c *Classifier) runSequential(ctx context.Context, batches []batch, results [][][]model.Assignment, tax *model.Taxonomy, question string, total int, cb progress.Callback) {
	processed := 0
	for _, b := range batches {
		results[b.idx] = c.classifyOrDegrade(ctx, b, tax, question)
		processed += len(b.responses)
		reportProgress(cb, processed, total)
	}
}

func (c *Classifier) runParallel(ctx context.Context, batches []batch, results [][][]model.Assignment, tax *model.Taxonomy, question string, total int, cb progress.Callback) {
	var processed atomic.Int64
	delay := c.cfg.RateLimitDelay()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.MaxWorkers, 1))

	for i, b := range batches {
		// Small courtesy gap between submissions for upstream rate limits.
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		g.Go(func() error {
			results[b.idx] = c.classifyOrDegrade(gctx, b, tax, question)
			done := int(processed.Add(int64(len(b.responses))))
			reportProgress(cb, done, total)
			return nil
		})
	}

	// Workers never return errors; failures degrade inside the batch.
	_ = g.Wait()
}

// classifyOrDegrade wraps ClassifyBatch with the absorb-and-continue failure
// rule: the whole batch falls back to ("Other", 0.0) on error.
func (c *Classifier) classifyOrDegrade(ctx context.Context, b batch, tax *model.Taxonomy, question string) [][]model.Assignment {
	texts := make([]string, len(b.responses))
	for i, r := range b.responses {
		texts[i] = r.Text
	}

	assignments, err := c.ClassifyBatch(ctx, texts, tax, question)
	if err != nil {
		c.logger.Error("batch failed, degrading to Other",
			zap.Int("batch", b.idx),
			zap.Int("size", len(b.responses)),
			zap.Error(err),
		)
		assignments = make([][]model.Assignment, len(b.responses))
		for i := range assignments {
			assignments[i] = []model.Assignment{{Category: "Other", Confidence: 0.0}}
		}
	}
	return assignments
}

// reduce applies the multi-label reduction rule: confidence floor, dominant
// collapse, descending sort, truncation, and the Other fallback.
func (c *Classifier) reduce(candidates []model.Assignment) []model.Assignment {
	filtered := make([]model.Assignment, 0, len(candidates))
	for _, a := range candidates {
		if a.Confidence >= c.cfg.MinCategoryConfidence {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})

	if len(filtered) == 0 {
		return []model.Assignment{{Category: "Other", Confidence: 0.3}}
	}
	if filtered[0].Confidence >= c.cfg.SingleCategoryThreshold {
		return filtered[:1]
	}
	if len(filtered) > c.cfg.MaxCategoriesPerResponse {
		filtered = filtered[:c.cfg.MaxCategoriesPerResponse]
	}
	return filtered
}

// coerce replaces labels unknown to the taxonomy with ("Other", 0.5) and
// drops resulting duplicates, keeping the highest-confidence entry. One
// rule for every path.
func (c *Classifier) coerce(candidates []model.Assignment, tax *model.Taxonomy) []model.Assignment {
	out := make([]model.Assignment, 0, len(candidates))
	seen := make(map[string]int)
	for _, a := range candidates {
		if _, ok := tax.Code(a.Category); !ok {
			a = model.Assignment{Category: "Other", Confidence: 0.5}
		}
		if i, dup := seen[a.Category]; dup {
			if a.Confidence > out[i].Confidence {
				out[i].Confidence = a.Confidence
			}
			continue
		}
		seen[a.Category] = len(out)
		out = append(out, a)
	}
	return out
}

func (c *Classifier) coerceSingle(item batchItem, tax *model.Taxonomy) []model.Assignment {
	category := item.Category
	confidence := item.Confidence
	if category == "" {
		category, confidence = "Other", 0.5
	}
	if _, ok := tax.Code(category); !ok {
		category, confidence = "Other", 0.5
	}
	return []model.Assignment{{Category: category, Confidence: confidence}}
}

func (c *Classifier) toClassification(r model.Response, assignments []model.Assignment, tax *model.Taxonomy) model.Classification {
	codes := make([]int, len(assignments))
	for i, a := range assignments {
		codes[i], _ = tax.Code(a.Category)
	}
	return model.Classification{
		Row:         r.Row,
		Response:    r.Text,
		Outcome:     model.OutcomeClassified,
		Assignments: assignments,
		Codes:       codes,
		Confidence:  assignments[0].Confidence,
	}
}

func reportProgress(cb progress.Callback, processed, total int) {
	pct := processed * 100 / total
	cb(fmt.Sprintf("Classifying... %d/%d (%d%%)", processed, total, pct), pct)
}
