// Package category derives a variable's taxonomy from a sample of valid
// responses via one LLM call.
package category

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core/common"
	"github.com/insightcoder/insightcoder/internal/llm"
)

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// Result carries the generated labels plus a degraded flag set when the LLM
// call failed and the fallback taxonomy was used instead.
type Result struct {
	Categories []string
	Degraded   bool
}

type Generator struct {
	llm    llm.Client
	cfg    config.EngineConfig
	prompt string
	logger *zap.Logger

	// newRand supplies a fresh Rand per Generate call. A rand.Rand is not
	// safe for concurrent use and the engine serves concurrent runs, so the
	// generator never holds one. Only swapped in tests.
	newRand func() *rand.Rand
}

func New(client llm.Client, cfg config.EngineConfig, prompts config.Prompts, logger *zap.Logger) *Generator {
	return &Generator{
		llm:    client,
		cfg:    cfg,
		prompt: prompts.Categories,
		logger: logger,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(rand.Int63()))
		},
	}
}

// Generate produces the taxonomy labels for validResponses. maxCategories of
// 0 leaves the category count to the model. The returned list always ends
// with "Other" and never contains duplicates. Generation never fails: API or
// parse errors degrade to the configured fallback taxonomy.
func (g *Generator) Generate(ctx context.Context, validResponses []string, question string, maxCategories int) Result {
	if len(validResponses) == 0 {
		return Result{Categories: []string{"Other"}}
	}

	sample := g.sample(validResponses)

	countInstruction := "Create as many categories as needed to cover every theme that appears (no count limit)."
	if maxCategories > 0 {
		countInstruction = fmt.Sprintf("Create at most %d categories covering the majority of answers.", maxCategories)
	}

	prompt := fmt.Sprintf(g.prompt,
		common.QuestionContext(question),
		len(sample),
		common.NumberedList(sample),
		countInstruction,
	)

	response, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("category generation failed, using fallback taxonomy", zap.Error(err))
		return Result{Categories: dedupe(g.cfg.FallbackCategories), Degraded: true}
	}

	parsed, err := common.ParseJSON[categoriesResponse](response)
	if err != nil {
		g.logger.Warn("category generation returned unparseable JSON, using fallback taxonomy", zap.Error(err))
		return Result{Categories: dedupe(g.cfg.FallbackCategories), Degraded: true}
	}

	categories := dedupe(parsed.Categories)
	if !contains(categories, "Other") {
		categories = append(categories, "Other")
	}
	if maxCategories > 0 && len(categories) > maxCategories {
		categories = categories[:maxCategories]
		if !contains(categories, "Other") {
			categories[len(categories)-1] = "Other"
		}
	}

	return Result{Categories: categories}
}

// sample picks the responses shown to the model: all of them when the
// clamped sample size covers the input, otherwise a stratified or uniform
// random subset.
func (g *Generator) sample(responses []string) []string {
	total := len(responses)

	size := int(float64(total) * g.cfg.SampleRatio)
	if size < g.cfg.MinSampleSize {
		size = g.cfg.MinSampleSize
	}
	if size > g.cfg.MaxSampleSize {
		size = g.cfg.MaxSampleSize
	}
	if size >= total {
		return responses
	}

	rnd := g.newRand()
	if g.cfg.StratifiedSampling && total > g.cfg.MaxSampleSize {
		return stratifiedSample(rnd, responses, size)
	}
	return randomSample(rnd, responses, size)
}

// stratifiedSample buckets responses by word count (short ≤5, medium 6-15,
// long 16+) and samples proportionally from each bucket, topping up from the
// remaining pool when rounding leaves a shortfall.
func stratifiedSample(rnd *rand.Rand, responses []string, size int) []string {
	var short, medium, long []string
	for _, r := range responses {
		switch words := len(strings.Fields(r)); {
		case words <= 5:
			short = append(short, r)
		case words <= 15:
			medium = append(medium, r)
		default:
			long = append(long, r)
		}
	}

	total := len(responses)
	nShort := len(short) * size / total
	nMedium := len(medium) * size / total
	nLong := size - nShort - nMedium

	sampled := randomSample(rnd, short, nShort)
	sampled = append(sampled, randomSample(rnd, medium, nMedium)...)
	sampled = append(sampled, randomSample(rnd, long, nLong)...)

	if len(sampled) < size {
		taken := make(map[string]int)
		for _, s := range sampled {
			taken[s]++
		}
		var pool []string
		for _, r := range responses {
			if taken[r] > 0 {
				taken[r]--
				continue
			}
			pool = append(pool, r)
		}
		sampled = append(sampled, randomSample(rnd, pool, size-len(sampled))...)
	}

	return sampled
}

func randomSample(rnd *rand.Rand, pool []string, n int) []string {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n >= len(pool) {
		out := make([]string, len(pool))
		copy(out, pool)
		return out
	}
	idx := rnd.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func contains(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
