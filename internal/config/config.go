package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Prompts holds the LLM prompt templates. Each is a fmt.Sprintf template;
// the argument order is fixed by the component that renders it, so custom
// templates must keep the same verbs in the same order.
type Prompts struct {
	// Categories: question context, sample count, numbered responses,
	// category-count instruction.
	Categories string `toml:"categories"`
	// MultiLabel: question context, category list, response count, numbered
	// responses, min confidence, max categories per response, dominant
	// threshold.
	MultiLabel string `toml:"multi_label"`
	// SingleLabel: question context, category list, response count, numbered
	// responses, min confidence.
	SingleLabel string `toml:"single_label"`
	// Outliers: outlier count, question context, numbered responses, max new
	// categories.
	Outliers string `toml:"outliers"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type RedisConfig struct {
	URL string `toml:"url"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// EngineConfig carries every tunable of the classification engine. All
// thresholds are policy constants, not invariants; they default to the
// values documented on Default and may be overridden per run.
type EngineConfig struct {
	InvalidPatterns          []string `toml:"invalid_patterns"`
	InvalidCategory          string   `toml:"invalid_category"`
	InvalidCode              int      `toml:"invalid_code"`
	MaxCategories            int      `toml:"max_categories"` // 0 lets the model decide
	SampleRatio              float64  `toml:"sample_ratio"`
	MinSampleSize            int      `toml:"min_sample_size"`
	MaxSampleSize            int      `toml:"max_sample_size"`
	StratifiedSampling       bool     `toml:"stratified_sampling"`
	MultiLabel               bool     `toml:"multi_label"`
	MinCategoryConfidence    float64  `toml:"min_category_confidence"`
	MaxCategoriesPerResponse int      `toml:"max_categories_per_response"`
	SingleCategoryThreshold  float64  `toml:"single_category_threshold"`
	BatchSize                int      `toml:"batch_size"`
	Parallel                 bool     `toml:"parallel"`
	ParallelThreshold        int      `toml:"parallel_threshold"`
	MaxWorkers               int      `toml:"max_workers"`
	RateLimitDelayMS         int      `toml:"rate_limit_delay_ms"`
	OutlierConfidence        float64  `toml:"outlier_confidence"`
	MinOutliers              int      `toml:"min_outliers_for_new_category"`
	MaxNewCategories         int      `toml:"max_new_categories"`
	SemiOpenMaxCategories    int      `toml:"semi_open_max_categories"`
	Mode                     string   `toml:"mode"` // "incremental" or "rerun"
	FallbackCategories       []string `toml:"fallback_categories"`
}

// RateLimitDelay returns the inter-batch submission delay.
func (e EngineConfig) RateLimitDelay() time.Duration {
	return time.Duration(e.RateLimitDelayMS) * time.Millisecond
}

type Config struct {
	LLM     LLMConfig    `toml:"llm"`
	Engine  EngineConfig `toml:"engine"`
	Prompts Prompts      `toml:"prompts"`
	Redis   RedisConfig  `toml:"redis"`
	Store   StoreConfig  `toml:"store"`
}

// Default returns a config populated with every documented default, usable
// without any config file.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Engine: EngineConfig{
			InvalidPatterns:          defaultInvalidPatterns(),
			InvalidCategory:          "Tidak Ada Jawaban",
			InvalidCode:              99,
			SampleRatio:              1.0,
			MinSampleSize:            50,
			MaxSampleSize:            500,
			StratifiedSampling:       true,
			MultiLabel:               true,
			MinCategoryConfidence:    0.6,
			MaxCategoriesPerResponse: 3,
			SingleCategoryThreshold:  0.85,
			BatchSize:                10,
			Parallel:                 true,
			ParallelThreshold:        100,
			MaxWorkers:               5,
			RateLimitDelayMS:         100,
			OutlierConfidence:        0.50,
			MinOutliers:              10,
			MaxNewCategories:         3,
			SemiOpenMaxCategories:    10,
			Mode:                     "incremental",
			FallbackCategories:       defaultFallbackCategories(),
		},
		Prompts: Prompts{
			Categories:  defaultCategoriesPrompt,
			MultiLabel:  defaultMultiLabelPrompt,
			SingleLabel: defaultSingleLabelPrompt,
			Outliers:    defaultOutliersPrompt,
		},
		Store: StoreConfig{Path: "insightcoder.db"},
	}
}

// Load reads a TOML config file over the defaults, so partial files only
// override the keys they name.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values from the environment. Resolution order is
// config file → env var → hardcoded default, applied once here so the engine
// receives a settled, immutable config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("JOB_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CLASSIFICATION_MODE"); v != "" {
		c.Engine.Mode = v
	}
	if v := os.Getenv("PARALLEL_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.MaxWorkers = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Engine.RateLimitDelayMS = n
		}
	}
}

func defaultInvalidPatterns() []string {
	return []string{
		"ta", "t.a", "tidak ada", "tdk ada", "tdkada", "tidakada",
		"tidak tahu", "tdk tahu", "tdktahu", "tidaktahu",
		"tidak tau", "tdk tau", "tdktau", "tidaktau",
		"n/a", "na", "none", "-", "--", "---",
		"tidak", "tdk", "kosong", "empty",
		"tidak ada jawaban", "tidak ada saran",
		"belum ada", "belum", "nothing",
	}
}

func defaultFallbackCategories() []string {
	return []string{
		"Peningkatan Fasilitas",
		"Peningkatan Layanan",
		"Infrastruktur",
		"Harga/Tarif",
		"Kebersihan",
		"Keamanan",
		"Jadwal/Frekuensi",
		"Kenyamanan",
		"Teknologi/Digitalisasi",
		"Other",
	}
}

const defaultCategoriesPrompt = `You are an expert survey data analyst. Analyze the respondent answers below and derive the categories that best describe them.%s

Here are %d respondent answers:

%s

Instructions:
1. Analyze all answers thoroughly and identify the main recurring themes.
2. %s
3. Categories must be specific, mutually exclusive, and cover the majority of answers.
4. Always include an "Other" catch-all category.

Respond with JSON only:
{"categories": ["Category 1", "Category 2", "Other"]}`

const defaultMultiLabelPrompt = `Classify each respondent answer into the available categories.%s

Available categories:
%s

Respondent answers (%d responses):
%s

MULTI-LABEL instructions:
1. An answer may contain several distinct themes; assign every relevant category.
2. Give a confidence score between 0.0 and 1.0 for each detected category.
3. Only include categories with confidence >= %.2f.
4. At most %d categories per answer.
5. Exception: if one category reaches confidence >= %.2f it dominates; report only that category.
6. If nothing fits, use "Other".

Respond with JSON only:
{"classifications": [{"response_number": 1, "categories": [{"category": "...", "confidence": 0.85}]}]}`

const defaultSingleLabelPrompt = `Classify each respondent answer into exactly one of the available categories.%s

Available categories:
%s

Respondent answers (%d responses):
%s

Instructions:
1. Pick the single category that best captures the main intent of each answer.
2. Give a confidence score between 0.0 and 1.0.
3. Only assign a category when confidence >= %.2f; otherwise use "Other".

Respond with JSON only:
{"classifications": [{"response_number": 1, "category": "...", "confidence": 0.95}]}`

const defaultOutliersPrompt = `You are an expert survey data analyst. The %d answers below did not fit the existing categories (low confidence).%s

The answers:
%s

Analysis:
1. Do these answers form one or more coherent new themes?
2. If yes, propose at most %d NEW categories, each specific, distinct from the existing ones, and covering at least 5 of the answers above.
3. If the answers are too diverse, return an empty array.

Respond with JSON only:
{"new_categories": ["New Category 1"], "reasoning": "..."}`
