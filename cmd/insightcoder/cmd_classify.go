package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core"
	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/core/resume"
	"github.com/insightcoder/insightcoder/internal/dataset"
	"github.com/insightcoder/insightcoder/internal/llm"
)

var (
	classifyRaw    string
	classifyForm   string
	classifyOutput string
	classifyVars   []string
	classifyMode   string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one or more variables in a spreadsheet",
	Long: `Classify the responses of one or more free-text variables.

Each --var takes either a column name or name=question, where the question
text gives the model context about what was asked:

  insightcoder classify --raw data.xlsx --var "Q17=What should we improve?"`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyRaw, "raw", "", "path to the raw data spreadsheet (required)")
	classifyCmd.Flags().StringVar(&classifyForm, "form", "", "path to the XLSForm definition file")
	classifyCmd.Flags().StringVar(&classifyOutput, "output", "", "write coded data here instead of overwriting --raw")
	classifyCmd.Flags().StringArrayVar(&classifyVars, "var", nil, "variable to classify, as name or name=question (repeatable, required)")
	classifyCmd.Flags().StringVar(&classifyMode, "mode", "", "incremental or rerun (default from config)")
	classifyCmd.MarkFlagRequired("raw")
	classifyCmd.MarkFlagRequired("var")
}

func runClassify(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config file not loaded, using defaults", zap.String("path", cfgPath))
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	var mode resume.Mode
	if classifyMode != "" {
		mode, err = resume.ParseMode(classifyMode)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	ds, err := dataset.OpenWorkbook(classifyRaw)
	if err != nil {
		return fmt.Errorf("open raw data: %w", err)
	}
	if classifyOutput != "" {
		ds.SetOutputPath(classifyOutput)
	}

	var choices dataset.ChoiceStore
	if classifyForm != "" {
		form, err := dataset.OpenFormFile(classifyForm)
		if err != nil {
			return fmt.Errorf("open form file: %w", err)
		}
		choices = form
	}

	engine := core.NewEngine(client, cfg, logger)
	results := make([]model.VariableSummary, 0, len(classifyVars))
	failed := 0

	for _, spec := range classifyVars {
		name, question := parseVarSpec(spec)
		fmt.Printf("\n=== %s ===\n", name)

		summary, err := engine.ProcessVariable(ctx, ds, choices, core.VariableRequest{
			Variable: name,
			Question: question,
			Mode:     mode,
			Progress: printProgress,
		})
		if err != nil {
			logger.Error("variable failed", zap.String("variable", name), zap.Error(err))
			failed++
			results = append(results, model.VariableSummary{
				Variable: name,
				Question: question,
				Status:   model.StatusFailed,
				Error:    err.Error(),
			})
			continue
		}
		results = append(results, summary)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", out)

	if failed > 0 {
		return fmt.Errorf("%d of %d variables failed", failed, len(classifyVars))
	}
	return nil
}

func parseVarSpec(spec string) (name, question string) {
	if i := strings.Index(spec, "="); i >= 0 {
		return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
	}
	return strings.TrimSpace(spec), ""
}

func printProgress(message string, percent int) {
	if percent < 0 {
		fmt.Printf("         %s\n", message)
		return
	}
	fmt.Printf("  [%3d%%] %s\n", percent, message)
}
