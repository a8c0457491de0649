package main

import (
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core"
	"github.com/insightcoder/insightcoder/internal/dataset"
	"github.com/insightcoder/insightcoder/internal/llm"
)

var (
	semiOpenRaw    string
	semiOpenForm   string
	semiOpenOutput string
)

var semiOpenCmd = &cobra.Command{
	Use:   "semiopen",
	Short: "Code the free-text answers of pre-coded questions with an Other option",
	Long: `Detect select questions whose choice list has an "Other"/"Lainnya"
option with a companion free-text field, classify the free-text answers,
and write a merged code column combining the pre-coded selections with the
new codes. New categories are appended to the form's choice list.`,
	RunE: runSemiOpen,
}

func init() {
	semiOpenCmd.Flags().StringVar(&semiOpenRaw, "raw", "", "path to the raw data spreadsheet (required)")
	semiOpenCmd.Flags().StringVar(&semiOpenForm, "form", "", "path to the XLSForm definition file (required)")
	semiOpenCmd.Flags().StringVar(&semiOpenOutput, "output", "", "write merged data here instead of overwriting --raw")
	semiOpenCmd.MarkFlagRequired("raw")
	semiOpenCmd.MarkFlagRequired("form")
}

func runSemiOpen(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	ds, err := dataset.OpenWorkbook(semiOpenRaw)
	if err != nil {
		return fmt.Errorf("open raw data: %w", err)
	}
	if semiOpenOutput != "" {
		ds.SetOutputPath(semiOpenOutput)
	}

	form, err := dataset.OpenFormFile(semiOpenForm)
	if err != nil {
		return fmt.Errorf("open form file: %w", err)
	}

	engine := core.NewEngine(client, cfg, logger)
	summaries, err := engine.ProcessSemiOpen(ctx, ds, form, printProgress)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No semi open-ended pairs detected")
		return nil
	}

	out, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", out)
	return nil
}
