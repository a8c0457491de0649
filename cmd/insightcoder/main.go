package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "insightcoder",
	Short: "AI-assisted categorical coding of open-ended survey responses",
	Long: `insightcoder classifies free-text survey responses into categorical
codes using an LLM: it generates a category taxonomy from the responses,
classifies every row, re-analyzes low-confidence outliers, and writes the
coded column back to the spreadsheet.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config/config.toml", "path to TOML config file")
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(semiOpenCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
