package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job API",
	Long: `Start the HTTP server that accepts classification jobs, runs them in
the background, and reports per-job progress.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config file not loaded, using defaults", zap.String("path", cfgPath), zap.Error(err))
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}

	r := srv.SetupRouter()
	logger.Info("starting server", zap.String("port", servePort))
	return r.Run(":" + servePort)
}
