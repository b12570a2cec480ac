// Command settlectl is the operator CLI for the settlement engine.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/config"
	"github.com/sjperalta/village-settlement-api/internal/database"
	"github.com/sjperalta/village-settlement-api/internal/jobs"
	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/internal/services"
	"github.com/sjperalta/village-settlement-api/internal/storage"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "settlectl",
	Short: "Operator tools for the village settlement engine",
	Long: `settlectl runs maintenance tasks against the settlement database:
schema migration, conservation checks, statement dry runs and promotion
evaluation. Configuration comes from the same environment as the API.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what a database-backed command needs.
type env struct {
	cfg    *config.Config
	db     *gorm.DB
	worker *jobs.Worker
	svcs   *services.Services
}

func (e *env) Close() {
	e.worker.Shutdown()
	if err := database.Close(e.db); err != nil {
		logger.Warn("Failed to close database", "error", err)
	}
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Environment, cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("open storage: %w", err)
	}

	worker := jobs.NewWorker(1)
	return &env{
		cfg:    cfg,
		db:     db,
		worker: worker,
		svcs:   services.NewServices(repository.NewRepositories(db), worker, store, cfg),
	}, nil
}
