package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"infrachat/app/config"
	"infrachat/app/usecase"
	"infrachat/internal/infrastructure/console"
	"infrachat/internal/infrastructure/llm"
	"infrachat/internal/infrastructure/validator"
)

const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(runSession).ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, console.ErrInterrupted):
		return exitInterrupted
	case errors.Is(err, config.ErrMissingAPIKey):
		fmt.Println("❌ ERROR: GOOGLE_API_KEY not found in .env")
		return 1
	case errors.Is(err, errSessionFailed):
		// already reported by the session
		return 1
	default:
		fmt.Printf("❌ ERROR: %v\n", err)
		return 1
	}
}

var errSessionFailed = errors.New("session failed")

func runSession(ctx context.Context, cfg *config.Config) error {
	// Logs go to stderr so they never interleave with the conversation.
	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = cfg.Log.Level
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	llmClient, err := llm.New(ctx, cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL, llm.Options{
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		FoldSystemPrompt: cfg.LLM.FoldSystemPrompt,
		Timeout:          cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	planRunner := validator.NewTerraformPlanRunner(validator.PlanRunnerConfig{
		Binary:         cfg.Terraform.Binary,
		WorkDir:        cfg.Terraform.WorkDir,
		PluginCacheDir: cfg.Terraform.PluginCacheDir,
		InitTimeout:    cfg.Terraform.InitTimeout,
		PlanTimeout:    cfg.Terraform.PlanTimeout,
	}, logger)

	svc := usecase.NewInfraService(llmClient, validator.NewTerraformAnalyzer(), planRunner, logger)

	err = console.NewSession(svc, os.Stdin, os.Stdout, llmClient.Model()).Run(ctx)
	switch {
	case err == nil, errors.Is(err, console.ErrInterrupted):
		return err
	default:
		logger.Error("session failed", "err", err)
		return fmt.Errorf("%w: %w", errSessionFailed, err)
	}
}
