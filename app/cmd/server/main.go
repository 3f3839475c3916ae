package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"infrachat/app/config"
	"infrachat/app/usecase"
	"infrachat/internal/infrastructure/llm"
	"infrachat/internal/infrastructure/transport"
	"infrachat/internal/infrastructure/validator"
)

func main() {
	// load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM client
	llmClient, err := llm.New(ctx, cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL, llm.Options{
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		FoldSystemPrompt: cfg.LLM.FoldSystemPrompt,
		Timeout:          cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("llm client init failed", "err", err)
		log.Fatalf("llm client: %v", err)
	}

	// Validators
	planRunner := validator.NewTerraformPlanRunner(validator.PlanRunnerConfig{
		Binary:         cfg.Terraform.Binary,
		WorkDir:        cfg.Terraform.WorkDir,
		PluginCacheDir: cfg.Terraform.PluginCacheDir,
		InitTimeout:    cfg.Terraform.InitTimeout,
		PlanTimeout:    cfg.Terraform.PlanTimeout,
	}, logger)

	// Usecase
	infraSvc := usecase.NewInfraService(llmClient, validator.NewTerraformAnalyzer(), planRunner, logger)

	// Transport (HTTP handlers)
	handler := transport.NewInfraHandler(infraSvc, cfg.Server.StaticDir, logger)

	// Router and server
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)(corsHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      recovered,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// OS signal handling for graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(sigCtx)

	// Start HTTP server
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", addr, "model", llmClient.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Shutdown sequence
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}
