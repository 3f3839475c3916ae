package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"infrachat/internal/domain/entity"
	"infrachat/internal/domain/repository"
	"infrachat/internal/infrastructure/llm"
	"infrachat/internal/infrastructure/metrics"
)

// DefaultMinCodeLength is the shortest extracted code accepted as a real answer.
const DefaultMinCodeLength = 20

const rawPreviewLen = 200

var (
	ErrEmptyQuery  = errors.New("query is empty")
	ErrInvalidCode = errors.New("failed to generate valid Terraform")
)

// InvalidCodeError is returned when the extracted code is too short to be a
// real answer. Raw holds the start of the model reply.
type InvalidCodeError struct {
	Raw string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%v: raw output %q", ErrInvalidCode, e.Raw)
}

func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }

type InfraUsecase interface {
	Generate(ctx context.Context, query string) (*entity.InfraResponse, error)
	GenerateWithProgress(ctx context.Context, query string, progress entity.ProgressFunc) (*entity.InfraResponse, error)
}

type InfraService struct {
	llm      repository.CompletionClient
	analyzer repository.CodeAnalyzer
	runner   repository.PlanRunner
	logger   *slog.Logger

	minCodeLength int
}

var _ InfraUsecase = (*InfraService)(nil)

// NewInfraService wires the pipeline. analyzer may be nil.
func NewInfraService(
	llmClient repository.CompletionClient,
	analyzer repository.CodeAnalyzer,
	runner repository.PlanRunner,
	logger *slog.Logger,
) *InfraService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InfraService{
		llm:           llmClient,
		analyzer:      analyzer,
		runner:        runner,
		logger:        logger,
		minCodeLength: DefaultMinCodeLength,
	}
}

func (s *InfraService) Generate(ctx context.Context, query string) (*entity.InfraResponse, error) {
	return s.GenerateWithProgress(ctx, query, nil)
}

// GenerateWithProgress runs one request cycle:
// 1) Build prompt and call the model
// 2) Extract code and reject obvious garbage
// 3) Static analysis (advisory)
// 4) terraform init + plan
func (s *InfraService) GenerateWithProgress(ctx context.Context, query string, progress entity.ProgressFunc) (*entity.InfraResponse, error) {
	startTime := time.Now()
	if progress == nil {
		progress = func(entity.Stage, string) {}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		metrics.IncRequest("empty_query")
		return nil, ErrEmptyQuery
	}

	requestID := uuid.NewString()
	prompt := entity.TerraformPrompt
	logger := s.logger.With("request_id", requestID, "prompt_id", prompt.ID)
	logger.Info("start generation", "model", s.llm.Model(), "query_len", len(query))

	// 1) Generate via LLM
	progress(entity.StageGenerating, "")
	raw, err := s.llm.Generate(ctx, entity.BuildMessages(query))
	if err != nil {
		metrics.IncRequest("llm_error")
		logger.Error("llm generation failed", "err", err)
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	// 2) Extract
	code := llm.ExtractTerraformCode(raw)
	if utf8.RuneCountInString(code) < s.minCodeLength {
		metrics.IncRequest("invalid_code")
		logger.Warn("generated code rejected", "code_len", len(code))
		return nil, &InvalidCodeError{Raw: preview(raw, rawPreviewLen)}
	}
	progress(entity.StageGenerated, code)

	// 3) Static analysis
	var findings []entity.Finding
	if s.analyzer != nil {
		findings = s.analyzer.Analyze(code)
		if len(findings) > 0 {
			logger.Info("static analysis findings", "count", len(findings))
		}
		progress(entity.StageAnalyzed, formatFindings(findings))
	}

	// 4) Plan
	progress(entity.StagePlanning, "")
	planRes := s.runner.Run(ctx, code)
	progress(entity.StagePlanned, planRes.Message)

	metrics.IncRequest("ok")
	metrics.ObserveRequestDuration(time.Since(startTime))
	logger.Info("generation finished", "status", planRes.Status, "duration", time.Since(startTime))

	return &entity.InfraResponse{
		RequestID:      requestID,
		TerraformCode:  code,
		PlanOutput:     planRes.Message,
		PlanStatus:     planRes.Status,
		StaticFindings: findings,
	}, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func formatFindings(findings []entity.Finding) string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}
