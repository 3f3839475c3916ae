// Package console is the interactive one-shot front-end: read a single
// request from the terminal, print the generated code and the plan outcome.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"infrachat/app/usecase"
	"infrachat/internal/domain/entity"
)

// ErrInterrupted is returned by Run when the context is canceled (SIGINT).
var ErrInterrupted = errors.New("interrupted")

type Session struct {
	service usecase.InfraUsecase
	in      io.Reader
	out     io.Writer
	model   string
}

func NewSession(service usecase.InfraUsecase, in io.Reader, out io.Writer, model string) *Session {
	return &Session{service: service, in: in, out: out, model: model}
}

// Run handles exactly one request. It returns nil when the session ended
// normally (including empty input and rejected code), ErrInterrupted on
// cancellation and the underlying error otherwise.
func (s *Session) Run(ctx context.Context) error {
	s.printf("🚀 AI Infrastructure Chatbot (%s + Terraform)\n", s.model)
	s.printf("💡 Describe your AWS infra in plain English (e.g., 'Create an S3 bucket')\n\n")
	s.printf("💬 Your request: ")

	line, err := s.readLine(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.interrupted()
		}
		return s.critical(fmt.Errorf("read input: %w", err))
	}

	query := strings.TrimSpace(line)
	if query == "" {
		s.printf("⚠️ No input provided. Exiting.\n")
		return nil
	}

	_, err = s.service.GenerateWithProgress(ctx, query, s.progress)
	if ctx.Err() != nil {
		return s.interrupted()
	}

	var invalid *usecase.InvalidCodeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &invalid):
		s.printf("❌ Failed to generate valid Terraform code.\n")
		s.printf("Raw LLM output: %q\n", invalid.Raw)
		return nil
	default:
		return s.critical(err)
	}
}

func (s *Session) progress(stage entity.Stage, detail string) {
	switch stage {
	case entity.StageGenerating:
		s.printf("\n🧠 Generating Terraform code...\n\n")
	case entity.StageGenerated:
		s.printf("📄 Generated Terraform:\n\n%s\n", detail)
	case entity.StageAnalyzed:
		if detail != "" {
			s.printf("\n🔎 Static analysis:\n%s\n", detail)
		}
	case entity.StagePlanning:
		s.printf("\n🔍 Running `terraform plan` (dry-run only)...\n\n")
	case entity.StagePlanned:
		s.printf("%s\n", detail)
	}
}

// readLine reads one line without blocking cancellation. On interrupt the
// reader goroutine is abandoned; the process is about to exit anyway.
func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(s.in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func (s *Session) interrupted() error {
	s.printf("\n👋 Exiting...\n")
	return ErrInterrupted
}

func (s *Session) critical(err error) error {
	s.printf("💥 CRITICAL ERROR: %v\n", err)
	return err
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
