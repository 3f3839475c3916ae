package repository

import (
	"context"
	"infrachat/internal/domain/entity"
)

// CodeAnalyzer inspects Terraform source without running terraform.
type CodeAnalyzer interface {
	Analyze(code string) []entity.Finding
}

// PlanRunner validates Terraform source with a dry-run. Failures are reported
// through the returned PlanResult, never as a Go error.
type PlanRunner interface {
	Run(ctx context.Context, code string) entity.PlanResult
}
