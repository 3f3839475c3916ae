package entity

type InfraRequest struct {
	Query string `json:"query"`
}

type InfraResponse struct {
	RequestID      string     `json:"request_id"`
	TerraformCode  string     `json:"terraform_code"`
	PlanOutput     string     `json:"plan_output"`
	PlanStatus     PlanStatus `json:"plan_status"`
	StaticFindings []Finding  `json:"static_findings,omitempty"`
}

type PlanStatus string

const (
	PlanStatusSucceeded       PlanStatus = "succeeded"
	PlanStatusInitFailed      PlanStatus = "init_failed"
	PlanStatusPlanFailed      PlanStatus = "plan_failed"
	PlanStatusTimedOut        PlanStatus = "timed_out"
	PlanStatusUnexpectedError PlanStatus = "unexpected_error"
)

// PlanResult is the outcome of one init+plan attempt. Message is meant for
// humans and carries the captured terraform stream verbatim.
type PlanResult struct {
	Status  PlanStatus `json:"status"`
	Message string     `json:"message"`
}

func PlanSucceeded(stdout string) PlanResult {
	return PlanResult{Status: PlanStatusSucceeded, Message: "✅ Plan succeeded:\n" + stdout}
}

func PlanInitFailed(stderr string) PlanResult {
	return PlanResult{Status: PlanStatusInitFailed, Message: "❌ Terraform init failed:\n" + stderr}
}

// PlanFailed keeps terraform's exit code semantics: a non-zero plan also
// happens for missing credentials or unreachable providers.
func PlanFailed(stderr string) PlanResult {
	return PlanResult{Status: PlanStatusPlanFailed, Message: "⚠️ Plan failed (code may still be valid):\n" + stderr}
}

func PlanTimedOut() PlanResult {
	return PlanResult{Status: PlanStatusTimedOut, Message: "⏰ Terraform command timed out (safety cutoff)."}
}

func PlanUnexpectedError(err error) PlanResult {
	return PlanResult{Status: PlanStatusUnexpectedError, Message: "💥 Unexpected error: " + err.Error()}
}

type Stage string

const (
	StageGenerating Stage = "generating"
	StageGenerated  Stage = "generated"
	StageAnalyzed   Stage = "analyzed"
	StagePlanning   Stage = "planning"
	StagePlanned    Stage = "planned"
)

// ProgressFunc is called between pipeline steps. detail depends on the stage:
// the extracted code for StageGenerated, the plan message for StagePlanned.
type ProgressFunc func(stage Stage, detail string)
