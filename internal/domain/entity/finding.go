package entity

import "fmt"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is an advisory remark about generated Terraform, produced before
// terraform itself runs.
type Finding struct {
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("[%s] line %d, col %d: %s", f.Severity, f.Line, f.Column, f.Summary)
	}
	return fmt.Sprintf("[%s] %s", f.Severity, f.Summary)
}
