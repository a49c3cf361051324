package models

// ValidationSeverity grades how serious a failed invariant check is.
type ValidationSeverity string

const (
	SeverityInfo    ValidationSeverity = "info"
	SeverityWarning ValidationSeverity = "warning"
	SeverityError   ValidationSeverity = "error"
)

// ValidationResult is the outcome of one invariant check over a computation
// run. Results are advisory annotations, never fatal.
type ValidationResult struct {
	InvariantName string             `json:"invariant_name"`
	Passed        bool               `json:"passed"`
	Severity      ValidationSeverity `json:"severity"`
	Message       string             `json:"message"`
	Details       map[string]any     `json:"details,omitempty"`
}
