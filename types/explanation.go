package types

import "strings"

// Severity grades an issue.
type Severity string

// Severity levels accepted in model output.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps model text onto a known severity.
// Matching is case-insensitive; anything unrecognised grades as medium.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow
	case SeverityHigh:
		return SeverityHigh
	case SeverityCritical:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// IssueItem is a single finding in one issue category.
type IssueItem struct {
	Message     string   `json:"message" yaml:"message"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Issues groups findings by category.
type Issues struct {
	Performance     []IssueItem `json:"performance" yaml:"performance"`
	Security        []IssueItem `json:"security" yaml:"security"`
	Maintainability []IssueItem `json:"maintainability" yaml:"maintainability"`
}

// Count returns the number of findings per category name.
func (i Issues) Count() map[string]int {
	return map[string]int{
		"performance":     len(i.Performance),
		"security":        len(i.Security),
		"maintainability": len(i.Maintainability),
	}
}

// Total returns the number of findings across all categories.
func (i Issues) Total() int {
	return len(i.Performance) + len(i.Security) + len(i.Maintainability)
}

// Explanation is the structured explanation returned by the model.
// Annotations stay raw: the alignment engine is the only consumer allowed
// to interpret them.
type Explanation struct {
	Summary      string          `json:"summary" yaml:"summary"`
	Walkthrough  []string        `json:"walkthrough" yaml:"walkthrough"`
	RiskOverview string          `json:"risk_overview" yaml:"risk_overview"`
	Issues       Issues          `json:"issues" yaml:"issues"`
	Suggestions  []string        `json:"suggestions" yaml:"suggestions"`
	Annotations  []RawAnnotation `json:"annotations" yaml:"-"`
}
