// Package finding defines the structured results of a contract review: the
// per-clause findings extracted by the model, the playbook rules they are
// checked against, and the document-level classification and summary.
package finding

import "strings"

// RiskLevel grades how much a clause exposes the reviewing party.
type RiskLevel string

// Risk levels.
const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// RiskLevels lists risk levels from most to least severe.
var RiskLevels = []RiskLevel{RiskHigh, RiskMedium, RiskLow}

// ParseRiskLevel normalizes s, defaulting unknown values to RiskMedium.
func ParseRiskLevel(s string) RiskLevel {
	switch level := RiskLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case RiskHigh, RiskMedium, RiskLow:
		return level
	default:
		return RiskMedium
	}
}

// Severity grades a playbook rule and the violations raised against it.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ParseSeverity normalizes s, defaulting unknown values to SeverityWarning.
func ParseSeverity(s string) Severity {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return sev
	default:
		return SeverityWarning
	}
}

// Violation records a playbook rule broken by a clause.
type Violation struct {
	RuleName    string   `json:"ruleName"`
	Category    string   `json:"category,omitempty"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
}

// Finding is one clause identified in a segment.
//
// Number is local to the originating segment until the findings of a run
// are reconciled, after which it is the 1-based position in the final list.
type Finding struct {
	Number             int         `json:"clauseNumber"`
	Type               string      `json:"clauseType"`
	Text               string      `json:"originalText"`
	Risk               RiskLevel   `json:"riskLevel"`
	Explanation        string      `json:"explanation"`
	Violations         []Violation `json:"playbookViolations"`
	Redline            string      `json:"redlineSuggestion,omitempty"`
	RedlineExplanation string      `json:"redlineExplanation,omitempty"`

	// Reviewer triage. An empty Status means the finding is untriaged.
	Status      TriageStatus `json:"status,omitempty"`
	UserRedline string       `json:"userRedline,omitempty"`
	UserNote    string       `json:"userNote,omitempty"`
}

// HasRedline reports whether the finding carries a suggested revision.
func (f Finding) HasRedline() bool {
	return strings.TrimSpace(f.Redline) != ""
}

// CountByRisk tallies findings per risk level.
func CountByRisk(findings []Finding) map[RiskLevel]int {
	counts := make(map[RiskLevel]int, len(RiskLevels))

	for _, f := range findings {
		counts[f.Risk]++
	}

	return counts
}

// Classification describes the contract as a whole.
type Classification struct {
	ContractType  string   `json:"contractType"`
	PaperType     string   `json:"paperType"`
	Parties       []string `json:"parties"`
	EffectiveDate string   `json:"effectiveDate,omitempty"`
	Summary       string   `json:"summary"`
}

// Paper types: whose template the contract was drafted on.
const (
	PaperInternal = "internal"
	PaperExternal = "external"
)

// Summary is the document-level risk assessment built from all findings.
type Summary struct {
	OverallRisk      RiskLevel `json:"overallRisk"`
	ExecutiveSummary string    `json:"executiveSummary"`
	KeyFindings      []string  `json:"keyFindings"`
	MissingClauses   []string  `json:"missingClauses"`
}
