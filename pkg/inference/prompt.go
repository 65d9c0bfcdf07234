package inference

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
}).ParseFS(promptFS, "prompts/*.tmpl"))

// ContractTypes are the classifications the model may choose from.
var ContractTypes = []string{
	"NDA",
	"MSA",
	"SaaS Agreement",
	"Employment Agreement",
	"Consulting Agreement",
	"License Agreement",
	"Services Agreement",
	"Other",
}

// ClauseTypes are the clause categories the model may assign.
var ClauseTypes = []string{
	"Indemnification",
	"Limitation of Liability",
	"Termination",
	"Confidentiality",
	"IP Ownership",
	"Data Privacy",
	"Non-Compete",
	"Payment Terms",
	"Representations & Warranties",
	"Governing Law",
	"Assignment",
	"Force Majeure",
	"Insurance",
	"Auto-Renewal",
	"SLA",
	"Other",
}

// SystemPrompt returns the system instructions shared by every prompt.
func SystemPrompt() string {
	return render("system.tmpl", nil)
}

// ClassifyPrompt renders the classification request for text, which the
// caller has already cut to the context budget.
func ClassifyPrompt(text string) string {
	return render("classify.tmpl", struct {
		ContractTypes string
		Text          string
	}{
		ContractTypes: alternatives(ContractTypes),
		Text:          text,
	})
}

// AnalyzePrompt renders the clause extraction request for one segment.
// Only enabled rules are listed.
func AnalyzePrompt(req SegmentRequest) string {
	contractType := req.ContractType
	if contractType == "" {
		contractType = "commercial"
	}

	return render("analyze.tmpl", struct {
		ContractType string
		ClauseTypes  string
		Partial      bool
		Part         int
		Total        int
		Rules        finding.RuleSet
		Text         string
	}{
		ContractType: contractType,
		ClauseTypes:  alternatives(ClauseTypes),
		Partial:      req.Total > 1,
		Part:         req.Ordinal + 1,
		Total:        req.Total,
		Rules:        req.Rules.Enabled(),
		Text:         req.Text,
	})
}

// SummaryPrompt renders the executive summary request. head is the
// leading part of the document.
func SummaryPrompt(req SummaryRequest, head string) string {
	var violations, critical int

	for _, f := range req.Findings {
		violations += len(f.Violations)

		for _, v := range f.Violations {
			if v.Severity == finding.SeverityCritical {
				critical++
			}
		}
	}

	return render("summarize.tmpl", struct {
		ContractType string
		HighRisk     int
		Violations   int
		Critical     int
		Findings     []finding.Finding
		Text         string
	}{
		ContractType: req.ContractType,
		HighRisk:     finding.CountByRisk(req.Findings)[finding.RiskHigh],
		Violations:   violations,
		Critical:     critical,
		Findings:     req.Findings,
		Text:         head,
	})
}

func render(name string, data any) string {
	var sb strings.Builder

	err := prompts.ExecuteTemplate(&sb, name, data)
	if err != nil {
		panic(fmt.Sprintf("render prompt %s: %v", name, err))
	}

	return sb.String()
}

func alternatives(values []string) string {
	quoted := make([]string, len(values))
	for idx, v := range values {
		quoted[idx] = fmt.Sprintf("%q", v)
	}

	return strings.Join(quoted, " | ")
}

// headRunes returns at most n leading runes of s.
func headRunes(s string, n int) string {
	if n <= 0 {
		return s
	}

	count := 0

	for idx := range s {
		if count == n {
			return s[:idx]
		}

		count++
	}

	return s
}
