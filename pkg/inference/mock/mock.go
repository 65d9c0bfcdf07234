// Package mock is an offline inference.Client that answers prompts with
// keyword heuristics. Output is deterministic for a given prompt, which makes
// it suitable for tests, demos and dry runs without an API key.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
)

// Model is reported as the completion model.
const Model = "mock-heuristic"

const (
	textMarker   = "CONTRACT TEXT"
	maxExcerpt   = 600
	minClauseLen = 40
)

var (
	ruleLine    = regexp.MustCompile(`(?m)^- \[([A-Z]+)\] (.+?) \((.*?)\): (.*)$`)
	clauseLine  = regexp.MustCompile(`(?m)^- Clause \d+ \(.*?\): (high|medium|low) risk`)
	partiesExpr = regexp.MustCompile(`(?i)between\s+(.+?)\s+and\s+(.+?)[,(.\n]`)
	clauseSplit = regexp.MustCompile(`\n\s*\n+`)
)

// Client is the heuristic provider. The zero value is ready to use.
type Client struct {
	// Latency delays every completion, honoring context cancellation.
	Latency time.Duration
}

// New returns a Client with the given simulated latency.
func New(latency time.Duration) *Client {
	return &Client{Latency: latency}
}

// Complete answers classification, analysis and summary prompts.
func (c *Client) Complete(ctx context.Context, prompt inference.Prompt) (inference.Completion, error) {
	if c.Latency > 0 {
		timer := time.NewTimer(c.Latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return inference.Completion{}, fmt.Errorf("mock completion: %w", ctx.Err())
		case <-timer.C:
		}
	}

	var payload any

	switch prompt.Kind {
	case inference.KindClassify:
		payload = classify(contractText(prompt.User))
	case inference.KindAnalyze:
		payload = analyze(contractText(prompt.User), parseRules(prompt.User))
	case inference.KindSummarize:
		payload = summarize(prompt.User)
	default:
		return inference.Completion{}, fmt.Errorf("mock completion: unsupported prompt kind %q", prompt.Kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return inference.Completion{}, fmt.Errorf("mock completion: %w", err)
	}

	return inference.Completion{Text: string(data), Model: Model}, nil
}

// contractText returns the document part of a rendered prompt.
func contractText(user string) string {
	idx := strings.Index(user, textMarker)
	if idx < 0 {
		return user
	}

	rest := user[idx:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		return rest[nl+1:]
	}

	return ""
}

func parseRules(user string) finding.RuleSet {
	matches := ruleLine.FindAllStringSubmatch(user, -1)
	rules := make(finding.RuleSet, 0, len(matches))

	for _, m := range matches {
		rules = append(rules, finding.Rule{
			Severity:  finding.ParseSeverity(m[1]),
			Name:      m[2],
			Category:  m[3],
			Condition: m[4],
			Enabled:   true,
		})
	}

	return rules
}

func classify(text string) finding.Classification {
	lower := strings.ToLower(text)

	cls := finding.Classification{
		ContractType: "Other",
		PaperType:    finding.PaperExternal,
		Parties:      []string{},
	}

	for _, kw := range contractKeywords {
		if strings.Contains(lower, kw.keyword) {
			cls.ContractType = kw.contractType

			break
		}
	}

	if m := partiesExpr.FindStringSubmatch(text); m != nil {
		cls.Parties = []string{strings.TrimSpace(m[1]), strings.TrimSpace(m[2])}
	}

	cls.Summary = fmt.Sprintf("%s between %d identified parties.", cls.ContractType, len(cls.Parties))

	return cls
}

func analyze(text string, rules finding.RuleSet) []finding.Finding {
	findings := []finding.Finding{}

	for _, block := range clauseSplit.Split(text, -1) {
		block = strings.TrimSpace(block)
		if len(block) < minClauseLen {
			continue
		}

		clauseType := clauseTypeOf(block)
		if clauseType == "" {
			continue
		}

		risk := riskOf(block)

		f := finding.Finding{
			Number:      len(findings) + 1,
			Type:        clauseType,
			Text:        excerpt(block),
			Risk:        risk,
			Explanation: fmt.Sprintf("%s clause assessed as %s risk by keyword heuristics.", clauseType, risk),
			Violations:  violations(clauseType, risk, rules),
		}

		if risk == finding.RiskHigh {
			f.Redline = softened(f.Text)
			f.RedlineExplanation = "Replace one-sided terms with mutual, capped obligations."
		}

		findings = append(findings, f)
	}

	return findings
}

func summarize(user string) finding.Summary {
	counts := map[finding.RiskLevel]int{}
	for _, m := range clauseLine.FindAllStringSubmatch(user, -1) {
		counts[finding.RiskLevel(m[1])]++
	}

	overall := finding.RiskLow

	switch {
	case counts[finding.RiskHigh] > 0:
		overall = finding.RiskHigh
	case counts[finding.RiskMedium] > 0:
		overall = finding.RiskMedium
	}

	return finding.Summary{
		OverallRisk: overall,
		ExecutiveSummary: fmt.Sprintf("The review identified %d high, %d medium and %d low risk clauses.",
			counts[finding.RiskHigh], counts[finding.RiskMedium], counts[finding.RiskLow]),
		KeyFindings:    []string{fmt.Sprintf("%d high-risk clauses need negotiation", counts[finding.RiskHigh])},
		MissingClauses: []string{},
	}
}

func clauseTypeOf(block string) string {
	lower := strings.ToLower(block)

	for _, kw := range clauseKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.clauseType
		}
	}

	return ""
}

func riskOf(block string) finding.RiskLevel {
	lower := strings.ToLower(block)

	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			return finding.RiskHigh
		}
	}

	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lower, kw) {
			return finding.RiskMedium
		}
	}

	return finding.RiskLow
}

func violations(clauseType string, risk finding.RiskLevel, rules finding.RuleSet) []finding.Violation {
	out := []finding.Violation{}
	if risk == finding.RiskLow {
		return out
	}

	category := strings.ToLower(clauseType)

	for _, rule := range rules {
		ruleCategory := strings.ToLower(rule.Category)
		if ruleCategory == "" || !(strings.Contains(category, ruleCategory) || strings.Contains(ruleCategory, category)) {
			continue
		}

		out = append(out, finding.Violation{
			RuleName:    rule.Name,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Description: "Clause does not satisfy: " + rule.Condition,
		})
	}

	return out
}

func excerpt(block string) string {
	if len(block) <= maxExcerpt {
		return block
	}

	cut := maxExcerpt
	for cut > 0 && !utf8.RuneStart(block[cut]) {
		cut--
	}

	return block[:cut]
}

func softened(text string) string {
	replacer := strings.NewReplacer(
		"unlimited", "capped",
		"Unlimited", "Capped",
		"sole discretion", "reasonable discretion",
		"perpetual", "fixed-term",
		"automatically renew", "renew upon mutual written agreement",
		"without notice", "upon thirty (30) days written notice",
	)

	return replacer.Replace(text)
}
