package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Rule is a playbook rule the model checks each clause against.
type Rule struct {
	Name        string   `json:"name"        yaml:"name"`
	Category    string   `json:"category"    yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Condition   string   `json:"condition"   yaml:"condition"`
	Severity    Severity `json:"severity"    yaml:"severity"`
	Enabled     bool     `json:"enabled"     yaml:"enabled"`
}

// RuleSet is an ordered list of rules. The pipeline passes it through to the
// inference adapter without interpreting it.
type RuleSet []Rule

// Enabled returns the enabled rules, preserving order.
func (rs RuleSet) Enabled() RuleSet {
	enabled := make(RuleSet, 0, len(rs))

	for _, rule := range rs {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}

	return enabled
}

// Fingerprint returns a stable hex digest of the rule set, used as part of
// result cache keys.
func (rs RuleSet) Fingerprint() string {
	data, err := json.Marshal(rs)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
