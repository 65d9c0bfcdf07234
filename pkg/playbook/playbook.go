// Package playbook loads the rule profiles clauses are reviewed against.
//
// A playbook is a YAML document holding one or more profiles. A profile may
// be bound to a contract type; one profile is the default for everything
// else. When no file is configured the embedded standard profile is used.
package playbook

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

//go:embed default.yaml
var defaultPlaybook []byte

// Sentinel errors.
var (
	ErrNoProfiles     = errors.New("playbook has no profiles")
	ErrInvalidRule    = errors.New("invalid playbook rule")
	ErrUnknownProfile = errors.New("unknown playbook profile")
	ErrDuplicateRule  = errors.New("duplicate playbook rule")
)

// Profile is a named set of rules.
type Profile struct {
	Name         string          `json:"name"                   yaml:"name"`
	Description  string          `json:"description,omitempty"  yaml:"description,omitempty"`
	ContractType string          `json:"contractType,omitempty" yaml:"contract_type,omitempty"`
	Default      bool            `json:"default,omitempty"      yaml:"default,omitempty"`
	Rules        finding.RuleSet `json:"rules"                  yaml:"rules"`
}

// RuleSet returns the enabled rules of the profile.
func (p *Profile) RuleSet() finding.RuleSet {
	return p.Rules.Enabled()
}

// Playbook is an ordered list of profiles.
type Playbook struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// ruleDoc mirrors finding.Rule with an optional enabled flag; rules are
// enabled unless the file says otherwise.
type ruleDoc struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Condition   string `yaml:"condition"`
	Severity    string `yaml:"severity"`
	Enabled     *bool  `yaml:"enabled"`
}

type profileDoc struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description"`
	ContractType string    `yaml:"contract_type"`
	Default      bool      `yaml:"default"`
	Rules        []ruleDoc `yaml:"rules"`
}

type playbookDoc struct {
	Profiles []profileDoc `yaml:"profiles"`
}

// Default returns the embedded standard playbook.
func Default() *Playbook {
	pb, err := Parse(defaultPlaybook)
	if err != nil {
		panic(fmt.Sprintf("embedded playbook: %v", err))
	}

	return pb
}

// Load reads a playbook file. An empty path yields the default playbook.
func Load(path string) (*Playbook, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook: %w", err)
	}

	pb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return pb, nil
}

// Parse decodes and validates a YAML playbook.
func Parse(data []byte) (*Playbook, error) {
	var doc playbookDoc

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("parse playbook: %w", err)
	}

	if len(doc.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	pb := &Playbook{Profiles: make([]Profile, 0, len(doc.Profiles))}

	for pIdx, pd := range doc.Profiles {
		profile := Profile{
			Name:         strings.TrimSpace(pd.Name),
			Description:  strings.TrimSpace(pd.Description),
			ContractType: strings.TrimSpace(pd.ContractType),
			Default:      pd.Default,
			Rules:        make(finding.RuleSet, 0, len(pd.Rules)),
		}

		if profile.Name == "" {
			profile.Name = fmt.Sprintf("profile %d", pIdx+1)
		}

		for rIdx, rd := range pd.Rules {
			name := strings.TrimSpace(rd.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: %s rule %d has no name", ErrInvalidRule, profile.Name, rIdx+1)
			}

			if strings.TrimSpace(rd.Condition) == "" {
				return nil, fmt.Errorf("%w: %s has no condition", ErrInvalidRule, name)
			}

			profile.Rules = append(profile.Rules, finding.Rule{
				Name:        name,
				Category:    strings.TrimSpace(rd.Category),
				Description: strings.TrimSpace(rd.Description),
				Condition:   strings.TrimSpace(rd.Condition),
				Severity:    finding.ParseSeverity(rd.Severity),
				Enabled:     rd.Enabled == nil || *rd.Enabled,
			})
		}

		pb.Profiles = append(pb.Profiles, profile)
	}

	return pb, nil
}

// Select returns the profile bound to contractType, falling back to the
// default profile and then to the first one. Matching ignores case.
func (pb *Playbook) Select(contractType string) *Profile {
	contractType = strings.TrimSpace(contractType)

	if contractType != "" {
		for idx := range pb.Profiles {
			if strings.EqualFold(pb.Profiles[idx].ContractType, contractType) {
				return &pb.Profiles[idx]
			}
		}
	}

	for idx := range pb.Profiles {
		if pb.Profiles[idx].Default {
			return &pb.Profiles[idx]
		}
	}

	return &pb.Profiles[0]
}

// AddRule appends rule to the named profile, or to the selected default
// profile when profile is empty. Names are matched ignoring case.
func (pb *Playbook) AddRule(profile string, rule finding.Rule) error {
	target, err := pb.profile(profile)
	if err != nil {
		return err
	}

	rule.Name = strings.TrimSpace(rule.Name)
	rule.Category = strings.TrimSpace(rule.Category)
	rule.Description = strings.TrimSpace(rule.Description)
	rule.Condition = strings.TrimSpace(rule.Condition)
	rule.Severity = finding.ParseSeverity(string(rule.Severity))

	switch {
	case rule.Name == "":
		return fmt.Errorf("%w: rule has no name", ErrInvalidRule)
	case rule.Condition == "":
		return fmt.Errorf("%w: %s has no condition", ErrInvalidRule, rule.Name)
	}

	for _, existing := range target.Rules {
		if strings.EqualFold(existing.Name, rule.Name) {
			return fmt.Errorf("%w: %s already has %s", ErrDuplicateRule, target.Name, existing.Name)
		}
	}

	target.Rules = append(target.Rules, rule)

	return nil
}

func (pb *Playbook) profile(name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return pb.Select(""), nil
	}

	for idx := range pb.Profiles {
		if strings.EqualFold(pb.Profiles[idx].Name, name) {
			return &pb.Profiles[idx], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
}

// Encode writes the playbook as YAML.
func (pb *Playbook) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(pb)
	if err != nil {
		return fmt.Errorf("encode playbook: %w", err)
	}

	return enc.Close()
}
