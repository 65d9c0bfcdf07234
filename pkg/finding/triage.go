package finding

import (
	"errors"
	"fmt"
	"strings"
)

// TriageStatus is a reviewer's decision on a finding.
type TriageStatus string

// Triage statuses.
const (
	TriagePending  TriageStatus = "pending"
	TriageAccepted TriageStatus = "accepted"
	TriageRejected TriageStatus = "rejected"
	TriageModified TriageStatus = "modified"
)

var (
	// ErrEmptyTriage is returned for a triage that changes nothing.
	ErrEmptyTriage = errors.New("no triage fields to update")
	// ErrInvalidTriageStatus is returned for an unknown triage status.
	ErrInvalidTriageStatus = errors.New("invalid triage status")
)

// ParseTriageStatus accepts a status in either verb or past form
// ("accept" or "accepted"), case-insensitively.
func ParseTriageStatus(s string) (TriageStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TriagePending, nil
	case "accept", "accepted":
		return TriageAccepted, nil
	case "reject", "rejected":
		return TriageRejected, nil
	case "modify", "modified":
		return TriageModified, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTriageStatus, s)
	}
}

// Triage is a partial update of a finding's reviewer fields. Nil fields are
// left unchanged.
type Triage struct {
	Status      *string `json:"status,omitempty"`
	UserRedline *string `json:"userRedline,omitempty"`
	UserNote    *string `json:"userNote,omitempty"`
}

// Validate reports ErrEmptyTriage when no field is set and
// ErrInvalidTriageStatus for an unknown status.
func (t Triage) Validate() error {
	if t.Status == nil && t.UserRedline == nil && t.UserNote == nil {
		return ErrEmptyTriage
	}

	if t.Status != nil {
		_, err := ParseTriageStatus(*t.Status)
		if err != nil {
			return err
		}
	}

	return nil
}

// Apply writes the set fields to f, trimming surrounding whitespace.
func (t Triage) Apply(f *Finding) error {
	err := t.Validate()
	if err != nil {
		return err
	}

	if t.Status != nil {
		f.Status, _ = ParseTriageStatus(*t.Status)
	}

	if t.UserRedline != nil {
		f.UserRedline = strings.TrimSpace(*t.UserRedline)
	}

	if t.UserNote != nil {
		f.UserNote = strings.TrimSpace(*t.UserNote)
	}

	return nil
}
