// Package store persists review records: their status and progress while a
// review runs, and the classification, findings and summary it produced.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

// Sentinel errors.
var (
	// ErrNotFound is returned for an unknown review ID.
	ErrNotFound = errors.New("review not found")
	// ErrExists is returned when creating a review with a taken ID.
	ErrExists = errors.New("review already exists")
	// ErrInvalidRecord is returned for records without an ID.
	ErrInvalidRecord = errors.New("invalid review record")
	// ErrClosed is returned by Ping after Close.
	ErrClosed = errors.New("store closed")
	// ErrFindingNotFound is returned for a finding number absent from a record.
	ErrFindingNotFound = errors.New("finding not found")
)

// Status is the lifecycle state of a review.
type Status string

// Statuses.
const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Stage is the step a running review is in.
type Stage string

// Stages, in execution order.
const (
	StageQueued      Stage = "queued"
	StageClassifying Stage = "classifying"
	StageAnalyzing   Stage = "analyzing"
	StageSummarizing Stage = "summarizing"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// Record is one contract review.
type Record struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Text              string                  `json:"text,omitempty"`
	Status            Status                  `json:"status"`
	Stage             Stage                   `json:"stage"`
	Progress          int                     `json:"progress"`
	TotalSegments     int                     `json:"totalSegments"`
	CompletedSegments int                     `json:"completedSegments"`
	Classification    *finding.Classification `json:"classification,omitempty"`
	Findings          []finding.Finding       `json:"findings,omitempty"`
	Summary           *finding.Summary        `json:"summary,omitempty"`
	Error             string                  `json:"error,omitempty"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// Done reports whether the review reached a final status.
func (r *Record) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

// Brief returns a copy without the document text and findings.
func (r *Record) Brief() Record {
	brief := *r
	brief.Text = ""
	brief.Findings = nil

	return brief
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := *r

	out.Findings = cloneFindings(r.Findings)

	if r.Classification != nil {
		cls := *r.Classification
		cls.Parties = slices.Clone(cls.Parties)
		out.Classification = &cls
	}

	if r.Summary != nil {
		sum := *r.Summary
		sum.KeyFindings = slices.Clone(sum.KeyFindings)
		sum.MissingClauses = slices.Clone(sum.MissingClauses)
		out.Summary = &sum
	}

	return &out
}

// Store persists review records. Implementations are safe for concurrent use.
type Store interface {
	// Create stores a new record. CreatedAt and UpdatedAt are set when zero.
	Create(rec *Record) error
	// Get returns a copy of the record.
	Get(id string) (*Record, error)
	// Update applies fn to the record atomically. The record is not
	// changed when fn returns an error.
	Update(id string, fn func(*Record) error) error
	// AppendFindings adds findings to the record's list.
	AppendFindings(id string, findings []finding.Finding) error
	// UpdateFinding applies fn to the finding numbered number and returns
	// the updated copy.
	UpdateFinding(id string, number int, fn func(*finding.Finding) error) (finding.Finding, error)
	// List returns briefs of all records, newest first.
	List() ([]Record, error)
	// Ping reports whether the store is usable.
	Ping() error
	Close() error
}

func cloneFindings(findings []finding.Finding) []finding.Finding {
	if findings == nil {
		return nil
	}

	out := make([]finding.Finding, len(findings))
	for idx, f := range findings {
		f.Violations = slices.Clone(f.Violations)
		out[idx] = f
	}

	return out
}

func sortNewestFirst(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})
}

func stamp(rec *Record, now time.Time) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	rec.UpdatedAt = now
}

type updater interface {
	Update(id string, fn func(*Record) error) error
}

func updateFinding(s updater, id string, number int, fn func(*finding.Finding) error) (finding.Finding, error) {
	var updated finding.Finding

	err := s.Update(id, func(rec *Record) error {
		idx := slices.IndexFunc(rec.Findings, func(f finding.Finding) bool { return f.Number == number })
		if idx < 0 {
			return fmt.Errorf("%w: %d in review %s", ErrFindingNotFound, number, id)
		}

		err := fn(&rec.Findings[idx])
		if err != nil {
			return err
		}

		updated = cloneFindings(rec.Findings[idx : idx+1])[0]

		return nil
	})
	if err != nil {
		return finding.Finding{}, err
	}

	return updated, nil
}
