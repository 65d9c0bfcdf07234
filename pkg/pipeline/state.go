package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

// ErrSlotFilled is returned when a segment result is written twice.
var ErrSlotFilled = errors.New("result slot already filled")

// ErrOrdinalRange is returned for an ordinal outside the run.
var ErrOrdinalRange = errors.New("ordinal out of range")

// RunState is the shared state of one pipeline run: the claim cursor, the
// completed count, one write-once result slot per segment and the first
// fatal failure. All methods are safe for concurrent use.
type RunState struct {
	mu        sync.Mutex
	total     int
	next      int
	completed int
	slots     [][]finding.Finding
	filled    []bool
	failure   error
}

// NewRunState creates the state of a run over total segments.
func NewRunState(total int) *RunState {
	return &RunState{
		total:  total,
		slots:  make([][]finding.Finding, total),
		filled: make([]bool, total),
	}
}

// Claim reserves the next unclaimed ordinal. It reports false once every
// ordinal was claimed or a failure was recorded.
func (s *RunState) Claim() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil || s.next >= s.total {
		return 0, false
	}

	ordinal := s.next
	s.next++

	return ordinal, true
}

// Fill stores the findings of ordinal and returns the new completed count.
func (s *RunState) Fill(ordinal int, findings []finding.Finding) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ordinal < 0 || ordinal >= s.total {
		return s.completed, fmt.Errorf("%w: %d of %d", ErrOrdinalRange, ordinal, s.total)
	}

	if s.filled[ordinal] {
		return s.completed, fmt.Errorf("%w: %d", ErrSlotFilled, ordinal)
	}

	if findings == nil {
		findings = []finding.Finding{}
	}

	s.slots[ordinal] = findings
	s.filled[ordinal] = true
	s.completed++

	return s.completed, nil
}

// Fail records err unless a failure is already recorded.
func (s *RunState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure == nil {
		s.failure = err
	}
}

// Err returns the first recorded failure.
func (s *RunState) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failure
}

// Total returns the number of segments in the run.
func (s *RunState) Total() int {
	return s.total
}

// Completed returns the number of filled slots.
func (s *RunState) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.completed
}

// Slots returns the per-ordinal results. Unfilled slots are nil.
func (s *RunState) Slots() [][]finding.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]finding.Finding, len(s.slots))
	copy(out, s.slots)

	return out
}
