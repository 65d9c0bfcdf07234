package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrEmptyDocument is returned for documents with no text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid pipeline config")
	// ErrIncompleteRun is returned if a run ends with unfilled result slots.
	ErrIncompleteRun = errors.New("run ended with unfilled result slots")
)

// SegmentError reports a segment that failed on every attempt.
type SegmentError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d failed after %d attempts: %v", e.Index, e.Attempts, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
