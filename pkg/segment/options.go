package segment

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Default sizing, in bytes of UTF-8 text.
const (
	// DefaultSmallDocumentThreshold is the largest document returned as a single segment.
	DefaultSmallDocumentThreshold = 15000
	// DefaultTargetSize is the size at which an open segment is closed.
	DefaultTargetSize = 12000
	// DefaultMinSize is the smallest internal segment ever emitted.
	DefaultMinSize = 1000
	// DefaultMaxSize is the hard upper bound of any segment.
	DefaultMaxSize = 20000
	// DefaultOverlap is the tail of each segment repeated at the start of the next.
	DefaultOverlap = 200
)

// ErrInvalidOptions indicates segment sizing options that cannot produce valid segments.
var ErrInvalidOptions = errors.New("invalid segment options")

// Options controls segment sizing.
type Options struct {
	SmallDocumentThreshold int `json:"small_document_threshold" mapstructure:"small_document_threshold"`
	TargetSize             int `json:"target_size"              mapstructure:"target_size"`
	MinSize                int `json:"min_size"                 mapstructure:"min_size"`
	MaxSize                int `json:"max_size"                 mapstructure:"max_size"`
	Overlap                int `json:"overlap"                  mapstructure:"overlap"`
}

// DefaultOptions returns the production sizing.
func DefaultOptions() Options {
	return Options{
		SmallDocumentThreshold: DefaultSmallDocumentThreshold,
		TargetSize:             DefaultTargetSize,
		MinSize:                DefaultMinSize,
		MaxSize:                DefaultMaxSize,
		Overlap:                DefaultOverlap,
	}
}

// Validate checks that Overlap < MinSize <= TargetSize <= MaxSize and that
// MaxSize leaves room above MinSize for a forced split on a rune boundary.
func (o Options) Validate() error {
	switch {
	case o.SmallDocumentThreshold < 0:
		return fmt.Errorf("%w: small document threshold %d is negative", ErrInvalidOptions, o.SmallDocumentThreshold)
	case o.Overlap < 0:
		return fmt.Errorf("%w: overlap %d is negative", ErrInvalidOptions, o.Overlap)
	case o.MinSize <= o.Overlap:
		return fmt.Errorf("%w: min size %d must exceed overlap %d", ErrInvalidOptions, o.MinSize, o.Overlap)
	case o.TargetSize < o.MinSize:
		return fmt.Errorf("%w: target size %d is below min size %d", ErrInvalidOptions, o.TargetSize, o.MinSize)
	case o.MaxSize < o.TargetSize:
		return fmt.Errorf("%w: max size %d is below target size %d", ErrInvalidOptions, o.MaxSize, o.TargetSize)
	case o.MaxSize-o.MinSize < utf8.UTFMax:
		return fmt.Errorf("%w: max size %d must exceed min size %d by at least %d bytes",
			ErrInvalidOptions, o.MaxSize, o.MinSize, utf8.UTFMax)
	}

	return nil
}
