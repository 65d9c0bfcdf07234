package pipeline

import (
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// Default scheduling tunables.
const (
	DefaultConcurrency = 4
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 2 * time.Second
)

// Config holds the tunables of a Pipeline.
type Config struct {
	Segment     segment.Options
	Concurrency int
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		Segment:     segment.DefaultOptions(),
		Concurrency: DefaultConcurrency,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
	}
}

// Validate checks the tunables.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative, got %s", ErrInvalidConfig, c.RetryDelay)
	}

	err := c.Segment.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
