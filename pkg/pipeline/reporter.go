package pipeline

import (
	"context"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

// Update is sent to a Reporter after each segment completes.
type Update struct {
	Ordinal   int
	Findings  []finding.Finding
	Completed int
	Total     int
}

// Reporter receives progress. Calls are serialized and Completed strictly
// increases across calls of one run. Errors are logged and do not fail the run.
type Reporter interface {
	Report(ctx context.Context, update Update) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, update Update) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, update Update) error {
	return f(ctx, update)
}
