package review

import (
	"context"
	"log/slog"
	"math"

	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

// Progress checkpoints in percent.
const (
	ProgressClassified  = 10
	ProgressAnalyzed    = 80
	ProgressSummarizing = 85
	ProgressComplete    = 100
)

// analysisSpan is the share of the progress bar covered by segment analysis.
const analysisSpan = ProgressAnalyzed - ProgressClassified

// Progress maps completed segments to a percentage between
// ProgressClassified and ProgressAnalyzed.
func Progress(completed, total int) int {
	if total <= 0 {
		return ProgressClassified
	}

	completed = min(max(completed, 0), total)

	return ProgressClassified + int(math.Round(float64(completed)/float64(total)*analysisSpan))
}

// recordReporter writes each completed segment to the review record: its
// findings are appended as partial results and the counters advance.
type recordReporter struct {
	store  store.Store
	id     string
	logger *slog.Logger
}

func (r *recordReporter) Report(ctx context.Context, update pipeline.Update) error {
	if len(update.Findings) > 0 {
		err := r.store.AppendFindings(r.id, update.Findings)
		if err != nil {
			return err
		}
	}

	err := r.store.Update(r.id, func(rec *store.Record) error {
		rec.TotalSegments = update.Total
		rec.CompletedSegments = update.Completed
		rec.Progress = Progress(update.Completed, update.Total)

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "segment recorded",
		"ordinal", update.Ordinal, "completed", update.Completed, "total", update.Total)

	return nil
}
