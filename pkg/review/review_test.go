package review_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference/mock"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/playbook"
	"github.com/Sumatoshi-tech/clausefang/pkg/review"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

var errModel = errors.New("model unavailable")

var clauseBodies = []string{
	"Indemnification. The Supplier shall indemnify the Customer for unlimited losses arising from any breach.",
	"Termination. Either party may terminate this agreement upon thirty days written notice to the other.",
	"Confidentiality. Each party shall keep confidential information of the other party secret for five years.",
	"Governing Law. This agreement is governed by the laws of the State of Delaware without regard to conflicts.",
}

// contract builds a services agreement with n numbered clauses.
func contract(n int) string {
	var sb strings.Builder

	sb.WriteString("MASTER SERVICES AGREEMENT between Acme Corp and Globex LLC, effective today.\n\n")

	for idx := range n {
		fmt.Fprintf(&sb, "%d. %s\n\n", idx+1, clauseBodies[idx%len(clauseBodies)])
	}

	return sb.String()
}

func segmentOptions() segment.Options {
	return segment.Options{
		SmallDocumentThreshold: 500,
		TargetSize:             400,
		MinSize:                200,
		MaxSize:                800,
		Overlap:                100,
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

type analyzerFunc func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error)

func (f analyzerFunc) AnalyzeSegment(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
	return f(ctx, req)
}

// trackingStore records the stage and progress after every update.
type trackingStore struct {
	*store.MemoryStore

	mu       sync.Mutex
	progress []int
	stages   []store.Stage
}

func (s *trackingStore) Update(id string, fn func(*store.Record) error) error {
	err := s.MemoryStore.Update(id, fn)
	if err != nil {
		return err
	}

	rec, err := s.MemoryStore.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.progress = append(s.progress, rec.Progress)
	s.stages = append(s.stages, rec.Stage)
	s.mu.Unlock()

	return nil
}

type fixture struct {
	engine   *inference.Engine
	analyzer inference.Analyzer
	playbook *playbook.Playbook
	store    store.Store
}

func newService(t *testing.T, fx fixture) *review.Service {
	t.Helper()

	if fx.engine == nil {
		fx.engine = inference.NewEngine(mock.New(0), inference.EngineConfig{}, inference.EngineDeps{})
	}

	if fx.analyzer == nil {
		fx.analyzer = fx.engine
	}

	cfg := pipeline.DefaultConfig()
	cfg.Segment = segmentOptions()
	cfg.MaxRetries = 1

	p, err := pipeline.New(fx.analyzer, cfg, pipeline.Deps{Sleep: noSleep})
	require.NoError(t, err)

	seq := 0

	var idMu sync.Mutex

	return review.New(p, fx.engine, fx.engine, fx.playbook, review.Deps{
		Store: fx.store,
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()

			seq++

			return fmt.Sprintf("rev-%d", seq)
		},
	})
}

func TestReview_CompletesAndRecordsEveryStage(t *testing.T) {
	t.Parallel()

	tracked := &trackingStore{MemoryStore: store.NewMemoryStore()}
	svc := newService(t, fixture{store: tracked})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(12)})
	require.NoError(t, err)

	assert.Equal(t, "rev-1", rec.ID)
	assert.Equal(t, store.StatusCompleted, rec.Status)
	assert.Equal(t, store.StageComplete, rec.Stage)
	assert.Equal(t, review.ProgressComplete, rec.Progress)
	assert.Greater(t, rec.TotalSegments, 1)
	assert.Equal(t, rec.TotalSegments, rec.CompletedSegments)
	assert.Equal(t, "MASTER SERVICES AGREEMENT between Acme Corp and Globex LLC, effective today.", rec.Title)

	require.NotNil(t, rec.Classification)
	assert.Equal(t, "MSA", rec.Classification.ContractType)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, finding.RiskHigh, rec.Summary.OverallRisk)

	require.NotEmpty(t, rec.Findings)

	for idx, f := range rec.Findings {
		assert.Equal(t, idx+1, f.Number)
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	assert.True(t, slices.IsSorted(tracked.progress), "progress never decreases: %v", tracked.progress)
	assert.Equal(t, 0, tracked.progress[0])
	assert.Contains(t, tracked.progress, review.ProgressClassified)
	assert.Contains(t, tracked.progress, review.ProgressAnalyzed)
	assert.Contains(t, tracked.progress, review.ProgressSummarizing)

	stages := slices.Compact(slices.Clone(tracked.stages))
	assert.Equal(t, []store.Stage{
		store.StageClassifying,
		store.StageAnalyzing,
		store.StageSummarizing,
		store.StageComplete,
	}, stages)
}

func TestReview_SmallContractIsOneSegment(t *testing.T) {
	t.Parallel()

	svc := newService(t, fixture{})

	rec, err := svc.Review(context.Background(), review.Document{Title: "Short NDA", Text: contract(2)})
	require.NoError(t, err)

	assert.Equal(t, "Short NDA", rec.Title)
	assert.Equal(t, 1, rec.TotalSegments)
	assert.Equal(t, 1, rec.CompletedSegments)
	assert.Len(t, rec.Findings, 2)
}

func TestReview_SegmentFailureMarksRecord(t *testing.T) {
	t.Parallel()

	engine := inference.NewEngine(mock.New(0), inference.EngineConfig{}, inference.EngineDeps{})
	analyzer := analyzerFunc(func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		if req.Ordinal == 1 {
			return nil, errModel
		}

		return engine.AnalyzeSegment(ctx, req)
	})

	svc := newService(t, fixture{engine: engine, analyzer: analyzer})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(12)})
	require.ErrorIs(t, err, errModel)
	require.NotNil(t, rec)

	assert.Equal(t, store.StatusError, rec.Status)
	assert.Equal(t, store.StageError, rec.Stage)
	assert.Contains(t, rec.Error, "segment 1 failed after 2 attempts")
	assert.GreaterOrEqual(t, rec.Progress, review.ProgressClassified)
	assert.Less(t, rec.Progress, review.ProgressAnalyzed)
	assert.Nil(t, rec.Summary)
}

func TestReview_TotalSegmentsKnownBeforeAnalysis(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	engine := inference.NewEngine(mock.New(0), inference.EngineConfig{}, inference.EngineDeps{})

	var (
		mu     sync.Mutex
		totals []int
	)

	analyzer := analyzerFunc(func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		rec, err := st.Get("rev-1")
		if err != nil {
			return nil, err
		}

		mu.Lock()
		totals = append(totals, rec.TotalSegments)
		mu.Unlock()

		return engine.AnalyzeSegment(ctx, req)
	})

	svc := newService(t, fixture{engine: engine, analyzer: analyzer, store: st})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(12)})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, totals, rec.TotalSegments)

	for _, total := range totals {
		assert.Equal(t, rec.TotalSegments, total)
	}
}

func TestTriage(t *testing.T) {
	t.Parallel()

	svc := newService(t, fixture{})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(4)})
	require.NoError(t, err)
	require.NotEmpty(t, rec.Findings)

	status, note := "accept", "  agreed with counsel "

	updated, err := svc.Triage(rec.ID, 1, finding.Triage{Status: &status, UserNote: &note})
	require.NoError(t, err)
	assert.Equal(t, finding.TriageAccepted, updated.Status)
	assert.Equal(t, "agreed with counsel", updated.UserNote)
	assert.Equal(t, 1, updated.Number)

	got, err := svc.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, finding.TriageAccepted, got.Findings[0].Status)

	_, err = svc.Triage(rec.ID, 1, finding.Triage{})
	require.ErrorIs(t, err, finding.ErrEmptyTriage)

	_, err = svc.Triage(rec.ID, len(rec.Findings)+1, finding.Triage{Status: &status})
	require.ErrorIs(t, err, store.ErrFindingNotFound)

	_, err = svc.Triage("rev-missing", 1, finding.Triage{Status: &status})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTriage_RequiresCompletedReview(t *testing.T) {
	t.Parallel()

	engine := inference.NewEngine(mock.New(0), inference.EngineConfig{}, inference.EngineDeps{})
	analyzer := analyzerFunc(func(context.Context, inference.SegmentRequest) ([]finding.Finding, error) {
		return nil, errModel
	})

	svc := newService(t, fixture{engine: engine, analyzer: analyzer})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(2)})
	require.Error(t, err)
	require.NotNil(t, rec)

	status := "reject"

	_, err = svc.Triage(rec.ID, 1, finding.Triage{Status: &status})
	require.ErrorIs(t, err, review.ErrNotComplete)
}

func TestReview_ClassificationFailure(t *testing.T) {
	t.Parallel()

	flaky := &mock.Flaky{Next: mock.New(0), Kind: inference.KindClassify, Failures: 1}
	engine := inference.NewEngine(flaky, inference.EngineConfig{}, inference.EngineDeps{})
	svc := newService(t, fixture{engine: engine})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(3)})
	require.ErrorIs(t, err, mock.ErrInjected)

	assert.Equal(t, store.StatusError, rec.Status)
	assert.Equal(t, 0, rec.Progress)
	assert.Nil(t, rec.Classification)
}

func TestReview_ContractTypeSelectsProfile(t *testing.T) {
	t.Parallel()

	pb, err := playbook.Parse([]byte(`
profiles:
  - name: General
    default: true
    rules:
      - {name: General rule, category: Termination, condition: Notice period}
  - name: NDA
    contract_type: NDA
    rules:
      - {name: Survival, category: Confidentiality, condition: Survives two years}
`))
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen []inference.SegmentRequest
	)

	analyzer := analyzerFunc(func(_ context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		return nil, nil
	})

	svc := newService(t, fixture{analyzer: analyzer, playbook: pb})

	rec, err := svc.Review(context.Background(), review.Document{Text: contract(2), ContractType: "NDA"})
	require.NoError(t, err)
	assert.Equal(t, "NDA", rec.Classification.ContractType)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, seen, 1)
	assert.Equal(t, "NDA", seen[0].ContractType)
	require.Len(t, seen[0].Rules, 1)
	assert.Equal(t, "Survival", seen[0].Rules[0].Name)
}

func TestReview_RejectsEmptyDocument(t *testing.T) {
	t.Parallel()

	svc := newService(t, fixture{})

	_, err := svc.Review(context.Background(), review.Document{Text: " \n "})
	require.ErrorIs(t, err, pipeline.ErrEmptyDocument)

	_, err = svc.Submit(context.Background(), review.Document{})
	require.ErrorIs(t, err, pipeline.ErrEmptyDocument)

	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_RunsInBackground(t *testing.T) {
	t.Parallel()

	svc := newService(t, fixture{})

	ctx, cancel := context.WithCancel(context.Background())

	ids := make([]string, 0, 3)

	for range 3 {
		id, err := svc.Submit(ctx, review.Document{Text: contract(8)})
		require.NoError(t, err)

		ids = append(ids, id)
	}

	// Background reviews outlive the submitting request.
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()

	require.NoError(t, svc.Wait(waitCtx))

	for _, id := range ids {
		rec, err := svc.Get(id)
		require.NoError(t, err)
		assert.Equal(t, store.StatusCompleted, rec.Status, id)
	}

	_, err := svc.Submit(context.Background(), review.Document{Text: contract(1)})
	require.ErrorIs(t, err, review.ErrShuttingDown)
}

func TestWait_HonorsDeadline(t *testing.T) {
	t.Parallel()

	slow := inference.NewEngine(mock.New(time.Second), inference.EngineConfig{}, inference.EngineDeps{})
	svc := newService(t, fixture{engine: slow})

	_, err := svc.Submit(context.Background(), review.Document{Text: contract(1)})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)
}

func TestProgress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		completed, total, want int
	}{
		{0, 4, 10},
		{1, 4, 28},
		{2, 4, 45},
		{3, 4, 63},
		{4, 4, 80},
		{1, 1, 80},
		{1, 3, 33},
		{5, 4, 80},
		{0, 0, 10},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, review.Progress(tc.completed, tc.total), "%d/%d", tc.completed, tc.total)
	}
}
