// Package review runs the full contract review flow: classification, the
// segment pipeline against the selected playbook profile, and the risk
// summary. Each step is written to a store.Record so callers can poll it.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/playbook"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

// DefaultMaxBackground bounds concurrently running submitted reviews.
const DefaultMaxBackground = 8

// maxTitleRunes bounds titles derived from the document.
const maxTitleRunes = 80

var (
	// ErrShuttingDown is returned by Submit once Wait has been called.
	ErrShuttingDown = errors.New("review service is shutting down")
	// ErrNotComplete is returned when a finished review is required.
	ErrNotComplete = errors.New("review is not complete")
)

// Document is a contract submitted for review.
type Document struct {
	Title string
	Text  string
	// ContractType overrides the classified contract type when set.
	ContractType string
}

// Deps holds the service collaborators. Store defaults to a MemoryStore and
// NewID to random UUIDs.
type Deps struct {
	Logger        *slog.Logger
	Tracer        trace.Tracer
	Store         store.Store
	NewID         func() string
	MaxBackground int
}

// Service reviews documents and records their progress.
type Service struct {
	pipeline   *pipeline.Pipeline
	classifier inference.Classifier
	summarizer inference.Summarizer
	playbook   *playbook.Playbook
	store      store.Store
	logger     *slog.Logger
	tracer     trace.Tracer
	newID      func() string

	launch chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	closing bool
}

// New creates a Service. A nil playbook selects the embedded default.
func New(
	p *pipeline.Pipeline,
	classifier inference.Classifier,
	summarizer inference.Summarizer,
	pb *playbook.Playbook,
	deps Deps,
) *Service {
	if pb == nil {
		pb = playbook.Default()
	}

	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}

	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	if deps.MaxBackground <= 0 {
		deps.MaxBackground = DefaultMaxBackground
	}

	return &Service{
		pipeline:   p,
		classifier: classifier,
		summarizer: summarizer,
		playbook:   pb,
		store:      deps.Store,
		logger:     observability.LoggerOrDefault(deps.Logger),
		tracer:     observability.TracerOrNoop(deps.Tracer),
		newID:      deps.NewID,
		launch:     make(chan struct{}, deps.MaxBackground),
	}
}

// Store returns the record store.
func (s *Service) Store() store.Store {
	return s.store
}

// Review runs a review to completion and returns the final record. A failed
// review returns its record, marked as errored, together with the error.
func (s *Service) Review(ctx context.Context, doc Document) (*store.Record, error) {
	id, err := s.create(doc)
	if err != nil {
		return nil, err
	}

	runErr := s.run(ctx, id, doc)

	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	return rec, runErr
}

// Submit records the document and reviews it in the background. The review
// outlives ctx's cancellation but keeps its values.
func (s *Service) Submit(ctx context.Context, doc Document) (string, error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()

		return "", ErrShuttingDown
	}

	s.wg.Add(1)
	s.mu.Unlock()

	id, err := s.create(doc)
	if err != nil {
		s.wg.Done()

		return "", err
	}

	bg := context.WithoutCancel(ctx)

	go func() {
		defer s.wg.Done()

		s.launch <- struct{}{}
		defer func() { <-s.launch }()

		// The error is on the record.
		_ = s.run(bg, id, doc)
	}()

	return id, nil
}

// Wait stops accepting submissions and blocks until background reviews
// finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Playbook returns the playbook findings are checked against.
func (s *Service) Playbook() *playbook.Playbook {
	return s.playbook
}

// Segmenter returns the segmenter the pipeline splits documents with.
func (s *Service) Segmenter() *segment.Segmenter {
	return s.pipeline.Segmenter()
}

// Get returns the record of a review.
func (s *Service) Get(id string) (*store.Record, error) {
	return s.store.Get(id)
}

// List returns briefs of all reviews, newest first.
func (s *Service) List() ([]store.Record, error) {
	return s.store.List()
}

// Triage records a reviewer's decision on finding number of review id.
// Only completed reviews can be triaged, since a running review still
// replaces its partial findings.
func (s *Service) Triage(id string, number int, triage finding.Triage) (finding.Finding, error) {
	err := triage.Validate()
	if err != nil {
		return finding.Finding{}, err
	}

	rec, err := s.store.Get(id)
	if err != nil {
		return finding.Finding{}, err
	}

	if rec.Status != store.StatusCompleted {
		return finding.Finding{}, fmt.Errorf("%w: review %s is %s", ErrNotComplete, id, rec.Status)
	}

	updated, err := s.store.UpdateFinding(id, number, triage.Apply)
	if err != nil {
		return finding.Finding{}, err
	}

	s.logger.Info("finding triaged", "review.id", id, "finding", number, "status", updated.Status)

	return updated, nil
}

func (s *Service) create(doc Document) (string, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return "", pipeline.ErrEmptyDocument
	}

	rec := &store.Record{
		ID:     s.newID(),
		Title:  titleFor(doc),
		Text:   doc.Text,
		Status: store.StatusPending,
		Stage:  store.StageQueued,
	}

	err := s.store.Create(rec)
	if err != nil {
		return "", fmt.Errorf("create review: %w", err)
	}

	return rec.ID, nil
}

func (s *Service) run(ctx context.Context, id string, doc Document) error {
	ctx = observability.WithReviewID(ctx, id)

	ctx, span := s.tracer.Start(ctx, "review.run", trace.WithAttributes(
		attribute.String("review.id", id),
		attribute.Int("review.document_bytes", len(doc.Text)),
	))
	defer span.End()

	err := s.steps(ctx, id, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review failed")
		s.logger.ErrorContext(ctx, "review failed", "error", err)

		markErr := s.store.Update(id, func(rec *store.Record) error {
			rec.Status = store.StatusError
			rec.Stage = store.StageError
			rec.Error = err.Error()

			return nil
		})
		if markErr != nil {
			s.logger.ErrorContext(ctx, "record review failure", "error", markErr)
		}

		return err
	}

	return nil
}

func (s *Service) steps(ctx context.Context, id string, doc Document) error {
	err := s.advance(id, func(rec *store.Record) {
		rec.Status = store.StatusAnalyzing
		rec.Stage = store.StageClassifying
		rec.Progress = 0
	})
	if err != nil {
		return err
	}

	classification, err := s.classifier.Classify(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	if doc.ContractType != "" {
		classification.ContractType = doc.ContractType
	}

	profile := s.playbook.Select(classification.ContractType)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("review.contract_type", classification.ContractType),
		attribute.String("review.profile", profile.Name),
	)
	s.logger.InfoContext(ctx, "contract classified",
		"contract_type", classification.ContractType, "paper_type", classification.PaperType,
		"profile", profile.Name)

	err = s.advance(id, func(rec *store.Record) {
		rec.Classification = &classification
		rec.Stage = store.StageAnalyzing
		rec.Progress = ProgressClassified
	})
	if err != nil {
		return err
	}

	reporter := &recordReporter{store: s.store, id: id, logger: s.logger}

	findings, err := s.pipeline.Run(ctx, doc.Text, profile.RuleSet(), reporter,
		pipeline.WithContractType(classification.ContractType),
		pipeline.OnPlan(func(_ context.Context, plan segment.Plan) error {
			return s.advance(id, func(rec *store.Record) {
				rec.TotalSegments = len(plan.Segments)
			})
		}))
	if err != nil {
		return err
	}

	err = s.advance(id, func(rec *store.Record) {
		rec.Findings = findings
		rec.Progress = ProgressSummarizing
		rec.Stage = store.StageSummarizing
	})
	if err != nil {
		return err
	}

	summary, err := s.summarizer.Summarize(ctx, inference.SummaryRequest{
		Text:         doc.Text,
		ContractType: classification.ContractType,
		Findings:     findings,
	})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	err = s.advance(id, func(rec *store.Record) {
		rec.Summary = &summary
		rec.Status = store.StatusCompleted
		rec.Stage = store.StageComplete
		rec.Progress = ProgressComplete
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "review complete",
		"findings", len(findings), "overall_risk", summary.OverallRisk,
		"high_risk", finding.CountByRisk(findings)[finding.RiskHigh])

	return nil
}

func (s *Service) advance(id string, fn func(*store.Record)) error {
	err := s.store.Update(id, func(rec *store.Record) error {
		fn(rec)

		return nil
	})
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	return nil
}

// titleFor uses the explicit title or the first non-blank line of the text.
func titleFor(doc Document) string {
	if title := strings.TrimSpace(doc.Title); title != "" {
		return title
	}

	for line := range strings.Lines(doc.Text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if utf8.RuneCountInString(line) > maxTitleRunes {
			line = string([]rune(line)[:maxTitleRunes])
		}

		return line
	}

	return "Untitled contract"
}
