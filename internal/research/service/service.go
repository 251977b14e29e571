// Package service runs the bounded research loop for one property: collect
// the official snapshot, then plan, search, merge and decide until the record
// is sufficient or the iteration cap is reached, then write the brief.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zonescout/internal/research/metrics"
	"zonescout/internal/research/models"
	pstrings "zonescout/pkg/platform/strings"
)

// DefaultMaxIterations is the hard cap on plan/search/merge passes.
const DefaultMaxIterations = 2

// ErrNoSnapshot is recorded when the registry answers without error but
// also without a snapshot.
var ErrNoSnapshot = errors.New("registry returned no snapshot")

// Registry returns the official snapshot for a subject.
type Registry interface {
	Fetch(ctx context.Context, subject models.Subject) (*models.Snapshot, error)
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, queries, domains []string) ([]models.EvidenceItem, error)
}

// Planner proposes the next round of queries.
type Planner interface {
	Plan(ctx context.Context, address string, rec models.Record) (models.PlanResult, error)
}

// Extractor turns evidence into a patch.
type Extractor interface {
	Extract(ctx context.Context, address string, evidence []models.EvidenceItem, rec models.Record) (models.Patch, error)
}

// Summarizer writes the final brief.
type Summarizer interface {
	Summarize(ctx context.Context, address string, rec models.Record, evidence []models.EvidenceItem, stylePrompt string) models.Summary
}

// Archive keeps finished runs.
type Archive interface {
	Save(ctx context.Context, result *models.Result) error
}

// Service holds the collaborators of the research loop. It keeps no
// per-run state and is safe for concurrent use.
type Service struct {
	registry   Registry
	searcher   Searcher
	planner    Planner
	extractor  Extractor
	summarizer Summarizer

	archive        Archive
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	maxIterations  int
	defaultDomains []string
	city           string
	stylePrompt    string
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithArchive stores every finished run.
func WithArchive(a Archive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithMaxIterations overrides the iteration cap. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.maxIterations = n
		}
	}
}

// WithDefaultDomains sets the domain filter used for user-supplied queries.
func WithDefaultDomains(domains []string) Option {
	return func(s *Service) {
		s.defaultDomains = pstrings.DedupeAndTrimLower(domains)
	}
}

// WithCity overrides the city appended to addresses.
func WithCity(city string) Option {
	return func(s *Service) {
		if strings.TrimSpace(city) != "" {
			s.city = city
		}
	}
}

// WithStylePrompt replaces the default report prompt.
func WithStylePrompt(p string) Option {
	return func(s *Service) {
		s.stylePrompt = p
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates the research service.
func New(registry Registry, searcher Searcher, planner Planner, extractor Extractor, summarizer Summarizer, opts ...Option) (*Service, error) {
	if registry == nil || searcher == nil || planner == nil || extractor == nil || summarizer == nil {
		return nil, errors.New("research: all collaborators are required")
	}
	s := &Service{
		registry:      registry,
		searcher:      searcher,
		planner:       planner,
		extractor:     extractor,
		summarizer:    summarizer,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:        otel.Tracer("zonescout/research"),
		maxIterations: DefaultMaxIterations,
		city:          models.DefaultCity,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxIterations returns the configured iteration cap.
func (s *Service) MaxIterations() int {
	return s.maxIterations
}

type state int

const (
	stateInit state = iota
	statePlanning
	stateSearching
	stateMerging
	stateDeciding
	stateFinalizing
	stateDone
)

func (st state) String() string {
	switch st {
	case stateInit:
		return "init"
	case statePlanning:
		return "planning"
	case stateSearching:
		return "searching"
	case stateMerging:
		return "merging"
	case stateDeciding:
		return "deciding"
	case stateFinalizing:
		return "finalizing"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// run is the mutable state of one pipeline execution.
type run struct {
	id          string
	subject     models.Subject
	userQueries []string
	logger      *slog.Logger

	iter     models.IterationState
	record   models.Record
	carried  []models.EvidenceItem
	round    []models.EvidenceItem
	evidence []models.EvidenceItem
	summary  models.Summary
}

// Run researches one property. The only error is an invalid subject; every
// later failure is recorded as a warning and the run still produces a result.
func (s *Service) Run(ctx context.Context, streetName, houseNumber string, userQueries []string) (*models.Result, error) {
	subject, err := models.NewSubject(streetName, houseNumber, s.city)
	if err != nil {
		return nil, err
	}

	started := s.now()
	r := &run{
		id:          uuid.NewString(),
		subject:     subject,
		userQueries: trimQuestions(userQueries),
	}
	r.logger = s.logger.With("run_id", r.id, "address", subject.Address)

	ctx, span := s.tracer.Start(ctx, "research.Run", trace.WithAttributes(
		attribute.String("research.run_id", r.id),
		attribute.String("research.address", subject.Address),
	))
	defer span.End()

	for st := stateInit; st != stateDone; {
		next := s.step(ctx, st, r)
		r.logger.DebugContext(ctx, "state transition",
			"from", st.String(),
			"to", next.String(),
			"iteration", r.iter.Iteration,
		)
		st = next
	}

	result := s.result(r, started)
	span.SetAttributes(
		attribute.Int("research.iterations", result.Iterations),
		attribute.String("research.stop_reason", string(result.StopReason)),
	)
	s.metrics.ObserveRun(string(result.StopReason), result.Iterations, result.Duration)
	r.logger.InfoContext(ctx, "research run finished",
		"iteration", result.Iterations,
		"stop_reason", result.StopReason,
		"warnings", len(result.Warnings),
		"duration_ms", result.Duration.Milliseconds(),
	)

	if s.archive != nil {
		if err := s.archive.Save(ctx, result); err != nil {
			r.logger.WarnContext(ctx, "failed to archive research run", "error", err)
		}
	}
	return result, nil
}

func (s *Service) step(ctx context.Context, st state, r *run) state {
	switch st {
	case stateInit:
		s.collect(ctx, r)
		return statePlanning
	case statePlanning:
		s.plan(ctx, r)
		return stateSearching
	case stateSearching:
		s.search(ctx, r)
		return stateMerging
	case stateMerging:
		s.merge(ctx, r)
		return stateDeciding
	case stateDeciding:
		return s.decide(ctx, r)
	case stateFinalizing:
		s.finalize(ctx, r)
		return stateDone
	default:
		return stateDone
	}
}

func (s *Service) collect(ctx context.Context, r *run) {
	var snap *models.Snapshot
	err := s.stage(ctx, r, models.StageCollection, func(ctx context.Context) error {
		var err error
		snap, err = s.registry.Fetch(ctx, r.subject)
		if err == nil && snap == nil {
			return ErrNoSnapshot
		}
		return err
	})
	if err != nil {
		r.record = models.SeedRecord(r.subject)
		return
	}
	r.record = models.RecordFromSnapshot(snap)
	r.carried = append([]models.EvidenceItem{}, snap.Evidence...)
}

func (s *Service) plan(ctx context.Context, r *run) {
	if len(r.userQueries) > 0 {
		r.iter.ApplyPlan(models.PlanResult{
			Queries:       append([]string{}, r.userQueries...),
			DomainFilter:  append([]string{}, s.defaultDomains...),
			StopCondition: models.StopConditionEnough,
		})
		r.logger.InfoContext(ctx, "using user questions as queries",
			"iteration", r.iter.Iteration,
			"queries", len(r.userQueries),
		)
		return
	}

	var plan models.PlanResult
	err := s.stage(ctx, r, models.StagePlanning, func(ctx context.Context) error {
		var err error
		plan, err = s.planner.Plan(ctx, r.subject.Address, r.record)
		return err
	})
	if err != nil {
		plan = models.ErrorPlan()
	}
	r.iter.ApplyPlan(plan)
	r.logger.InfoContext(ctx, "planned research round",
		"iteration", r.iter.Iteration,
		"queries", len(plan.Queries),
		"stop_condition", plan.StopCondition,
	)
}

func (s *Service) search(ctx context.Context, r *run) {
	r.round = nil
	if len(r.iter.Queries) == 0 {
		return
	}
	var items []models.EvidenceItem
	err := s.stage(ctx, r, models.StageSearch, func(ctx context.Context) error {
		var err error
		items, err = s.searcher.Search(ctx, r.iter.Queries, r.iter.DomainFilter)
		return err
	})
	if err != nil {
		return
	}
	r.round = items
	r.evidence = append(r.evidence, items...)
}

func (s *Service) merge(ctx context.Context, r *run) {
	pool := make([]models.EvidenceItem, 0, len(r.round)+len(r.carried))
	pool = append(pool, r.round...)
	pool = append(pool, r.carried...)

	var patch models.Patch
	err := s.stage(ctx, r, models.StageExtraction, func(ctx context.Context) error {
		var err error
		patch, err = s.extractor.Extract(ctx, r.subject.Address, pool, r.record)
		return err
	})
	r.record = models.SafeMerge(r.record, patch, err)
}

func (s *Service) decide(ctx context.Context, r *run) state {
	r.iter.Iteration++
	switch {
	case r.iter.Sufficient():
		r.iter.StopReason = models.StopSufficient
	case r.iter.Iteration >= s.maxIterations:
		r.iter.StopReason = models.StopMaxIterations
		if r.iter.StopCondition == models.StopConditionError {
			r.iter.StopReason = models.StopError
		}
	default:
		return statePlanning
	}
	r.logger.InfoContext(ctx, "research loop stopping",
		"iteration", r.iter.Iteration,
		"stop_reason", r.iter.StopReason,
	)
	return stateFinalizing
}

func (s *Service) finalize(ctx context.Context, r *run) {
	evidence := make([]models.EvidenceItem, 0, len(r.evidence)+len(r.carried))
	evidence = append(evidence, r.evidence...)
	evidence = append(evidence, r.carried...)

	_ = s.stage(ctx, r, models.StageSummarization, func(ctx context.Context) error {
		r.summary = s.summarizer.Summarize(ctx, r.subject.Address, r.record, evidence, s.stylePrompt)
		return nil
	})
	if r.summary.Narrative == "" {
		s.metrics.IncrementStageError(string(models.StageSummarization))
	}
}

// stage runs fn inside a span, times it, and records a failure against the
// run. The error is returned so the caller can pick its fallback.
func (s *Service) stage(ctx context.Context, r *run, stage models.Stage, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "research."+string(stage), trace.WithAttributes(
		attribute.Int("research.iteration", r.iter.Iteration),
	))
	defer span.End()

	start := s.now()
	err := fn(ctx)
	s.metrics.ObserveStage(string(stage), s.now().Sub(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.IncrementStageError(string(stage))
		r.iter.AddError(stage, err)
		r.logger.WarnContext(ctx, "research stage failed",
			"stage", stage,
			"iteration", r.iter.Iteration,
			"error", err,
		)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Service) result(r *run, started time.Time) *models.Result {
	warnings := make([]string, 0, len(r.summary.Warnings)+len(r.iter.Errors))
	warnings = append(warnings, r.summary.Warnings...)
	for _, e := range r.iter.Errors {
		warnings = append(warnings, e.Error())
	}

	sources := make([]models.Source, 0, len(r.summary.Sources)+len(r.record.Sources))
	sources = append(sources, r.summary.Sources...)
	sources = append(sources, r.record.Sources...)

	evidence := make([]models.EvidenceItem, 0, len(r.evidence)+len(r.carried))
	evidence = append(evidence, r.evidence...)
	evidence = append(evidence, r.carried...)

	return &models.Result{
		RunID:           r.id,
		Address:         r.subject.Address,
		StreetName:      r.subject.StreetName,
		HouseNumber:     r.subject.HouseNumber,
		Record:          r.record,
		Evidence:        evidence,
		CarriedEvidence: r.carried,
		Narrative:       r.summary.Narrative,
		Sources:         sources,
		Warnings:        warnings,
		Iterations:      r.iter.Iteration,
		StopReason:      r.iter.StopReason,
		StartedAt:       started,
		Duration:        s.now().Sub(started),
	}
}

// trimQuestions keeps user questions verbatim apart from surrounding space,
// dropping blanks.
func trimQuestions(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
