// Package planner decides what to search for next, or that the record is
// complete enough to stop.
package planner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"zonescout/internal/platform/llm"
	"zonescout/internal/research/models"
	"zonescout/internal/research/prompt"
	pstrings "zonescout/pkg/platform/strings"
)

// MaxQueries bounds the queries taken from one plan.
const MaxQueries = 6

// Completer sends one chat completion.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Planner turns the gaps in a record into search queries.
type Planner struct {
	llm            Completer
	defaultDomains []string
	logger         *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a planner. defaultDomains are used when the model names none.
func New(c Completer, defaultDomains []string, opts ...Option) *Planner {
	p := &Planner{
		llm:            c,
		defaultDomains: append([]string{}, defaultDomains...),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type planResponse struct {
	Queries        []string `json:"queries"`
	IncludeDomains []string `json:"include_domains"`
	StopCondition  string   `json:"stop_condition"`
}

// Plan inspects the record and proposes the next round. A record with no
// gaps is sufficient without consulting the model. On failure it returns
// models.ErrorPlan() together with the error.
func (p *Planner) Plan(ctx context.Context, address string, rec models.Record) (models.PlanResult, error) {
	if len(rec.MissingFields()) == 0 {
		return models.PlanResult{
			Queries:       []string{},
			DomainFilter:  []string{},
			StopCondition: models.StopConditionEnough,
		}, nil
	}

	raw, err := p.llm.Complete(ctx, llm.Request{
		System: prompt.PlannerSystem,
		User:   prompt.PlannerMessage(address, rec),
		JSON:   true,
	})
	if err != nil {
		return models.ErrorPlan(), fmt.Errorf("plan queries: %w", err)
	}

	var resp planResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return models.ErrorPlan(), fmt.Errorf("plan queries: %w", err)
	}

	queries := pstrings.DedupeAndTrim(resp.Queries)
	if queries == nil {
		queries = []string{}
	}
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}

	domains := pstrings.DedupeAndTrimLower(resp.IncludeDomains)
	if len(domains) == 0 {
		domains = append([]string{}, p.defaultDomains...)
	}

	stop := strings.TrimSpace(resp.StopCondition)
	p.logger.DebugContext(ctx, "planned research round",
		"address", address,
		"queries", len(queries),
		"domains", domains,
		"stop_condition", stop,
	)

	return models.PlanResult{Queries: queries, DomainFilter: domains, StopCondition: stop}, nil
}
