// Package summarizer writes the final property brief.
package summarizer

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"zonescout/internal/platform/llm"
	"zonescout/internal/research/models"
	"zonescout/internal/research/prompt"
)

// maxSources bounds the evidence citations returned with a summary.
const maxSources = 5

// Completer sends one chat completion.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Summarizer produces the narrative brief. It never fails: problems are
// reported as warnings next to whatever could be produced.
type Summarizer struct {
	llm    Completer
	logger *slog.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a summarizer.
func New(c Completer, opts ...Option) *Summarizer {
	s := &Summarizer{llm: c, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize writes the brief for address. A blank stylePrompt uses the
// default report prompt.
func (s *Summarizer) Summarize(ctx context.Context, address string, rec models.Record, evidence []models.EvidenceItem, stylePrompt string) models.Summary {
	system := strings.TrimSpace(stylePrompt)
	if system == "" {
		system = prompt.ReportSystem
	}

	summary := models.Summary{Sources: evidenceSources(evidence)}

	out, err := s.llm.Complete(ctx, llm.Request{
		System: system,
		User:   prompt.SummaryMessage(address, rec, evidence),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "narrative generation failed", "address", address, "error", err)
		summary.Warnings = append(summary.Warnings, "LLM call failed: "+err.Error())
		return summary
	}

	summary.Narrative = llm.StripThinking(out)
	if summary.Narrative == "" {
		summary.Warnings = append(summary.Warnings, "LLM returned an empty narrative")
	}
	return summary
}

// evidenceSources cites the evidence the narrative was written from, in the
// order it was offered, one entry per URL.
func evidenceSources(evidence []models.EvidenceItem) []models.Source {
	sources := []models.Source{}
	seen := map[string]bool{}
	for _, item := range models.TopEvidence(evidence, maxSources) {
		url := strings.TrimSpace(item.URL)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		sources = append(sources, models.Source{Name: strings.TrimSpace(item.Title), URL: url})
	}
	return sources
}
