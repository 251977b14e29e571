// Package extractor turns a round of web evidence into a grounded patch.
package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"zonescout/internal/platform/llm"
	"zonescout/internal/research/models"
	"zonescout/internal/research/prompt"
	pstrings "zonescout/pkg/platform/strings"
)

// Completer sends one chat completion.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Extractor asks the model for facts the evidence supports.
type Extractor struct {
	llm    Completer
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an extractor.
func New(c Completer, opts ...Option) *Extractor {
	e := &Extractor{llm: c, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractResponse struct {
	Patch   *patchWire      `json:"patch"`
	Sources []models.Source `json:"sources"`
}

type patchWire struct {
	Zoning *struct {
		BaseZone    *string `json:"base_zone"`
		HeightLimit *string `json:"height_limit"`
		FAR         *string `json:"far"`
	} `json:"zoning"`
	Overlays []string     `json:"overlays"`
	Permits  []permitWire `json:"permits"`
	Notes    *string      `json:"notes"`
}

type permitWire struct {
	ID     any `json:"id"`
	Type   any `json:"type"`
	Status any `json:"status"`
	Year   any `json:"year"`
}

// Extract returns the patch supported by evidence. Without evidence there is
// nothing to ground a fact on, so the patch is empty and no call is made.
func (e *Extractor) Extract(ctx context.Context, address string, evidence []models.EvidenceItem, rec models.Record) (models.Patch, error) {
	if len(evidence) == 0 {
		return models.Patch{}, nil
	}

	raw, err := e.llm.Complete(ctx, llm.Request{
		System: prompt.ExtractorSystem,
		User:   prompt.ExtractorMessage(address, evidence, rec),
		JSON:   true,
	})
	if err != nil {
		return models.Patch{}, fmt.Errorf("extract patch: %w", err)
	}

	var resp extractResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return models.Patch{}, fmt.Errorf("extract patch: %w", err)
	}

	patch := toPatch(resp)
	e.logger.DebugContext(ctx, "extracted patch",
		"address", address,
		"evidence", len(evidence),
		"overlays", len(patch.Overlays),
		"permits", len(patch.Permits),
		"sources", len(patch.Sources),
	)
	return patch, nil
}

func toPatch(resp extractResponse) models.Patch {
	var patch models.Patch
	if w := resp.Patch; w != nil {
		if z := w.Zoning; z != nil {
			zp := &models.ZoningPatch{
				BaseZone:    cleanString(z.BaseZone),
				HeightLimit: cleanString(z.HeightLimit),
				FAR:         cleanString(z.FAR),
			}
			if zp.BaseZone != nil || zp.HeightLimit != nil || zp.FAR != nil {
				patch.Zoning = zp
			}
		}
		patch.Overlays = pstrings.DedupeAndTrim(w.Overlays)
		for _, pw := range w.Permits {
			p := models.Permit{
				ID:     scalarString(pw.ID),
				Type:   scalarString(pw.Type),
				Status: scalarString(pw.Status),
				Year:   scalarYear(pw.Year),
			}
			if !p.IsEmpty() {
				patch.Permits = append(patch.Permits, p)
			}
		}
		patch.Notes = cleanString(w.Notes)
	}

	for _, s := range resp.Sources {
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		if s.Name == "" && s.URL == "" {
			continue
		}
		patch.Sources = append(patch.Sources, s)
	}
	return patch
}

// cleanString treats blank strings and the literal "null" as unknown.
func cleanString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

func scalarString(v any) *string {
	switch val := v.(type) {
	case string:
		return cleanString(&val)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

// scalarYear accepts numbers and numeric strings; anything else is unknown.
func scalarYear(v any) *int {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return nil
		}
		y := int(val)
		return &y
	case string:
		y, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		return &y
	default:
		return nil
	}
}
