package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"zonescout/internal/research/models"
	pstrings "zonescout/pkg/platform/strings"
)

// Budget bounds what a single LLM call may carry. Every string is clipped
// and every list is capped before serialization.
type Budget struct {
	PanelChars    int
	NotesChars    int
	ZoningChars   int
	TitleChars    int
	EvidenceChars int
	TopEvidence   int
	MaxSources    int
	MaxPermits    int
	MaxOverlays   int
	DropNotes     bool
	DropPermits   bool
}

// SummaryBudget is used for the final narrative.
func SummaryBudget() Budget {
	return Budget{
		PanelChars: 1200, NotesChars: 1200, ZoningChars: 200, TitleChars: 200,
		EvidenceChars: 700, TopEvidence: 5, MaxSources: 10, MaxPermits: 10, MaxOverlays: 20,
	}
}

// PlannerBudget is the tightest budget; the planner only needs to see gaps.
func PlannerBudget() Budget {
	return Budget{
		PanelChars: 600, NotesChars: 1200, ZoningChars: 200, TitleChars: 200,
		MaxSources: 10, MaxPermits: 10, MaxOverlays: 20, DropNotes: true, DropPermits: true,
	}
}

// ExtractorBudget is used when turning evidence into a patch.
func ExtractorBudget() Budget {
	return Budget{
		PanelChars: 600, NotesChars: 1200, ZoningChars: 200, TitleChars: 200,
		EvidenceChars: 400, TopEvidence: 3, MaxSources: 10, MaxPermits: 10, MaxOverlays: 20,
	}
}

// RecordView is the condensed, serializable form of a record.
type RecordView struct {
	Panels   map[string]string `json:"panels"`
	Zoning   map[string]string `json:"zoning,omitempty"`
	Overlays []string          `json:"overlays,omitempty"`
	Permits  []models.Permit   `json:"permits,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Sources  []models.Source   `json:"sources,omitempty"`
}

// ShrinkRecord condenses a record to fit the budget.
func ShrinkRecord(rec models.Record, b Budget) RecordView {
	view := RecordView{Panels: make(map[string]string, len(rec.Fields))}
	for name, value := range rec.Fields {
		if value == nil {
			view.Panels[name] = ""
			continue
		}
		view.Panels[name] = pstrings.Clip(*value, b.PanelChars)
	}

	zoning := map[string]string{}
	for key, value := range map[string]*string{
		"base_zone":    rec.Zoning.BaseZone,
		"height_limit": rec.Zoning.HeightLimit,
		"far":          rec.Zoning.FAR,
	} {
		if value != nil {
			zoning[key] = pstrings.Clip(*value, b.ZoningChars)
		}
	}
	if len(zoning) > 0 {
		view.Zoning = zoning
	}

	for _, overlay := range capSlice(rec.Overlays, b.MaxOverlays) {
		view.Overlays = append(view.Overlays, pstrings.Clip(overlay, b.ZoningChars))
	}
	if !b.DropPermits {
		for _, permit := range capSlice(rec.Permits, b.MaxPermits) {
			view.Permits = append(view.Permits, models.Permit{
				ID:     clipPtr(permit.ID, b.ZoningChars),
				Type:   clipPtr(permit.Type, b.ZoningChars),
				Status: clipPtr(permit.Status, b.ZoningChars),
				Year:   permit.Year,
			})
		}
	}
	if !b.DropNotes {
		view.Notes = pstrings.Clip(rec.Notes, b.NotesChars)
	}
	view.Sources = capSlice(rec.Sources, b.MaxSources)
	return view
}

// EvidenceView is one condensed evidence item.
type EvidenceView struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ShrinkEvidence keeps the highest-scoring items and clips their text.
func ShrinkEvidence(items []models.EvidenceItem, b Budget) []EvidenceView {
	top := models.TopEvidence(items, b.TopEvidence)
	out := make([]EvidenceView, 0, len(top))
	for _, item := range top {
		out = append(out, EvidenceView{
			Title:   pstrings.Clip(item.Title, b.TitleChars),
			URL:     item.URL,
			Content: pstrings.Clip(item.Content, b.EvidenceChars),
			Score:   item.Score,
		})
	}
	return out
}

// PlannerMessage builds the user message for the planner.
func PlannerMessage(address string, rec models.Record) string {
	missing := rec.MissingFields()
	if missing == nil {
		missing = []string{}
	}
	return fmt.Sprintf("ADDRESS: %s\nMISSING: %s\nLA_DATA:\n%s",
		address, mustJSON(missing), mustJSON(ShrinkRecord(rec, PlannerBudget())))
}

// ExtractorMessage builds the user message for the extractor.
func ExtractorMessage(address string, evidence []models.EvidenceItem, rec models.Record) string {
	b := ExtractorBudget()
	return fmt.Sprintf("ADDRESS: %s\nNOTES_MINI:\n%s\nCURRENT_MINI:\n%s",
		address, mustJSON(ShrinkEvidence(evidence, b)), mustJSON(ShrinkRecord(rec, b)))
}

// SummaryMessage builds the user message for the final narrative.
func SummaryMessage(address string, rec models.Record, evidence []models.EvidenceItem) string {
	b := SummaryBudget()
	return fmt.Sprintf("Address: %s\nLA data (condensed): %s\nSearch notes (top): %s",
		address, mustJSON(ShrinkRecord(rec, b)), mustJSON(ShrinkEvidence(evidence, b)))
}

func clipPtr(s *string, limit int) *string {
	if s == nil {
		return nil
	}
	v := pstrings.Clip(*s, limit)
	return &v
}

func capSlice[T any](in []T, n int) []T {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

// mustJSON marshals values that are always serializable (maps of strings,
// plain structs). A failure here is a programming error.
func mustJSON(v any) string {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		panic(fmt.Sprintf("prompt: marshal payload: %v", err))
	}
	return strings.TrimRight(sb.String(), "\n")
}
