package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonescout/internal/research/models"
	pstrings "zonescout/pkg/platform/strings"
)

func ptr[T any](v T) *T { return &v }

func bigRecord() models.Record {
	rec := models.NewRecord()
	rec.Fields["Planning and Zoning"] = ptr(strings.Repeat("zone ", 2000))
	rec.Fields["Housing"] = nil
	rec.Zoning.BaseZone = ptr(strings.Repeat("R", 500))
	rec.Notes = strings.Repeat("note ", 1000)
	for i := 0; i < 25; i++ {
		rec.Permits = append(rec.Permits, models.Permit{ID: ptr(fmt.Sprintf("P-%d", i))})
		rec.Overlays = append(rec.Overlays, fmt.Sprintf("Overlay %02d", i))
		rec.Sources = append(rec.Sources, models.Source{Name: "src", URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	return rec
}

func bigEvidence(n int) []models.EvidenceItem {
	items := make([]models.EvidenceItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.EvidenceItem{
			Title:   strings.Repeat("title ", 100),
			URL:     fmt.Sprintf("https://planning.lacity.gov/%d", i),
			Content: strings.Repeat("content ", 500),
			Score:   float64(i) / float64(n),
		})
	}
	return items
}

func maxLen(limit int) int {
	return limit + utf8.RuneCountInString(pstrings.Ellipsis)
}

func TestShrinkRecord(t *testing.T) {
	t.Run("summary budget clips and caps", func(t *testing.T) {
		b := SummaryBudget()
		view := ShrinkRecord(bigRecord(), b)

		assert.LessOrEqual(t, utf8.RuneCountInString(view.Panels["Planning and Zoning"]), maxLen(1200))
		assert.Equal(t, "", view.Panels["Housing"])
		assert.LessOrEqual(t, utf8.RuneCountInString(view.Zoning["base_zone"]), maxLen(200))
		assert.LessOrEqual(t, utf8.RuneCountInString(view.Notes), maxLen(1200))
		assert.Len(t, view.Permits, 10)
		assert.Len(t, view.Sources, 10)
	})

	t.Run("overlays are capped and permit text is clipped", func(t *testing.T) {
		rec := bigRecord()
		for i := range rec.Overlays {
			rec.Overlays[i] += strings.Repeat(" x", 300)
		}
		for i := range rec.Permits {
			rec.Permits[i].Type = ptr(strings.Repeat("Bldg-Alter/Repair ", 40))
		}
		view := ShrinkRecord(rec, ExtractorBudget())

		require.Len(t, view.Overlays, 20)
		for _, overlay := range view.Overlays {
			assert.LessOrEqual(t, utf8.RuneCountInString(overlay), maxLen(200))
		}
		require.Len(t, view.Permits, 10)
		for _, permit := range view.Permits {
			assert.LessOrEqual(t, utf8.RuneCountInString(*permit.Type), maxLen(200))
			assert.Nil(t, permit.Status)
		}
		assert.Greater(t, utf8.RuneCountInString(*rec.Permits[0].Type), 200, "source record untouched")
	})

	t.Run("planner budget drops permits and notes", func(t *testing.T) {
		view := ShrinkRecord(bigRecord(), PlannerBudget())

		assert.LessOrEqual(t, utf8.RuneCountInString(view.Panels["Planning and Zoning"]), maxLen(600))
		assert.Empty(t, view.Permits)
		assert.Empty(t, view.Notes)
	})

	t.Run("unknown zoning is omitted", func(t *testing.T) {
		view := ShrinkRecord(models.NewRecord(), ExtractorBudget())
		assert.Nil(t, view.Zoning)
	})
}

func TestShrinkEvidence(t *testing.T) {
	items := bigEvidence(8)

	summary := ShrinkEvidence(items, SummaryBudget())
	require.Len(t, summary, 5)
	assert.Equal(t, items[7].URL, summary[0].URL)
	for _, v := range summary {
		assert.LessOrEqual(t, utf8.RuneCountInString(v.Content), maxLen(700))
		assert.LessOrEqual(t, utf8.RuneCountInString(v.Title), maxLen(200))
	}

	extractor := ShrinkEvidence(items, ExtractorBudget())
	require.Len(t, extractor, 3)
	for _, v := range extractor {
		assert.LessOrEqual(t, utf8.RuneCountInString(v.Content), maxLen(400))
	}
}

func TestMessagesAreBounded(t *testing.T) {
	rec := bigRecord()
	evidence := bigEvidence(50)

	planner := PlannerMessage("200 N Spring St, Los Angeles, CA", rec)
	assert.Contains(t, planner, "ADDRESS: 200 N Spring St, Los Angeles, CA")
	assert.Contains(t, planner, `"zoning.height_limit"`)
	assert.NotContains(t, planner, `"permits":`)

	extractor := ExtractorMessage("addr", evidence, rec)
	summary := SummaryMessage("addr", rec, evidence)

	// Inputs are tens of kilobytes; payloads stay bounded regardless.
	assert.Less(t, len(planner), 8000)
	assert.Less(t, len(extractor), 12000)
	assert.Less(t, len(summary), 16000)
}

func TestSummaryMessageIsValidJSONSections(t *testing.T) {
	msg := SummaryMessage("addr", bigRecord(), bigEvidence(2))

	lines := strings.SplitN(msg, "\n", 3)
	require.Len(t, lines, 3)

	var view RecordView
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "LA data (condensed): ")), &view))
	assert.Contains(t, view.Panels, "Planning and Zoning")

	var ev []EvidenceView
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "Search notes (top): ")), &ev))
	assert.Len(t, ev, 2)
}
