package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonescout/internal/platform/llm"
	"zonescout/internal/research/models"
)

type scriptedLLM struct {
	reply    string
	err      error
	requests []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

var evidence = []models.EvidenceItem{
	{Title: "ZIMAS parcel profile", URL: "https://zimas.lacity.org/", Content: "Zoning R1-1, HPOZ", Score: 0.9},
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	addr := "200 N Spring St, Los Angeles, CA"

	t.Run("converts the patch", func(t *testing.T) {
		fake := &scriptedLLM{reply: `{
			"patch": {
				"zoning": {"base_zone": "R1-1", "height_limit": "", "far": null},
				"overlays": ["HPOZ", " HPOZ ", ""],
				"permits": [
					{"id": "19016-10000-01234", "type": "Bldg-Alter/Repair", "status": "Issued", "year": 2019},
					{"id": null, "type": null, "status": null, "year": null},
					{"id": 42, "type": "Electrical", "status": "Finaled", "year": "2021"}
				],
				"notes": "Parcel lies within an HPOZ."
			},
			"sources": [{"name": "ZIMAS", "url": "https://zimas.lacity.org/"}, {"name": " ", "url": ""}]
		}`}

		patch, err := New(fake).Extract(ctx, addr, evidence, models.NewRecord())
		require.NoError(t, err)

		require.NotNil(t, patch.Zoning)
		assert.Equal(t, "R1-1", *patch.Zoning.BaseZone)
		assert.Nil(t, patch.Zoning.HeightLimit, "blank is unknown")
		assert.Nil(t, patch.Zoning.FAR)
		assert.Equal(t, []string{"HPOZ"}, patch.Overlays)

		require.Len(t, patch.Permits, 2, "empty permit dropped")
		assert.Equal(t, 2019, *patch.Permits[0].Year)
		assert.Equal(t, "42", *patch.Permits[1].ID)
		assert.Equal(t, 2021, *patch.Permits[1].Year)

		assert.Equal(t, "Parcel lies within an HPOZ.", *patch.Notes)
		assert.Equal(t, []models.Source{{Name: "ZIMAS", URL: "https://zimas.lacity.org/"}}, patch.Sources)

		require.Len(t, fake.requests, 1)
		assert.True(t, fake.requests[0].JSON)
		assert.Contains(t, fake.requests[0].User, "NOTES_MINI")
	})

	t.Run("no evidence means no call and empty patch", func(t *testing.T) {
		fake := &scriptedLLM{}
		patch, err := New(fake).Extract(ctx, addr, nil, models.NewRecord())

		require.NoError(t, err)
		assert.True(t, patch.IsEmpty())
		assert.Empty(t, fake.requests)
	})

	t.Run("missing patch still keeps sources", func(t *testing.T) {
		fake := &scriptedLLM{reply: `{"sources":[{"name":"LADBS","url":"https://ladbs.org/"}]}`}
		patch, err := New(fake).Extract(ctx, addr, evidence, models.NewRecord())

		require.NoError(t, err)
		assert.Nil(t, patch.Zoning)
		assert.Len(t, patch.Sources, 1)
	})

	t.Run("model failure is reported", func(t *testing.T) {
		fake := &scriptedLLM{err: errors.New("connection reset")}
		patch, err := New(fake).Extract(ctx, addr, evidence, models.NewRecord())

		assert.Error(t, err)
		assert.True(t, patch.IsEmpty())
	})

	t.Run("malformed JSON is reported", func(t *testing.T) {
		fake := &scriptedLLM{reply: `{"patch": {"zoning": "R1"}}`}
		_, err := New(fake).Extract(ctx, addr, evidence, models.NewRecord())
		assert.Error(t, err)
	})
}

func TestFailedExtractionLeavesRecordUnchanged(t *testing.T) {
	fake := &scriptedLLM{reply: "not json"}
	current := models.NewRecord()
	current.Notes = "Official scrape completed."

	patch, err := New(fake).Extract(context.Background(), "addr", evidence, current)
	got := models.SafeMerge(current, patch, err)

	assert.Error(t, err)
	assert.Equal(t, current, got)
}
