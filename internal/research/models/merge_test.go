package models

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMerge(t *testing.T) {
	t.Run("zoning is overwritten only by non-nil values", func(t *testing.T) {
		current := NewRecord()
		current.Zoning.BaseZone = ptr("R1-1")
		current.Zoning.FAR = ptr("3:1")

		got := Merge(current, Patch{Zoning: &ZoningPatch{BaseZone: nil, HeightLimit: ptr("45 ft")}})

		assert.Equal(t, "R1-1", *got.Zoning.BaseZone)
		assert.Equal(t, "45 ft", *got.Zoning.HeightLimit)
		assert.Equal(t, "3:1", *got.Zoning.FAR)
	})

	t.Run("overlays become sorted unique union", func(t *testing.T) {
		current := NewRecord()
		current.Overlays = []string{"HPOZ"}

		got := Merge(current, Patch{Overlays: []string{"CDO", "HPOZ", "Specific Plan"}})

		assert.Equal(t, []string{"CDO", "HPOZ", "Specific Plan"}, got.Overlays)
	})

	t.Run("permits and sources are appended", func(t *testing.T) {
		current := NewRecord()
		current.Permits = []Permit{{ID: ptr("A-1")}}
		current.Sources = []Source{{Name: "ZIMAS", URL: "https://zimas.lacity.org/"}}

		got := Merge(current, Patch{
			Permits: []Permit{{ID: ptr("B-2"), Year: ptr(2019)}},
			Sources: []Source{{Name: "LADBS", URL: "https://ladbs.org/"}},
		})

		require.Len(t, got.Permits, 2)
		assert.Equal(t, "B-2", *got.Permits[1].ID)
		assert.Equal(t, 2019, *got.Permits[1].Year)
		assert.Equal(t, []Source{
			{Name: "ZIMAS", URL: "https://zimas.lacity.org/"},
			{Name: "LADBS", URL: "https://ladbs.org/"},
		}, got.Sources)
	})

	t.Run("notes are joined and trimmed", func(t *testing.T) {
		current := NewRecord()
		current.Notes = "Official scrape completed."

		got := Merge(current, Patch{Notes: ptr("Possible HPOZ review.")})
		assert.Equal(t, "Official scrape completed.\nPossible HPOZ review.", got.Notes)

		fromEmpty := Merge(NewRecord(), Patch{Notes: ptr("  first note ")})
		assert.Equal(t, "first note", fromEmpty.Notes)
	})

	t.Run("does not modify the current record", func(t *testing.T) {
		current := NewRecord()
		current.Zoning.BaseZone = ptr("R1-1")
		current.Overlays = []string{"HPOZ"}
		current.Fields["Assessor"] = ptr("APN 1234")

		got := Merge(current, Patch{Zoning: &ZoningPatch{BaseZone: ptr("C2-1")}, Overlays: []string{"CDO"}})
		*got.Fields["Assessor"] = "changed"

		assert.Equal(t, "R1-1", *current.Zoning.BaseZone)
		assert.Equal(t, []string{"HPOZ"}, current.Overlays)
		assert.Equal(t, "APN 1234", *current.Fields["Assessor"])
	})

	t.Run("blank zoning values do not overwrite known ones", func(t *testing.T) {
		current := NewRecord()
		current.Zoning.BaseZone = ptr("R4")
		current.Zoning.FAR = ptr("3:1")

		got := Merge(current, Patch{Zoning: &ZoningPatch{BaseZone: ptr(""), FAR: ptr("  "), HeightLimit: ptr("")}})

		assert.Equal(t, "R4", *got.Zoning.BaseZone)
		assert.Equal(t, "3:1", *got.Zoning.FAR)
		assert.Nil(t, got.Zoning.HeightLimit)
	})

	t.Run("empty patch leaves the record exactly as it was", func(t *testing.T) {
		current := NewRecord()
		current.Zoning.HeightLimit = ptr("45 ft")
		current.Overlays = []string{"A", "B"}
		current.Notes = "Scraper note\n"

		assert.Equal(t, current, Merge(current, Patch{}))
		assert.Equal(t, current, Merge(current, Patch{Notes: ptr("   ")}))
		assert.Equal(t, current, Merge(current, Patch{Zoning: &ZoningPatch{}}))
	})
}

func TestSafeMerge(t *testing.T) {
	current := NewRecord()
	current.Zoning.BaseZone = ptr("R1-1")

	got := SafeMerge(current, Patch{Zoning: &ZoningPatch{BaseZone: ptr("C2-1")}}, errors.New("malformed patch"))
	assert.Equal(t, current, got)

	got = SafeMerge(current, Patch{Zoning: &ZoningPatch{BaseZone: ptr("C2-1")}}, nil)
	assert.Equal(t, "C2-1", *got.Zoning.BaseZone)
}

// ===
// Merge properties over randomized inputs
// ===

func randomRecord(rng *rand.Rand) Record {
	rec := NewRecord()
	if rng.Intn(2) == 0 {
		rec.Zoning.BaseZone = ptr(fmt.Sprintf("R%d", rng.Intn(5)))
	}
	if rng.Intn(2) == 0 {
		rec.Zoning.HeightLimit = ptr(fmt.Sprintf("%d ft", 30+rng.Intn(40)))
	}
	if rng.Intn(2) == 0 {
		rec.Zoning.FAR = ptr(fmt.Sprintf("%d:1", 1+rng.Intn(4)))
	}
	rec.Overlays = randomOverlays(rng)
	sort.Strings(rec.Overlays)
	rec.Overlays = unionSorted(rec.Overlays, nil)
	for i := rng.Intn(3); i > 0; i-- {
		rec.Permits = append(rec.Permits, Permit{ID: ptr(fmt.Sprintf("P-%d", rng.Intn(100)))})
	}
	rec.Notes = strings.Repeat("n", rng.Intn(4))
	return rec
}

func randomPatch(rng *rand.Rand) Patch {
	p := Patch{Overlays: randomOverlays(rng)}
	if rng.Intn(3) > 0 {
		p.Zoning = &ZoningPatch{}
		if rng.Intn(2) == 0 {
			p.Zoning.BaseZone = ptr(fmt.Sprintf("C%d", rng.Intn(5)))
		}
		if rng.Intn(2) == 0 {
			p.Zoning.HeightLimit = ptr("unlimited")
		}
		if rng.Intn(2) == 0 {
			p.Zoning.FAR = ptr("6:1")
		}
	}
	for i := rng.Intn(3); i > 0; i-- {
		p.Permits = append(p.Permits, Permit{Type: ptr("Bldg-Alter/Repair")})
	}
	if rng.Intn(2) == 0 {
		p.Notes = ptr(" found " + strings.Repeat("x", rng.Intn(3)))
	}
	return p
}

func randomOverlays(rng *rand.Rand) []string {
	pool := []string{"HPOZ", "CDO", "TOC Tier 3", "Specific Plan", "Hillside"}
	var out []string
	for i := rng.Intn(4); i > 0; i-- {
		out = append(out, pool[rng.Intn(len(pool))])
	}
	return out
}

func TestMergeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		r := randomRecord(rng)
		p := randomPatch(rng)
		got := Merge(r, p)

		// Known zoning values never become unknown.
		if r.Zoning.BaseZone != nil {
			require.NotNil(t, got.Zoning.BaseZone)
		}
		if r.Zoning.HeightLimit != nil {
			require.NotNil(t, got.Zoning.HeightLimit)
		}
		if r.Zoning.FAR != nil {
			require.NotNil(t, got.Zoning.FAR)
		}

		// Overlays equal the sorted set union.
		want := unionSorted(r.Overlays, p.Overlays)
		assert.Equal(t, want, got.Overlays)
		assert.True(t, sort.StringsAreSorted(got.Overlays))

		// Counts are additive.
		assert.Len(t, got.Permits, len(r.Permits)+len(p.Permits))
		assert.Len(t, got.Sources, len(r.Sources)+len(p.Sources))

		if p.Notes == nil {
			assert.Equal(t, r.Notes, got.Notes)
		} else {
			assert.Equal(t, strings.TrimSpace(r.Notes+"\n"+*p.Notes), got.Notes)
		}
	}
}

func TestMergeOverlayIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		r := randomRecord(rng)
		p := Patch{Overlays: randomOverlays(rng)}

		once := Merge(r, p)
		twice := Merge(once, p)
		assert.Equal(t, once.Overlays, twice.Overlays)
	}
}
