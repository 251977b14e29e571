package models

import (
	"sort"
	"strings"
)

// ZoningPatch carries zoning values found in evidence. Nil means "not found"
// and never overwrites a known value.
type ZoningPatch struct {
	BaseZone    *string
	HeightLimit *string
	FAR         *string
}

// Patch is the partial update extracted from one round of evidence.
type Patch struct {
	Zoning   *ZoningPatch
	Overlays []string
	Permits  []Permit
	Notes    *string
	Sources  []Source
}

// IsEmpty reports whether applying the patch would change nothing.
func (p Patch) IsEmpty() bool {
	zoningEmpty := p.Zoning == nil ||
		(p.Zoning.BaseZone == nil && p.Zoning.HeightLimit == nil && p.Zoning.FAR == nil)
	notesEmpty := p.Notes == nil || strings.TrimSpace(*p.Notes) == ""
	return zoningEmpty && notesEmpty &&
		len(p.Overlays) == 0 && len(p.Permits) == 0 && len(p.Sources) == 0
}

// Merge applies a patch to the current record and returns the new record.
// The current record is not modified.
//
// Zoning keys are overwritten only by non-nil, non-blank patch values.
// Overlays become the sorted, de-duplicated union. Permits and sources are
// appended. Non-blank patch notes are joined with a newline and trimmed.
func Merge(current Record, patch Patch) Record {
	next := current.Clone()

	if z := patch.Zoning; z != nil {
		overwrite(&next.Zoning.BaseZone, z.BaseZone)
		overwrite(&next.Zoning.HeightLimit, z.HeightLimit)
		overwrite(&next.Zoning.FAR, z.FAR)
	}

	next.Overlays = unionSorted(next.Overlays, patch.Overlays)

	for _, p := range patch.Permits {
		next.Permits = append(next.Permits, Permit{
			ID:     cloneString(p.ID),
			Type:   cloneString(p.Type),
			Status: cloneString(p.Status),
			Year:   cloneInt(p.Year),
		})
	}

	if patch.Notes != nil && strings.TrimSpace(*patch.Notes) != "" {
		next.Notes = strings.TrimSpace(next.Notes + "\n" + *patch.Notes)
	}

	next.Sources = append(next.Sources, patch.Sources...)
	return next
}

// SafeMerge merges unless the patch could not be produced, in which case the
// current record is returned unchanged.
func SafeMerge(current Record, patch Patch, patchErr error) Record {
	if patchErr != nil {
		return current
	}
	return Merge(current, patch)
}

// overwrite replaces *dst only with a known, non-blank value.
func overwrite(dst **string, v *string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return
	}
	*dst = cloneString(v)
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
