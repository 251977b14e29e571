package registry

import (
	"zonescout/internal/evidence/registry/providers"
	"zonescout/internal/evidence/registry/providers/zimas"
	"zonescout/internal/research/models"
)

// toSnapshot converts parcel evidence into a snapshot. Every panel the
// provider declares appears in Fields, nil when it was not found.
func toSnapshot(subject models.Subject, caps providers.Capabilities, ev *providers.Evidence) *models.Snapshot {
	snap := &models.Snapshot{
		Address:   subject.Address,
		Fields:    make(map[string]*string, len(caps.Fields)),
		Notes:     zimas.DefaultNotes,
		Sources:   []models.Source{},
		Evidence:  []models.EvidenceItem{},
		FetchedAt: ev.CheckedAt,
	}

	for _, field := range caps.Fields {
		snap.Fields[field.FieldName] = panelValue(ev.Data[field.FieldName])
	}
	if notes, ok := ev.Data[zimas.DataNotes].(string); ok && notes != "" {
		snap.Notes = notes
	}
	if sources, ok := ev.Data[zimas.DataSources].([]models.Source); ok {
		snap.Sources = append(snap.Sources, sources...)
	}
	if items, ok := ev.Data[zimas.DataEvidence].([]models.EvidenceItem); ok {
		snap.Evidence = append(snap.Evidence, items...)
	}
	return snap
}

func panelValue(v any) *string {
	switch val := v.(type) {
	case *string:
		if val == nil {
			return nil
		}
		s := *val
		return &s
	case string:
		if val == "" {
			return nil
		}
		return &val
	default:
		return nil
	}
}
