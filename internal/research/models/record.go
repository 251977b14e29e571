package models

import "time"

// Zoning holds the three zoning attributes a brief needs. Nil means unknown.
type Zoning struct {
	BaseZone    *string `json:"base_zone"`
	HeightLimit *string `json:"height_limit"`
	FAR         *string `json:"far"`
}

// Permit is a single permit entry. Every field is optional.
type Permit struct {
	ID     *string `json:"id"`
	Type   *string `json:"type"`
	Status *string `json:"status"`
	Year   *int    `json:"year"`
}

// IsEmpty reports whether the permit carries no facts at all.
func (p Permit) IsEmpty() bool {
	return p.ID == nil && p.Type == nil && p.Status == nil && p.Year == nil
}

// Source is a citation for a fact in the record.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Record is the structured knowledge accumulated about one property.
// Registry panels live in Fields keyed by panel name; a panel that was not
// found is present with a nil value.
type Record struct {
	Fields      map[string]*string `json:"fields"`
	Zoning      Zoning             `json:"zoning"`
	Overlays    []string           `json:"overlays"`
	Permits     []Permit           `json:"permits"`
	Notes       string             `json:"notes"`
	Sources     []Source           `json:"sources"`
	StreetName  string             `json:"street_name,omitempty"`
	HouseNumber string             `json:"house_number,omitempty"`
}

// NewRecord returns an empty record with non-nil collections.
func NewRecord() Record {
	return Record{
		Fields:   map[string]*string{},
		Overlays: []string{},
		Permits:  []Permit{},
		Sources:  []Source{},
	}
}

// SeedRecord is the degraded-start record used when the registry is
// unreachable: empty apart from the subject's address parts.
func SeedRecord(subject Subject) Record {
	rec := NewRecord()
	rec.StreetName = subject.StreetName
	rec.HouseNumber = subject.HouseNumber
	return rec
}

// RecordFromSnapshot seeds a record from the registry snapshot.
func RecordFromSnapshot(snap *Snapshot) Record {
	rec := NewRecord()
	if snap == nil {
		return rec
	}
	for name, value := range snap.Fields {
		rec.Fields[name] = cloneString(value)
	}
	rec.Notes = snap.Notes
	rec.Sources = append(rec.Sources, snap.Sources...)
	return rec
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{
		Fields: make(map[string]*string, len(r.Fields)),
		Zoning: Zoning{
			BaseZone:    cloneString(r.Zoning.BaseZone),
			HeightLimit: cloneString(r.Zoning.HeightLimit),
			FAR:         cloneString(r.Zoning.FAR),
		},
		Overlays:    append([]string{}, r.Overlays...),
		Permits:     make([]Permit, 0, len(r.Permits)),
		Notes:       r.Notes,
		Sources:     append([]Source{}, r.Sources...),
		StreetName:  r.StreetName,
		HouseNumber: r.HouseNumber,
	}
	for k, v := range r.Fields {
		out.Fields[k] = cloneString(v)
	}
	for _, p := range r.Permits {
		out.Permits = append(out.Permits, Permit{
			ID:     cloneString(p.ID),
			Type:   cloneString(p.Type),
			Status: cloneString(p.Status),
			Year:   cloneInt(p.Year),
		})
	}
	return out
}

// Gap names used by MissingFields.
const (
	GapBaseZone    = "zoning.base_zone"
	GapHeightLimit = "zoning.height_limit"
	GapFAR         = "zoning.far"
	GapOverlays    = "overlays"
	GapPermits     = "permits"
)

// MissingFields lists the research targets that are still unknown.
func (r Record) MissingFields() []string {
	var gaps []string
	if isBlank(r.Zoning.BaseZone) {
		gaps = append(gaps, GapBaseZone)
	}
	if isBlank(r.Zoning.HeightLimit) {
		gaps = append(gaps, GapHeightLimit)
	}
	if isBlank(r.Zoning.FAR) {
		gaps = append(gaps, GapFAR)
	}
	if len(r.Overlays) == 0 {
		gaps = append(gaps, GapOverlays)
	}
	if len(r.Permits) == 0 {
		gaps = append(gaps, GapPermits)
	}
	return gaps
}

// Snapshot is what the official registry returned for a subject.
type Snapshot struct {
	Address   string             `json:"address"`
	Fields    map[string]*string `json:"fields"`
	Notes     string             `json:"notes"`
	Sources   []Source           `json:"sources"`
	Evidence  []EvidenceItem     `json:"evidence"`
	FetchedAt time.Time          `json:"fetched_at"`
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
