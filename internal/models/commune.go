// Package models defines the entities indexed by vhist (communes and voies),
// the normalized records they are built from, and the feed batches that carry them.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Record keys with a meaning of their own. Every other key is passed through.
const (
	FieldCommuneID      = "id"
	FieldDateAnnulation = "dateAnnulation"
)

// CommuneRecord is a normalized commune record as produced by the feed
type CommuneRecord struct {
	Code           string
	DateAnnulation string         // empty when the commune is still active
	Fields         map[string]any // pass-through attributes (nom, type, ...)
}

// CommuneRecordFromMap builds a record from a decoded document entry.
// The "id" and "dateAnnulation" keys are lifted out, everything else is kept as is.
func CommuneRecordFromMap(m map[string]any) CommuneRecord {
	rec := CommuneRecord{Fields: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case FieldCommuneID:
			rec.Code = stringValue(v)
		case FieldDateAnnulation:
			rec.DateAnnulation = stringValue(v)
		default:
			rec.Fields[k] = v
		}
	}
	return rec
}

// ToMap flattens the record back into its document shape
func (r CommuneRecord) ToMap() map[string]any {
	m := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[FieldCommuneID] = r.Code
	if r.DateAnnulation != "" {
		m[FieldDateAnnulation] = r.DateAnnulation
	}
	return m
}

// IsCancelled reports whether the record signals a merged or dissolved commune
func (r CommuneRecord) IsCancelled() bool {
	return r.DateAnnulation != ""
}

// MarshalJSON encodes the record in its flat document shape.
func (r CommuneRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

// UnmarshalJSON decodes a flat document entry.
func (r *CommuneRecord) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = CommuneRecordFromMap(m)
	return nil
}

// Commune is the indexed entity for one commune code.
// Its pass-through fields are frozen at creation; only the voies set grows.
type Commune struct {
	Code           string
	DateAnnulation string
	Fields         map[string]any
	voies          map[string]*Voie
}

// NewCommune creates a commune from its first observed record
func NewCommune(rec CommuneRecord) *Commune {
	fields := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	return &Commune{
		Code:           rec.Code,
		DateAnnulation: rec.DateAnnulation,
		Fields:         fields,
		voies:          make(map[string]*Voie),
	}
}

// AddVoie adds a voie to the commune's set. Adding the same voie twice is a no-op.
func (c *Commune) AddVoie(v *Voie) {
	c.voies[v.ID] = v
}

// HasVoie reports whether the voie belongs to the commune
func (c *Commune) HasVoie(id string) bool {
	_, ok := c.voies[id]
	return ok
}

// VoieCount returns the size of the voies set
func (c *Commune) VoieCount() int {
	return len(c.voies)
}

// Voies returns a copy of the voies set, sorted by id.
// The order is a convenience for callers and output, not part of the set semantics.
func (c *Commune) Voies() []*Voie {
	out := make([]*Voie, 0, len(c.voies))
	for _, v := range c.voies {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// stringValue renders scalar document values as strings.
// YAML decodes unquoted dates into time.Time, which is rendered back as a date.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(t)
	}
}
