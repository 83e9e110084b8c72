package models

import (
	"time"

	"github.com/google/uuid"
)

// VoieEntry pairs a voie record with the record of the commune owning it
type VoieEntry struct {
	Voie    VoieRecord    `json:"voie"`
	Commune CommuneRecord `json:"commune"`
}

// Link is a predecessor decision made by the external linker.
// An empty Predecessor declares the voie as having no predecessor.
type Link struct {
	ID          string `json:"hid" yaml:"hid"`
	Predecessor string `json:"predecesseur,omitempty" yaml:"predecesseur,omitempty"`
}

// Batch is one round of ingestion: records, then links, then cleanup
type Batch struct {
	Seq        uint64          `json:"seq"`
	ID         string          `json:"id"`
	Source     string          `json:"source,omitempty"`
	AppendedAt time.Time       `json:"appended_at"`
	Communes   []CommuneRecord `json:"communes,omitempty"`
	Voies      []VoieEntry     `json:"voies,omitempty"`
	Links      []Link          `json:"links,omitempty"`
}

// NewBatch creates an empty batch with a fresh id
func NewBatch(source string) *Batch {
	return &Batch{
		ID:     uuid.New().String(),
		Source: source,
	}
}

// ShortID returns a shortened batch ID (first 8 characters)
func (b *Batch) ShortID() string {
	if len(b.ID) > 8 {
		return b.ID[:8]
	}
	return b.ID
}

// RecordCount returns the number of commune and voie records in the batch
func (b *Batch) RecordCount() int {
	return len(b.Communes) + len(b.Voies)
}

// BatchHeader summarizes a journaled batch without its records
type BatchHeader struct {
	Seq        uint64    `json:"seq"`
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	AppendedAt time.Time `json:"appended_at"`
	Communes   int       `json:"communes"`
	Voies      int       `json:"voies"`
	Links      int       `json:"links"`
}

// Header returns the batch summary
func (b *Batch) Header() BatchHeader {
	return BatchHeader{
		Seq:        b.Seq,
		ID:         b.ID,
		Source:     b.Source,
		AppendedAt: b.AppendedAt,
		Communes:   len(b.Communes),
		Voies:      len(b.Voies),
		Links:      len(b.Links),
	}
}
