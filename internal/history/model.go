// Package history maintains the in-memory index of communes and voies fed
// from the change feed, their label history, and the cancelled communes seen
// so far. State accumulated during a batch stays tentative until Cleanup.
package history

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilupskalvis/vhist/internal/models"
)

var (
	ErrUnknownVoie        = errors.New("unknown voie")
	ErrUnknownCommune     = errors.New("unknown commune")
	ErrCyclicPredecessor  = errors.New("cyclic predecessor chain")
	ErrPredecessorSettled = errors.New("predecessor already settled")
)

// Model owns the commune and voie indices plus the per-batch staging sets.
// It is not safe for concurrent use; see Guarded.
type Model struct {
	communes map[string]*models.Commune
	voies    map[string]*models.Voie

	// staging, reconciled by Cleanup
	added     map[string]*models.Voie
	cancelled map[string]struct{}

	// cancellations acknowledged by a previous Cleanup; never shrinks
	handledCancelled map[string]struct{}
}

// Stats is a point-in-time summary of the model's collections
type Stats struct {
	Communes         int `json:"communes"`
	Voies            int `json:"voies"`
	AddedVoies       int `json:"added_voies"`
	PendingCancelled int `json:"pending_cancelled"`
	HandledCancelled int `json:"handled_cancelled"`
}

// New creates an empty model
func New() *Model {
	return &Model{
		communes:         make(map[string]*models.Commune),
		voies:            make(map[string]*models.Voie),
		added:            make(map[string]*models.Voie),
		cancelled:        make(map[string]struct{}),
		handledCancelled: make(map[string]struct{}),
	}
}

// UpsertCommune returns the commune indexed under rec.Code, creating it on first sight.
// A cancelled record is registered as pending unless that cancellation was already handled.
func (m *Model) UpsertCommune(rec models.CommuneRecord) *models.Commune {
	if rec.IsCancelled() {
		if _, handled := m.handledCancelled[rec.Code]; !handled {
			m.AddCancelledCommune(rec.Code)
		}
	}

	if c, ok := m.communes[rec.Code]; ok {
		return c
	}

	c := models.NewCommune(rec)
	m.communes[rec.Code] = c
	return c
}

// UpsertVoie returns the voie indexed under rec.ID, creating it on first sight.
// A new voie joins the current batch with an unresolved predecessor and is attached
// to its owning commune, which is created from commune if needed.
func (m *Model) UpsertVoie(rec models.VoieRecord, commune models.CommuneRecord) *models.Voie {
	if v, ok := m.voies[rec.ID]; ok {
		return v
	}

	v := models.NewVoie(rec)
	m.voies[v.ID] = v
	m.added[v.ID] = v
	m.UpsertCommune(commune).AddVoie(v)
	return v
}

// ObserveLibelle records a label seen for an indexed voie.
// Repeating the latest label is a no-op; empty labels are ignored.
func (m *Model) ObserveLibelle(id, libelle string) error {
	v, ok := m.voies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVoie, id)
	}
	if libelle == "" || v.LatestLibelle() == libelle {
		return nil
	}
	v.Libelle = append(v.Libelle, libelle)
	return nil
}

// Voie returns the indexed voie
func (m *Model) Voie(id string) (*models.Voie, error) {
	v, ok := m.voies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVoie, id)
	}
	return v, nil
}

// Commune returns the indexed commune
func (m *Model) Commune(code string) (*models.Commune, error) {
	c, ok := m.communes[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommune, code)
	}
	return c, nil
}

// Voies returns a snapshot of the commune's voies
func (m *Model) Voies(code string) ([]*models.Voie, error) {
	c, err := m.Commune(code)
	if err != nil {
		return nil, err
	}
	return c.Voies(), nil
}

// HasCommune reports whether the commune code has been indexed
func (m *Model) HasCommune(code string) bool {
	_, ok := m.communes[code]
	return ok
}

// Communes returns every indexed commune, sorted by code
func (m *Model) Communes() []*models.Commune {
	out := make([]*models.Commune, 0, len(m.communes))
	for _, c := range m.communes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// AddedVoies returns the voies created since the last Cleanup, sorted by id.
// This is the work list of the predecessor linker.
func (m *Model) AddedVoies() []*models.Voie {
	out := make([]*models.Voie, 0, len(m.added))
	for _, v := range m.added {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats returns the current collection sizes
func (m *Model) Stats() Stats {
	return Stats{
		Communes:         len(m.communes),
		Voies:            len(m.voies),
		AddedVoies:       len(m.added),
		PendingCancelled: len(m.cancelled),
		HandledCancelled: len(m.handledCancelled),
	}
}
