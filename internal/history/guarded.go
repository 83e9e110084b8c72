package history

import (
	"maps"
	"sync"

	"github.com/kilupskalvis/vhist/internal/models"
)

// CommuneSummary is a detached view of a commune
type CommuneSummary struct {
	Code           string         `json:"code"`
	DateAnnulation string         `json:"date_annulation,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
	Voies          int            `json:"voies"`
}

// Guarded puts a Model behind a single read/write lock.
// The indices and staging sets are only consistent together, so every write
// (a whole batch included) excludes every read. Reads return detached copies.
type Guarded struct {
	mu    sync.RWMutex
	model *Model
}

// NewGuarded wraps m. The caller must not use m directly afterwards.
func NewGuarded(m *Model) *Guarded {
	if m == nil {
		m = New()
	}
	return &Guarded{model: m}
}

// Update runs fn with exclusive access to the model
func (g *Guarded) Update(fn func(m *Model) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.model)
}

// View runs fn with shared access to the model. fn must not mutate it
// nor retain pointers into it.
func (g *Guarded) View(fn func(m *Model) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.model)
}

// Voie returns a copy of the indexed voie
func (g *Guarded) Voie(id string) (*models.Voie, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, err := g.model.Voie(id)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

// Voies returns copies of the commune's voies
func (g *Guarded) Voies(code string) ([]*models.Voie, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	voies, err := g.model.Voies(code)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Voie, len(voies))
	for i, v := range voies {
		out[i] = v.Clone()
	}
	return out, nil
}

// Libelles returns the label history of a voie
func (g *Guarded) Libelles(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model.Libelles(id)
}

// HasCommune reports whether the commune code has been indexed
func (g *Guarded) HasCommune(code string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model.HasCommune(code)
}

// Communes returns a summary of every indexed commune, sorted by code
func (g *Guarded) Communes() []CommuneSummary {
	g.mu.RLock()
	defer g.mu.RUnlock()
	communes := g.model.Communes()
	out := make([]CommuneSummary, len(communes))
	for i, c := range communes {
		out[i] = CommuneSummary{
			Code:           c.Code,
			DateAnnulation: c.DateAnnulation,
			Fields:         maps.Clone(c.Fields),
			Voies:          c.VoieCount(),
		}
	}
	return out
}

// CancelledCommunes returns the pending cancellations
func (g *Guarded) CancelledCommunes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model.CancelledCommunes()
}

// HandledCancelledCommunes returns the acknowledged cancellations
func (g *Guarded) HandledCancelledCommunes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model.HandledCancelledCommunes()
}

// Stats returns the current collection sizes
func (g *Guarded) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model.Stats()
}
