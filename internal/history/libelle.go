package history

import (
	"fmt"

	"github.com/kilupskalvis/vhist/internal/models"
)

// Libelles returns the full label history of a voie: the labels of its oldest
// ancestor first, then each successor's, down to the voie itself. Repeated labels
// keep their first position only.
func (m *Model) Libelles(id string) ([]string, error) {
	chain, err := m.chain(id)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, l := range chain[i].Libelle {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out, nil
}

// chain walks the predecessor links starting at id and returns the voies visited,
// the voie itself first. Unresolved and none both end the walk.
func (m *Model) chain(id string) ([]*models.Voie, error) {
	v, ok := m.voies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVoie, id)
	}

	visited := map[string]struct{}{v.ID: {}}
	chain := []*models.Voie{v}
	for v.Predecessor.IsResolved() {
		next, ok := m.voies[v.Predecessor.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s (predecessor of %s)", ErrUnknownVoie, v.Predecessor.ID, v.ID)
		}
		if _, loop := visited[next.ID]; loop {
			return nil, fmt.Errorf("%w: %s revisited from %s", ErrCyclicPredecessor, next.ID, id)
		}
		visited[next.ID] = struct{}{}
		chain = append(chain, next)
		v = next
	}
	return chain, nil
}

// SetPredecessor links a voie of the current batch to the voie it continues.
// The link is refused when it would close a cycle, and once the voie has been settled.
func (m *Model) SetPredecessor(id, predecessorID string) error {
	v, err := m.unsettled(id)
	if err != nil {
		return err
	}
	if _, ok := m.voies[predecessorID]; !ok {
		return fmt.Errorf("%w: %s (predecessor of %s)", ErrUnknownVoie, predecessorID, id)
	}

	ancestors, err := m.chain(predecessorID)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if a.ID == id {
			return fmt.Errorf("%w: linking %s to %s", ErrCyclicPredecessor, id, predecessorID)
		}
	}

	v.Predecessor = models.ResolvedTo(predecessorID)
	return nil
}

// SetNoPredecessor settles a voie of the current batch as having no predecessor
// before Cleanup would do so.
func (m *Model) SetNoPredecessor(id string) error {
	v, err := m.unsettled(id)
	if err != nil {
		return err
	}
	v.Predecessor = models.NoPredecessor()
	return nil
}

func (m *Model) unsettled(id string) (*models.Voie, error) {
	v, ok := m.voies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVoie, id)
	}
	if v.Predecessor.IsSettled() {
		return nil, fmt.Errorf("%w: %s is %s", ErrPredecessorSettled, id, v.Predecessor.State)
	}
	return v, nil
}
