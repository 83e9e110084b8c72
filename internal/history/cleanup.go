package history

import (
	"sort"

	"github.com/kilupskalvis/vhist/internal/models"
)

// AddCancelledCommune registers a cancellation as pending for the current batch
func (m *Model) AddCancelledCommune(code string) {
	m.cancelled[code] = struct{}{}
}

// CancelledCommunes returns the pending cancellations, sorted
func (m *Model) CancelledCommunes() []string {
	return sortedKeys(m.cancelled)
}

// HandledCancelledCommunes returns the cancellations acknowledged by past cleanups, sorted
func (m *Model) HandledCancelledCommunes() []string {
	return sortedKeys(m.handledCancelled)
}

// CleanupResult reports what a Cleanup settled
type CleanupResult struct {
	SettledNone  int // voies settled as having no predecessor
	Linked       int // voies of the batch that had been linked
	Acknowledged int // cancellations moved to handled
}

// Cleanup closes the current batch. Voies of the batch nobody linked are settled
// as having no predecessor, and pending cancellations become handled so a later
// record for the same cancelled commune does not raise them again.
//
// It must run after the batch's upserts and linking, and before the next batch starts.
func (m *Model) Cleanup() CleanupResult {
	var res CleanupResult

	for _, v := range m.added {
		if v.Predecessor.IsSettled() {
			if v.Predecessor.IsResolved() {
				res.Linked++
			}
			continue
		}
		v.Predecessor = models.NoPredecessor()
		res.SettledNone++
	}
	clear(m.added)

	for code := range m.cancelled {
		m.handledCancelled[code] = struct{}{}
		res.Acknowledged++
	}
	clear(m.cancelled)

	return res
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
