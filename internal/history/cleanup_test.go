package history

import (
	"sync"
	"testing"

	"github.com/kilupskalvis/vhist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup_SettlesUnlinkedVoies(t *testing.T) {
	m := New()
	a := m.UpsertVoie(voieRec("01001-000A", "01001", "Rue A"), communeRec("01001"))
	b := m.UpsertVoie(voieRec("01001-000B", "01001", "Rue B"), communeRec("01001"))
	require.NoError(t, m.SetPredecessor(b.ID, a.ID))

	res := m.Cleanup()

	assert.Equal(t, models.PredecessorNone, a.Predecessor.State)
	assert.Equal(t, models.ResolvedTo(a.ID), b.Predecessor)
	assert.Equal(t, CleanupResult{SettledNone: 1, Linked: 1}, res)
	assert.Empty(t, m.AddedVoies())
}

func TestCleanup_OnlyTouchesCurrentBatch(t *testing.T) {
	m := New()
	a := m.UpsertVoie(voieRec("01001-000A", "01001", "Rue A"), communeRec("01001"))
	m.Cleanup()

	b := m.UpsertVoie(voieRec("01001-000B", "01001", "Rue B"), communeRec("01001"))
	assert.Equal(t, []*models.Voie{b}, m.AddedVoies())
	require.NoError(t, m.SetPredecessor(b.ID, a.ID))
	m.Cleanup()

	libelles, err := m.Libelles(b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rue A", "Rue B"}, libelles)
}

func TestCleanup_EmptyIsNoop(t *testing.T) {
	m := New()

	assert.Equal(t, CleanupResult{}, m.Cleanup())
	assert.Equal(t, CleanupResult{}, m.Cleanup())
	assert.Equal(t, Stats{}, m.Stats())
}

func TestCleanup_CancellationRaisedOnce(t *testing.T) {
	m := New()
	rec := cancelledRec("01001")

	m.UpsertCommune(rec)
	assert.Equal(t, []string{"01001"}, m.CancelledCommunes())

	res := m.Cleanup()
	assert.Equal(t, 1, res.Acknowledged)
	assert.Empty(t, m.CancelledCommunes())

	m.UpsertCommune(rec)
	assert.Empty(t, m.CancelledCommunes())
	m.Cleanup()
	assert.Empty(t, m.CancelledCommunes())
	assert.Equal(t, []string{"01001"}, m.HandledCancelledCommunes())
}

func TestCleanup_ExplicitCancellationStillAllowed(t *testing.T) {
	m := New()
	m.UpsertCommune(cancelledRec("01001"))
	m.Cleanup()

	m.AddCancelledCommune("01001")

	assert.Equal(t, []string{"01001"}, m.CancelledCommunes())
}

// ==================== Guarded Tests ====================

func TestGuarded_ReadsAreDetached(t *testing.T) {
	g := NewGuarded(nil)
	require.NoError(t, g.Update(func(m *Model) error {
		m.UpsertVoie(voieRec("01001-000A", "01001", "Rue A"), communeRec("01001"))
		return nil
	}))

	v, err := g.Voie("01001-000A")
	require.NoError(t, err)
	v.Libelle[0] = "changed"

	libelles, err := g.Libelles("01001-000A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rue A"}, libelles)

	communes := g.Communes()
	require.Len(t, communes, 1)
	assert.Equal(t, 1, communes[0].Voies)
}

func TestGuarded_ConcurrentReadersAndWriter(t *testing.T) {
	g := NewGuarded(New())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = g.Update(func(m *Model) error {
				m.UpsertVoie(voieRec("01001-"+string(rune('A'+i%26))+"000", "01001", "Rue"), communeRec("01001"))
				m.Cleanup()
				return nil
			})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				g.Communes()
				_, _ = g.Voies("01001")
				g.Stats()
			}
		}()
	}
	wg.Wait()

	voies, err := g.Voies("01001")
	require.NoError(t, err)
	assert.Len(t, voies, 26)
}
