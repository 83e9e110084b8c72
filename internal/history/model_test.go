package history

import (
	"testing"

	"github.com/kilupskalvis/vhist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func communeRec(code string) models.CommuneRecord {
	return models.CommuneRecord{Code: code, Fields: map[string]any{"nom": "Commune " + code}}
}

func cancelledRec(code string) models.CommuneRecord {
	rec := communeRec(code)
	rec.DateAnnulation = "2019-01-01"
	return rec
}

func voieRec(id, code, libelle string) models.VoieRecord {
	return models.VoieRecord{
		ID:          id,
		DateAjout:   "2020-01-01",
		Libelle:     libelle,
		TypeVoie:    "voie",
		CodeCommune: code,
		CodeRivoli:  id[len(id)-4:],
	}
}

// ==================== Commune Tests ====================

func TestUpsertCommune_CreatesOnce(t *testing.T) {
	m := New()

	c1 := m.UpsertCommune(communeRec("01001"))
	c2 := m.UpsertCommune(communeRec("01001"))

	assert.Same(t, c1, c2)
	assert.Len(t, m.Communes(), 1)
	assert.True(t, m.HasCommune("01001"))
	assert.False(t, m.HasCommune("01002"))
}

func TestUpsertCommune_FirstRecordWins(t *testing.T) {
	m := New()

	m.UpsertCommune(models.CommuneRecord{Code: "01001", Fields: map[string]any{"nom": "Ancien"}})
	c := m.UpsertCommune(models.CommuneRecord{Code: "01001", Fields: map[string]any{"nom": "Nouveau"}})

	assert.Equal(t, "Ancien", c.Fields["nom"])
}

func TestUpsertCommune_CopiesFields(t *testing.T) {
	m := New()
	rec := communeRec("01001")

	c := m.UpsertCommune(rec)
	rec.Fields["nom"] = "changed"

	assert.Equal(t, "Commune 01001", c.Fields["nom"])
	assert.Equal(t, 0, c.VoieCount())
}

func TestCommunes_Sorted(t *testing.T) {
	m := New()
	m.UpsertCommune(communeRec("02000"))
	m.UpsertCommune(communeRec("01000"))

	communes := m.Communes()
	require.Len(t, communes, 2)
	assert.Equal(t, "01000", communes[0].Code)
	assert.Equal(t, "02000", communes[1].Code)
}

// ==================== Voie Tests ====================

func TestUpsertVoie_CreatesOnce(t *testing.T) {
	m := New()

	v1 := m.UpsertVoie(voieRec("01001-0005", "01001", "Rue A"), communeRec("01001"))
	v2 := m.UpsertVoie(voieRec("01001-0005", "01001", "Rue B"), communeRec("01001"))

	assert.Same(t, v1, v2)
	assert.Equal(t, []string{"Rue A"}, v2.Libelle)

	voies, err := m.Voies("01001")
	require.NoError(t, err)
	assert.Len(t, voies, 1)
}

func TestUpsertVoie_InitialState(t *testing.T) {
	m := New()

	v := m.UpsertVoie(voieRec("01001-0005", "01001", "Rue A"), communeRec("01001"))

	assert.Equal(t, "01001-0005", v.ID)
	assert.Equal(t, "2020-01-01", v.DateAjout)
	assert.Equal(t, "voie", v.TypeVoie)
	assert.Equal(t, "01001", v.CodeCommune)
	assert.Equal(t, "0005", v.CodeFantoir)
	assert.Equal(t, models.PredecessorUnresolved, v.Predecessor.State)
	assert.Len(t, m.AddedVoies(), 1)
}

func TestUpsertVoie_CreatesOwningCommune(t *testing.T) {
	m := New()

	m.UpsertVoie(voieRec("01001-0005", "01001", "Rue A"), communeRec("01001"))

	require.True(t, m.HasCommune("01001"))
	c, err := m.Commune("01001")
	require.NoError(t, err)
	assert.True(t, c.HasVoie("01001-0005"))
}

func TestUpsertVoie_CancelledCommuneRegistered(t *testing.T) {
	m := New()

	m.UpsertVoie(voieRec("01001-0005", "01001", "Rue A"), cancelledRec("01001"))

	assert.Equal(t, []string{"01001"}, m.CancelledCommunes())
}

func TestVoies_SetEquality(t *testing.T) {
	m := New()
	b := m.UpsertVoie(voieRec("01001-000B", "01001", "Rue B"), communeRec("01001"))
	a := m.UpsertVoie(voieRec("01001-000A", "01001", "Rue A"), communeRec("01001"))

	voies, err := m.Voies("01001")
	require.NoError(t, err)
	assert.ElementsMatch(t, []*models.Voie{a, b}, voies)
}

func TestVoies_Snapshot(t *testing.T) {
	m := New()
	m.UpsertVoie(voieRec("01001-000A", "01001", "Rue A"), communeRec("01001"))

	voies, err := m.Voies("01001")
	require.NoError(t, err)
	m.UpsertVoie(voieRec("01001-000B", "01001", "Rue B"), communeRec("01001"))

	assert.Len(t, voies, 1)
}

func TestVoies_UnknownCommune(t *testing.T) {
	m := New()

	_, err := m.Voies("99999")
	assert.ErrorIs(t, err, ErrUnknownCommune)
}

func TestVoie_Unknown(t *testing.T) {
	m := New()

	_, err := m.Voie("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownVoie)
}

func TestObserveLibelle(t *testing.T) {
	m := New()
	v := m.UpsertVoie(voieRec("01001-0005", "01001", "Rue A"), communeRec("01001"))

	require.NoError(t, m.ObserveLibelle(v.ID, "Rue A"))
	require.NoError(t, m.ObserveLibelle(v.ID, ""))
	require.NoError(t, m.ObserveLibelle(v.ID, "Rue B"))
	require.NoError(t, m.ObserveLibelle(v.ID, "Rue A"))

	assert.Equal(t, []string{"Rue A", "Rue B", "Rue A"}, v.Libelle)
	assert.ErrorIs(t, m.ObserveLibelle("nonexistent", "Rue"), ErrUnknownVoie)
}

// ==================== Cancellation Tests ====================

func TestAddCancelledCommune_Idempotent(t *testing.T) {
	m := New()

	m.AddCancelledCommune("01001")
	m.AddCancelledCommune("01001")

	assert.Equal(t, []string{"01001"}, m.CancelledCommunes())
}

func TestUpsertCommune_CancelledRegisteredEvenIfKnown(t *testing.T) {
	m := New()

	m.UpsertCommune(communeRec("01001"))
	m.UpsertCommune(cancelledRec("01001"))

	assert.Equal(t, []string{"01001"}, m.CancelledCommunes())
}

func TestUpsertCommune_ActiveNotRegistered(t *testing.T) {
	m := New()

	m.UpsertCommune(communeRec("01001"))

	assert.Empty(t, m.CancelledCommunes())
}

func TestStats(t *testing.T) {
	m := New()
	m.UpsertVoie(voieRec("01001-0005", "01001", "Rue A"), cancelledRec("01001"))
	m.UpsertCommune(communeRec("01002"))

	assert.Equal(t, Stats{Communes: 2, Voies: 1, AddedVoies: 1, PendingCancelled: 1}, m.Stats())

	m.Cleanup()
	assert.Equal(t, Stats{Communes: 2, Voies: 1, HandledCancelled: 1}, m.Stats())
}
