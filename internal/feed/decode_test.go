package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilupskalvis/vhist/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonBatch = `{
  "communes": [
    {"id": "01001", "nom": "L'Abergement-Clémenciat"},
    {"id": "01002", "nom": "L'Abergement-de-Varey", "dateAnnulation": "2019-01-01"}
  ],
  "voies": [
    {"hid": "01001-0005", "dateAjout": "2020-01-01", "libelle": "Rue A", "typeVoie": "voie", "codeCommune": "01001", "codeRivoli": "0005"},
    {"hid": "01003-0010", "libelle": "Rue B", "codeCommune": "01003"}
  ],
  "predecesseurs": [
    {"hid": "01003-0010", "predecesseur": "01001-0005"},
    {"hid": "01001-0005"}
  ]
}`

const yamlBatch = `
communes:
  - id: "01001"
    nom: L'Abergement-Clémenciat
  - id: "01002"
    dateAnnulation: 2019-01-01
voies:
  - hid: 01001-0005
    dateAjout: "2020-01-01"
    libelle: Rue A
    codeCommune: "01001"
predecesseurs: []
`

func TestDecode_JSON(t *testing.T) {
	b, err := Decode(strings.NewReader(jsonBatch), FormatJSON)
	require.NoError(t, err)

	require.Len(t, b.Communes, 2)
	assert.Equal(t, "01001", b.Communes[0].Code)
	assert.Equal(t, "L'Abergement-Clémenciat", b.Communes[0].Fields["nom"])
	assert.False(t, b.Communes[0].IsCancelled())
	assert.Equal(t, "2019-01-01", b.Communes[1].DateAnnulation)

	require.Len(t, b.Voies, 2)
	assert.Equal(t, "01001-0005", b.Voies[0].Voie.ID)
	assert.Equal(t, "0005", b.Voies[0].Voie.CodeRivoli)
	assert.Equal(t, "L'Abergement-Clémenciat", b.Voies[0].Commune.Fields["nom"])

	// commune absent from the document
	assert.Equal(t, "01003", b.Voies[1].Commune.Code)
	assert.Empty(t, b.Voies[1].Commune.Fields)

	require.Len(t, b.Links, 2)
	assert.Equal(t, "01001-0005", b.Links[0].Predecessor)
	assert.Equal(t, "", b.Links[1].Predecessor)
	assert.NotEmpty(t, b.ID)
}

func TestDecode_YAML(t *testing.T) {
	b, err := Decode(strings.NewReader(yamlBatch), FormatYAML)
	require.NoError(t, err)

	require.Len(t, b.Communes, 2)
	assert.Equal(t, "01001", b.Communes[0].Code)
	// unquoted YAML date
	assert.Equal(t, "2019-01-01", b.Communes[1].DateAnnulation)

	require.Len(t, b.Voies, 1)
	assert.Equal(t, "Rue A", b.Voies[0].Voie.Libelle)
	assert.Empty(t, b.Links)
}

// INSEE codes of departments 01 to 09, unquoted
const yamlZeroPaddedCodes = `
communes:
  - id: 01001
    nom: L'Abergement-Clémenciat
  - id: 09001
    nom: Aigues-Juntes
    dateAnnulation: 2019-01-01
voies:
  - hid: 01001-0005
    libelle: Rue A
    codeCommune: 01001
  - hid: 09001-0010
    libelle: Rue B
    codeCommune: 09001
`

func TestDecode_YAMLKeepsZeroPaddedCodes(t *testing.T) {
	b, err := Decode(strings.NewReader(yamlZeroPaddedCodes), FormatYAML)
	require.NoError(t, err)

	require.Len(t, b.Communes, 2)
	assert.Equal(t, "01001", b.Communes[0].Code)
	assert.Equal(t, "09001", b.Communes[1].Code)
	assert.Equal(t, "2019-01-01", b.Communes[1].DateAnnulation)

	require.Len(t, b.Voies, 2)
	assert.Equal(t, "L'Abergement-Clémenciat", b.Voies[0].Commune.Fields["nom"])
	assert.Equal(t, "Aigues-Juntes", b.Voies[1].Commune.Fields["nom"])

	m := history.New()
	for _, rec := range b.Communes {
		m.UpsertCommune(rec)
	}
	for _, e := range b.Voies {
		m.UpsertVoie(e.Voie, e.Commune)
	}
	assert.Equal(t, 2, m.Stats().Communes)
	assert.Equal(t, []string{"09001"}, m.CancelledCommunes())

	voies, err := m.Voies("01001")
	require.NoError(t, err)
	require.Len(t, voies, 1)
	assert.Equal(t, "01001-0005", voies[0].ID)
}

func TestDecode_YAMLCommuneNotAMapping(t *testing.T) {
	_, err := Decode(strings.NewReader("communes:\n  - 01001\n"), FormatYAML)
	assert.Error(t, err)
}

func TestDecode_EmptyYAML(t *testing.T) {
	b, err := Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 0, b.RecordCount())
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode(strings.NewReader("{}"), Format("csv"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("batch.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = FormatFromPath("batch.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("batch.csv")
	assert.Error(t, err)
}

func TestDecodeFile_SetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2020-01.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonBatch), 0644))

	b, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2020-01.json", b.Source)
}
