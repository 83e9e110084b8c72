// Package feed decodes batch documents produced by the ingestion side
// (normalized commune and voie records plus predecessor links) into batches.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/vhist/internal/models"
	"gopkg.in/yaml.v3"
)

// Format of a batch document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// document is the on-disk shape of a batch
type document struct {
	Communes      []communeEntry      `json:"communes" yaml:"communes"`
	Voies         []models.VoieRecord `json:"voies" yaml:"voies"`
	Predecesseurs []models.Link       `json:"predecesseurs" yaml:"predecesseurs"`
}

// communeEntry is one free-form commune record of a document
type communeEntry map[string]any

// UnmarshalYAML keeps the commune code and cancellation date as written.
// Resolved as plain scalars, an unquoted 01001 would become the octal int 513.
func (e *communeEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: commune entry is not a mapping", node.Line)
	}

	m := make(communeEntry, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if isVerbatimKey(key) && val.Kind == yaml.ScalarNode {
			if val.ShortTag() == "!!null" {
				m[key] = nil
			} else {
				m[key] = val.Value
			}
			continue
		}

		var v any
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("line %d: commune field %q: %w", val.Line, key, err)
		}
		m[key] = v
	}
	*e = m
	return nil
}

func isVerbatimKey(key string) bool {
	return key == models.FieldCommuneID || key == models.FieldDateAnnulation
}

// FormatFromPath picks the document format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported batch file extension: %q", filepath.Ext(path))
	}
}

// DecodeFile reads a batch document from disk
func DecodeFile(path string) (*models.Batch, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	b, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.Source = filepath.Base(path)
	return b, nil
}

// Decode reads one batch document
func Decode(r io.Reader, format Format) (*models.Batch, error) {
	var doc document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml batch: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported batch format: %q", format)
	}
	return doc.toBatch(), nil
}

// toBatch pairs every voie with its commune record. A voie whose commune is not
// listed in the same document gets a bare record carrying only the code.
func (d *document) toBatch() *models.Batch {
	b := models.NewBatch("")

	byCode := make(map[string]models.CommuneRecord, len(d.Communes))
	for _, m := range d.Communes {
		rec := models.CommuneRecordFromMap(m)
		b.Communes = append(b.Communes, rec)
		if _, ok := byCode[rec.Code]; !ok {
			byCode[rec.Code] = rec
		}
	}

	for _, v := range d.Voies {
		commune, ok := byCode[v.CodeCommune]
		if !ok {
			commune = models.CommuneRecord{Code: v.CodeCommune, Fields: map[string]any{}}
		}
		b.Voies = append(b.Voies, models.VoieEntry{Voie: v, Commune: commune})
	}

	b.Links = append(b.Links, d.Predecesseurs...)
	return b
}
