package properties

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// TermKey is the anatomical map entry key holding the anatomical id.
const TermKey = "term"

// Document carries explicit properties keyed by feature id.
type Document struct {
	Features map[string]map[string]any `json:"features" yaml:"features"`
}

// For returns the explicit properties of a feature, or nil.
func (d *Document) For(featureID string) map[string]any {
	if d == nil {
		return nil
	}
	return d.Features[featureID]
}

// AnatomicalMap maps a feature id or class to its anatomical term and any
// properties derived from it.
type AnatomicalMap map[string]map[string]any

// Entry is one resolved anatomical map entry.
type Entry struct {
	Term       string
	Properties map[string]any
}

// Lookup finds the entry for a feature by id, then by class.
func (m AnatomicalMap) Lookup(featureID, class string) (Entry, bool) {
	raw, ok := m[featureID]
	if !ok && class != "" {
		raw, ok = m[class]
	}
	if !ok {
		return Entry{}, false
	}
	e := Entry{Properties: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == TermKey {
			e.Term, _ = v.(string)
			continue
		}
		e.Properties[k] = v
	}
	return e, true
}

// LoadDocument reads a properties document. An empty path yields an empty
// document.
func LoadDocument(path string) (*Document, error) {
	doc := &Document{}
	if path == "" {
		return doc, nil
	}
	if err := decodeFile(path, doc); err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}
	if doc.Features == nil {
		doc.Features = map[string]map[string]any{}
	}
	return doc, nil
}

// LoadAnatomicalMap reads an anatomical map. An empty path yields an empty
// map.
func LoadAnatomicalMap(path string) (AnatomicalMap, error) {
	m := AnatomicalMap{}
	if path == "" {
		return m, nil
	}
	if err := decodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to load anatomical map: %w", err)
	}
	return m, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// Apply merges anatomical and explicit properties into f. Parser defaults
// already on the feature are overwritten by anatomical values, which are
// overwritten by explicit ones. An explicit "models" value replaces the
// anatomical id.
func Apply(f *domain.Feature, anatomy AnatomicalMap, doc *Document) {
	if e, ok := anatomy.Lookup(f.ID, f.StringProperty(domain.PropClass)); ok {
		for k, v := range e.Properties {
			f.SetProperty(k, v)
		}
		if e.Term != "" {
			f.AnatomicalID = e.Term
		}
	}

	explicit := doc.For(f.ID)
	for k, v := range explicit {
		f.SetProperty(k, v)
	}

	if models, ok := explicit[domain.PropModels].(string); ok && models != "" {
		f.AnatomicalID = models
	} else if f.AnatomicalID == "" {
		f.AnatomicalID = f.StringProperty(domain.PropModels)
	}
	if f.AnatomicalID != "" {
		f.SetProperty(domain.PropModels, f.AnatomicalID)
	}
}
