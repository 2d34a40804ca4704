package domain

import (
	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/geometry"
)

// LayerKind distinguishes the base layer from detail overlays.
type LayerKind string

// Layer kinds.
const (
	LayerKindBase   LayerKind = "base"
	LayerKindDetail LayerKind = "detail"
)

// BoundaryAnchor relates a detail layer to the base feature it is drawn
// inside. Transform maps the layer's local coordinates into the flatmap
// frame.
type BoundaryAnchor struct {
	LayerID       string
	BaseFeatureID string
	Transform     geometry.Affine
}

// Layer is an ordered collection of features sharing provenance.
type Layer struct {
	ID          string
	SourceID    string
	Kind        LayerKind
	Description string

	// Boundary names the base feature a detail layer is anchored to.
	Boundary string

	// Outline names the local feature whose extent is mapped onto the
	// boundary feature. When empty, LocalBounds or the extent of the whole
	// layer is used.
	Outline     string
	LocalBounds *orb.Bound

	// MinZoom is the zoom level at which a detail layer appears; zero means
	// unset.
	MinZoom int

	Properties map[string]any
	Features   []*Feature
	Anchor     *BoundaryAnchor
}

// NewLayer returns an empty layer.
func NewLayer(id, sourceID string, kind LayerKind) *Layer {
	return &Layer{ID: id, SourceID: sourceID, Kind: kind, Properties: map[string]any{}}
}

// Add appends a feature.
func (l *Layer) Add(f *Feature) {
	l.Features = append(l.Features, f)
}

// Feature returns the first feature with the given id.
func (l *Layer) Feature(id string) (*Feature, bool) {
	for _, f := range l.Features {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Bound returns the extent of the layer's normalized geometry. The second
// result is false when no feature has geometry.
func (l *Layer) Bound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, f := range l.Features {
		if f.Geometry == nil {
			continue
		}
		fb := f.Geometry.Bound()
		if !found {
			b, found = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, found
}

// Flatmap is the composed result of a run.
type Flatmap struct {
	ID      string
	Models  string
	Layers  []*Layer
	Anchors []BoundaryAnchor
	Extent  orb.Bound
}

// Base returns the base layer.
func (m *Flatmap) Base() *Layer {
	for _, l := range m.Layers {
		if l.Kind == LayerKindBase {
			return l
		}
	}
	return nil
}

// LabelEntry is one persisted label placement, keyed by layer id, feature
// id and label text. Feature ids are only unique within a layer.
type LabelEntry struct {
	LayerID   string  `json:"layer"`
	FeatureID string  `json:"feature"`
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}
