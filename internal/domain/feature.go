package domain

import (
	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/geometry"
)

// Well-known feature property keys.
const (
	PropID        = "id"
	PropClass     = "class"
	PropLabel     = "label"
	PropModels    = "models"
	PropLayer     = "layer"
	PropMinZoom   = "minzoom"
	PropMaxZoom   = "maxzoom"
	PropName      = "name"
	PropShapeID   = "shape-id"
	PropGroup     = "group"
	PropBoundary  = "boundary"
	PropDetails   = "details"
	PropInvisible = "invisible"
)

// LabelPlacement is where a feature's label is drawn, in flatmap frame
// coordinates.
type LabelPlacement struct {
	Text  string
	Point orb.Point
}

// Feature is one shape of a layer.
type Feature struct {
	ID string

	// Path holds the curves as parsed, in the layer's local coordinates
	// until the layer is reprojected into the flatmap frame.
	Path *geometry.Path

	// Geometry is the flattened, oriented and deduplicated form of Path.
	Geometry orb.Geometry

	Properties   map[string]any
	AnatomicalID string
	Label        *LabelPlacement

	// Markup is the raw markup text the feature was declared with.
	Markup string
}

// NewFeature returns a feature with an empty property map.
func NewFeature(id string, path *geometry.Path) *Feature {
	return &Feature{ID: id, Path: path, Properties: map[string]any{}}
}

// SetProperty sets a property, replacing any previous value.
func (f *Feature) SetProperty(key string, value any) {
	if f.Properties == nil {
		f.Properties = map[string]any{}
	}
	f.Properties[key] = value
}

// StringProperty returns a string property, or "" when absent or not a string.
func (f *Feature) StringProperty(key string) string {
	s, _ := f.Properties[key].(string)
	return s
}

// IntProperty returns an integer property.
func (f *Feature) IntProperty(key string) (int, bool) {
	switch v := f.Properties[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	}
	return 0, false
}

// Flag reports whether a boolean marker property is set.
func (f *Feature) Flag(key string) bool {
	b, _ := f.Properties[key].(bool)
	return b
}
