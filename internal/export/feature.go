package export

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// Tile layers a feature is written to.
const (
	TileLayerFeatures = "features"
	TileLayerPathways = "pathways"
)

// Exported property keys computed from geometry.
const (
	PropBounds     = "bounds"
	PropCentroid   = "centroid"
	PropArea       = "area"
	PropLength     = "length"
	PropScale      = "scale"
	PropLabelPoint = "label-point"
	PropTileLayer  = "tile-layer"
)

// smallFeatureScale is the scale beyond which an ungrouped feature only
// appears from smallFeatureMinZoom.
const (
	smallFeatureScale   = 6
	smallFeatureMinZoom = 5
	degenerateScale     = 10
)

// ignoredProperties only steer geometry construction and are not exported.
var ignoredProperties = map[string]bool{
	domain.PropBoundary: true,
	"closed":            true,
	"exterior":          true,
	"interior":          true,
	"region":            true,
	"divider":           true,
}

type tippecanoe struct {
	Layer   string `json:"layer"`
	MinZoom *int   `json:"minzoom,omitempty"`
	MaxZoom *int   `json:"maxzoom,omitempty"`
}

type featureJSON struct {
	Type       string            `json:"type"`
	ID         int               `json:"id"`
	Tippecanoe tippecanoe        `json:"tippecanoe"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

type collectionJSON struct {
	Type     string        `json:"type"`
	Features []featureJSON `json:"features"`
}

// toWGS84 projects a frame geometry, leaving g untouched.
func toWGS84(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84)
}

func pointToWGS84(p orb.Point) []float64 {
	q := project.Point(p, project.Mercator.ToWGS84)
	return []float64{q[0], q[1]}
}

// newFeature converts f, numbered id, into its exported form. mapArea is
// the area of the flatmap extent.
func newFeature(layer *domain.Layer, f *domain.Feature, id int, mapArea float64) featureJSON {
	wgs := toWGS84(f.Geometry)
	wb := wgs.Bound()
	centroid, _ := planar.CentroidArea(f.Geometry)
	area := math.Abs(planar.Area(f.Geometry))

	props := make(map[string]any, len(f.Properties)+8)
	for k, v := range f.Properties {
		if !ignoredProperties[k] {
			props[k] = v
		}
	}
	props[domain.PropID] = f.ID
	if _, ok := props[domain.PropLayer]; !ok {
		props[domain.PropLayer] = layer.ID
	}
	props[PropBounds] = []float64{wb.Min[0], wb.Min[1], wb.Max[0], wb.Max[1]}
	props[PropCentroid] = pointToWGS84(centroid)
	props[PropArea] = area
	props[PropLength] = planar.Length(f.Geometry)
	if f.AnatomicalID != "" {
		props[domain.PropModels] = f.AnatomicalID
	}
	if f.Label != nil {
		props[domain.PropLabel] = f.Label.Text
		props[PropLabelPoint] = pointToWGS84(f.Label.Point)
	}

	tileLayer := TileLayerFeatures
	if f.Flag("centreline") {
		tileLayer = TileLayerPathways
	}
	props[PropTileLayer] = tileLayer
	hints := tippecanoe{Layer: layer.ID + "-" + tileLayer}

	if z, ok := f.IntProperty(domain.PropMaxZoom); ok {
		hints.MaxZoom = &z
	}
	minZoom, hasMinZoom := f.IntProperty(domain.PropMinZoom)
	if hasMinZoom {
		hints.MinZoom = &minZoom
	}

	scale := float64(degenerateScale)
	if area > 0 && mapArea > 0 {
		scale = math.Log2(math.Sqrt(mapArea / area))
		if scale > smallFeatureScale && !f.Flag(domain.PropGroup) && !hasMinZoom {
			z := smallFeatureMinZoom
			hints.MinZoom = &z
		}
	}
	props[PropScale] = scale

	return featureJSON{
		Type:       "Feature",
		ID:         id,
		Tippecanoe: hints,
		Geometry:   geojson.NewGeometry(wgs),
		Properties: props,
	}
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
