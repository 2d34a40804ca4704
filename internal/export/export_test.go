package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/geometry"
)

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func flatmap() *domain.Flatmap {
	base := domain.NewLayer("body", "deck", domain.LayerKindBase)

	body := domain.NewFeature("body", geometry.Polygon(orb.Point{-1000, -1000}, orb.Point{1000, -1000}, orb.Point{1000, 1000}, orb.Point{-1000, 1000}))
	body.Geometry = square(-1000, -1000, 1000, 1000)
	body.Markup = ".id(body)"
	base.Add(body)

	heart := domain.NewFeature("heart", nil)
	heart.Geometry = square(0, 0, 10, 10)
	heart.AnatomicalID = "UBERON:0000948"
	heart.SetProperty(domain.PropMaxZoom, 5)
	heart.SetProperty(domain.PropBoundary, true)
	heart.Label = &domain.LabelPlacement{Text: "Heart", Point: orb.Point{5, 5}}
	base.Add(heart)

	hidden := domain.NewFeature("hidden", nil)
	hidden.Geometry = square(0, 0, 1, 1)
	hidden.SetProperty(domain.PropInvisible, true)
	base.Add(hidden)

	nerve := domain.NewFeature("nerve", nil)
	nerve.Geometry = orb.LineString{{0, 0}, {30, 40}}
	nerve.SetProperty("centreline", true)
	base.Add(nerve)

	detail := domain.NewLayer("heart-detail", "svg", domain.LayerKindDetail)
	valve := domain.NewFeature("valve", nil)
	valve.Geometry = square(1, 1, 2, 2)
	valve.SetProperty(domain.PropLayer, "body")
	valve.SetProperty(domain.PropMinZoom, 6)
	detail.Add(valve)

	return &domain.Flatmap{
		ID:     "rat",
		Layers: []*domain.Layer{base, detail},
		Extent: orb.Bound{Min: orb.Point{-1000, -1000}, Max: orb.Point{1000, 1000}},
	}
}

func decode(t *testing.T, data []byte) collectionJSON {
	t.Helper()
	var raw struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string          `json:"type"`
			ID         int             `json:"id"`
			Tippecanoe tippecanoe      `json:"tippecanoe"`
			Geometry   json.RawMessage `json:"geometry"`
			Properties map[string]any  `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	out := collectionJSON{Type: raw.Type}
	for _, f := range raw.Features {
		out.Features = append(out.Features, featureJSON{
			Type:       f.Type,
			ID:         f.ID,
			Tippecanoe: f.Tippecanoe,
			Properties: f.Properties,
		})
	}
	return out
}

func TestBuild(t *testing.T) {
	docs, err := New(Options{}, nil).Build(flatmap())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "body.json", docs[0].Name)
	assert.Equal(t, "heart-detail.json", docs[1].Name)

	base := decode(t, docs[0].Data)
	assert.Equal(t, "FeatureCollection", base.Type)
	require.Len(t, base.Features, 3, "invisible features are not exported")

	body, heart, nerve := base.Features[0], base.Features[1], base.Features[2]
	assert.Equal(t, []int{1, 2, 3}, []int{body.ID, heart.ID, nerve.ID})

	// computed properties
	assert.Equal(t, "heart", heart.Properties[domain.PropID])
	assert.Equal(t, "body", heart.Properties[domain.PropLayer])
	assert.Equal(t, "UBERON:0000948", heart.Properties[domain.PropModels])
	assert.Equal(t, "Heart", heart.Properties[domain.PropLabel])
	assert.InDelta(t, 100.0, heart.Properties[PropArea], 1e-9)
	assert.InDelta(t, 40.0, heart.Properties[PropLength], 1e-9)
	assert.NotContains(t, heart.Properties, domain.PropBoundary)
	assert.Len(t, heart.Properties[PropBounds], 4)
	assert.Len(t, heart.Properties[PropLabelPoint], 2)

	// a feature 1/200 of the map wide has scale log2(200)
	assert.InDelta(t, 7.643856, heart.Properties[PropScale], 1e-6)
	require.NotNil(t, heart.Tippecanoe.MinZoom)
	assert.Equal(t, 5, *heart.Tippecanoe.MinZoom, "small ungrouped features appear from zoom 5")
	require.NotNil(t, heart.Tippecanoe.MaxZoom)
	assert.Equal(t, 5, *heart.Tippecanoe.MaxZoom)
	assert.Equal(t, "body-features", heart.Tippecanoe.Layer)

	assert.InDelta(t, 0.0, body.Properties[PropScale], 1e-9)
	assert.Nil(t, body.Tippecanoe.MinZoom)

	// lines have no area
	assert.Equal(t, "body-pathways", nerve.Tippecanoe.Layer)
	assert.InDelta(t, 10.0, nerve.Properties[PropScale], 1e-9)
	assert.InDelta(t, 50.0, nerve.Properties[PropLength], 1e-9)

	detail := decode(t, docs[1].Data)
	require.Len(t, detail.Features, 1)
	valve := detail.Features[0]
	assert.Equal(t, 4, valve.ID)
	assert.Equal(t, "body", valve.Properties[domain.PropLayer])
	require.NotNil(t, valve.Tippecanoe.MinZoom)
	assert.Equal(t, 6, *valve.Tippecanoe.MinZoom, "explicit minzoom is kept")
	assert.Equal(t, "heart-detail-features", valve.Tippecanoe.Layer)
}

func TestBuildProjectsToWGS84(t *testing.T) {
	fm := flatmap()
	fm.Layers = fm.Layers[:1]
	docs, err := New(Options{}, nil).Build(fm)
	require.NoError(t, err)

	var doc struct {
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(docs[0].Data, &doc))

	var rings [][][]float64
	for _, f := range doc.Features {
		if f.Properties["id"] != "body" {
			continue
		}
		assert.Equal(t, "Polygon", f.Geometry.Type)
		require.NoError(t, json.Unmarshal(f.Geometry.Coordinates, &rings))
	}
	require.NotEmpty(t, rings, "body polygon not exported")
	ring := rings[0]
	// 1000 m at the equator is about 0.008983 degrees
	assert.InDelta(t, -0.008983, ring[0][0], 1e-6)
	assert.InDelta(t, -0.008983, ring[0][1], 1e-5)

	// the source geometry is not modified
	body, _ := fm.Base().Feature("body")
	assert.Equal(t, square(-1000, -1000, 1000, 1000), body.Geometry)
}

func TestBuildIsDeterministic(t *testing.T) {
	e := New(Options{RawSegments: true, RawMarkup: true}, nil)
	first, err := e.Build(flatmap())
	require.NoError(t, err)
	second, err := e.Build(flatmap())
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, string(first[i].Data), string(second[i].Data), first[i].Name)
	}
}

func TestBuildSidecars(t *testing.T) {
	docs, err := New(Options{RawSegments: true, RawMarkup: true}, nil).Build(flatmap())
	require.NoError(t, err)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"body.json", "body.segments.json", "body.markup.json",
		"heart-detail.json", "heart-detail.segments.json", "heart-detail.markup.json",
	}, names)

	var segments []sidecarEntry
	require.NoError(t, json.Unmarshal(docs[1].Data, &segments))
	require.Len(t, segments, 1)
	assert.Equal(t, "body", segments[0].ID)
	assert.Contains(t, segments[0].Value, "M")

	var markup []sidecarEntry
	require.NoError(t, json.Unmarshal(docs[2].Data, &markup))
	assert.Equal(t, []sidecarEntry{{ID: "body", Value: ".id(body)"}}, markup)

	// primary documents are unaffected by the toggles
	plain, err := New(Options{}, nil).Build(flatmap())
	require.NoError(t, err)
	assert.Equal(t, string(plain[0].Data), string(docs[0].Data))
}

func TestBuildEmpty(t *testing.T) {
	_, err := New(Options{}, nil).Build(&domain.Flatmap{ID: "empty"})
	assert.ErrorIs(t, err, ErrEmptyFlatmap)
	_, err = New(Options{}, nil).Build(nil)
	assert.ErrorIs(t, err, ErrEmptyFlatmap)
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := New(Options{RawMarkup: true}, nil).Export(context.Background(), flatmap(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "body.json"), filepath.Join(dir, "heart-detail.json")}, paths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"body.json", "body.markup.json", "heart-detail.json", "heart-detail.markup.json"}, names)
}

func TestExportWritesNothingOnBuildFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	_, err := New(Options{}, nil).Export(context.Background(), &domain.Flatmap{}, dir)
	require.Error(t, err)
	assert.NoDirExists(t, dir)
}

func TestWriteIntermediate(t *testing.T) {
	dir := t.TempDir()
	fm := flatmap()
	require.NoError(t, WriteIntermediate(context.Background(), dir, fm.Layers))

	data, err := os.ReadFile(filepath.Join(dir, "body.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc["type"])
	assert.Equal(t, "body", doc["layer"])
	assert.Equal(t, "deck", doc["source"])
	features := doc["features"].([]any)
	assert.Len(t, features, 4)
	first := features[0].(map[string]any)
	assert.Equal(t, "body", first["id"])
}

func TestWriteDocumentsHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	err := WriteDocuments(ctx, dir, []Document{{Name: "a.json", Data: []byte("{}")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "a.json"))
}
