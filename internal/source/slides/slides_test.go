package slides

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/testutils"
)

var deckSource = domain.Source{ID: "body", Kind: domain.SourceKindSlides}

func parseDeck(t *testing.T, slides ...testutils.Slide) ([]*domain.Layer, error) {
	t.Helper()
	data, err := testutils.DeckBytes(slides...)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return NewParser(nil).ParseArchive(context.Background(), deckSource, zr)
}

// local converts slide EMU to the layer's local frame.
func local(x, y float64) orb.Point {
	return orb.Point{
		(x - testutils.DeckWidth/2) * MetresPerEMU,
		-(y - testutils.DeckHeight/2) * MetresPerEMU,
	}
}

func assertBound(t *testing.T, want, got orb.Bound) {
	t.Helper()
	for i := 0; i < 2; i++ {
		assert.InDelta(t, want.Min[i], got.Min[i], 1e-6, "min[%d]", i)
		assert.InDelta(t, want.Max[i], got.Max[i], 1e-6, "max[%d]", i)
	}
}

func emuBound(x0, y0, x1, y1 float64) orb.Bound {
	return orb.Bound{Min: local(x0, y1), Max: local(x1, y0)}
}

func TestParseDeck(t *testing.T) {
	t.Parallel()

	layers, err := parseDeck(t,
		testutils.Slide{
			Background: "FFFFFF",
			Shapes: []string{
				testutils.PresetShape(2, ".id(heart) details(heart-detail, 5)", "rect", 0, 0, 914400, 685800),
				testutils.PresetShape(3, "Oval 3", "ellipse", 1000000, 1000000, 200000, 100000),
			},
		},
		testutils.Slide{
			Shapes: []string{
				testutils.TextBox(2, ".id(heart-detail) description(Heart)"),
				testutils.CustomShape(3, ".id(atrium) models(UBERON:0002081)", 0, 0, 1000, 1000, 100, 100,
					`<a:moveTo><a:pt x="0" y="0"/></a:moveTo><a:lnTo><a:pt x="100" y="0"/></a:lnTo>`+
						`<a:lnTo><a:pt x="100" y="100"/></a:lnTo><a:close/>`),
			},
		},
	)
	require.NoError(t, err)
	require.Len(t, layers, 2)

	base := layers[0]
	assert.Equal(t, "body", base.ID)
	assert.Equal(t, domain.LayerKindBase, base.Kind)
	assert.Equal(t, "#FFFFFF", base.Properties["background"])
	require.Len(t, base.Features, 2)

	heart := base.Features[0]
	assert.Equal(t, "heart", heart.ID)
	assert.Equal(t, "2", heart.StringProperty(domain.PropShapeID))
	assert.Equal(t, "heart-detail", heart.StringProperty(domain.PropDetails))
	assert.NotEmpty(t, heart.Markup)
	assertBound(t, emuBound(0, 0, 914400, 685800), heart.Path.Bound())

	oval := base.Features[1]
	assert.Equal(t, "body_3", oval.ID)
	assert.Equal(t, "Oval 3", oval.StringProperty(domain.PropName))
	assertBound(t, emuBound(1000000, 1000000, 1200000, 1100000), oval.Path.Bound())

	detail := layers[1]
	assert.Equal(t, "heart-detail", detail.ID)
	assert.Equal(t, domain.LayerKindDetail, detail.Kind)
	assert.Equal(t, "Heart", detail.Description)
	assert.Equal(t, "heart", detail.Boundary, "anchored by the base shape's details()")
	assert.Equal(t, 5, detail.MinZoom)
	require.Len(t, detail.Features, 1, "the directive text box is not a feature")

	atrium := detail.Features[0]
	assert.Equal(t, "atrium", atrium.ID)
	assert.Equal(t, "UBERON:0002081", atrium.StringProperty(domain.PropModels))
	assertBound(t, emuBound(0, 0, 1000, 1000), atrium.Path.Bound())
}

func TestParseDeckAnchors(t *testing.T) {
	t.Parallel()

	base := testutils.Slide{Shapes: []string{
		testutils.PresetShape(2, ".id(heart)", "rect", 0, 0, 1000, 1000),
		testutils.PresetShape(3, ".id(lung)", "rect", 2000, 0, 1000, 1000),
	}}

	t.Run("implicit boundary shape", func(t *testing.T) {
		t.Parallel()

		layers, err := parseDeck(t, base, testutils.Slide{Shapes: []string{
			testutils.PresetShape(2, ".id(heart) boundary", "rect", 0, 0, 5000, 5000),
			testutils.PresetShape(3, ".id(valve)", "rect", 10, 10, 100, 100),
		}})
		require.NoError(t, err)
		assert.Equal(t, "body_2", layers[1].ID)
		assert.Equal(t, "heart", layers[1].Boundary)
		assert.Equal(t, "heart", layers[1].Outline)
	})

	t.Run("implicit matching shape id", func(t *testing.T) {
		t.Parallel()

		layers, err := parseDeck(t, base, testutils.Slide{Shapes: []string{
			testutils.PresetShape(2, ".id(valve)", "rect", 10, 10, 100, 100),
			testutils.PresetShape(3, ".id(heart)", "rect", 0, 0, 5000, 5000),
		}})
		require.NoError(t, err)
		assert.Equal(t, "heart", layers[1].Boundary)
		assert.Equal(t, "heart", layers[1].Outline)
	})

	t.Run("flagged boundary wins over matching shape id", func(t *testing.T) {
		t.Parallel()

		layers, err := parseDeck(t, base, testutils.Slide{Shapes: []string{
			testutils.PresetShape(2, ".id(heart)", "rect", 10, 10, 100, 100),
			testutils.PresetShape(3, ".id(lung) boundary", "rect", 0, 0, 5000, 5000),
		}})
		require.NoError(t, err)
		assert.Equal(t, "lung", layers[1].Boundary)
		assert.Equal(t, "lung", layers[1].Outline)
	})

	t.Run("directive boundary", func(t *testing.T) {
		t.Parallel()

		layers, err := parseDeck(t, base, testutils.Slide{Shapes: []string{
			testutils.TextBox(2, ".id(lung-detail) boundary(lung) zoom(4, 8, 5)"),
			testutils.PresetShape(3, ".id(frame) boundary", "rect", 0, 0, 5000, 5000),
			testutils.PresetShape(4, ".id(lobe)", "rect", 10, 10, 100, 100),
		}})
		require.NoError(t, err)
		assert.Equal(t, "lung-detail", layers[1].ID)
		assert.Equal(t, "lung", layers[1].Boundary)
		assert.Equal(t, "frame", layers[1].Outline)
		assert.Equal(t, 4, layers[1].MinZoom)
	})

	t.Run("missing anchor", func(t *testing.T) {
		t.Parallel()

		_, err := parseDeck(t, base, testutils.Slide{Shapes: []string{
			testutils.PresetShape(2, ".id(valve)", "rect", 10, 10, 100, 100),
		}})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSourceParse)
		assert.Contains(t, err.Error(), "no boundary anchor")
	})
}

func TestParseDeckTransforms(t *testing.T) {
	t.Parallel()

	rotated := `<p:sp><p:nvSpPr><p:cNvPr id="5" name=".id(rotated)"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm rot="5400000" flipH="1"><a:off x="0" y="0"/><a:ext cx="2000" cy="1000"/></a:xfrm>` +
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:sp>`
	circle := testutils.CustomShape(6, ".id(circle)", 0, 0, 1000, 1000, 100, 100,
		`<a:moveTo><a:pt x="100" y="50"/></a:moveTo>`+
			`<a:arcTo wR="50" hR="50" stAng="0" swAng="21600000"/><a:close/>`)

	layers, err := parseDeck(t, testutils.Slide{Shapes: []string{
		testutils.Group(2, 1000, 1000, 2000, 2000, 1000, 1000,
			testutils.PresetShape(3, ".id(grouped)", "rect", 0, 0, 1000, 1000)),
		rotated,
		circle,
	}})
	require.NoError(t, err)
	require.Len(t, layers, 1)

	grouped, ok := layers[0].Feature("grouped")
	require.True(t, ok)
	assertBound(t, emuBound(1000, 1000, 3000, 3000), grouped.Path.Bound())

	r, ok := layers[0].Feature("rotated")
	require.True(t, ok)
	assertBound(t, emuBound(500, -500, 1500, 1500), r.Path.Bound())

	c, ok := layers[0].Feature("circle")
	require.True(t, ok)
	assertBound(t, emuBound(0, 0, 1000, 1000), c.Path.Bound())
}

func TestParseDeckReportsEveryMalformedShape(t *testing.T) {
	t.Parallel()

	_, err := parseDeck(t, testutils.Slide{Shapes: []string{
		testutils.PresetShape(2, ".id(star)", "star5", 0, 0, 100, 100),
		testutils.PresetShape(3, ".id(bad) colour(red)", "rect", 0, 0, 100, 100),
		testutils.CustomShape(4, ".id(curvy)", 0, 0, 100, 100, 100, 100, `<a:spiralTo/>`),
		testutils.PresetShape(5, ".id(fine)", "rect", 0, 0, 100, 100),
		testutils.TextBox(6, ".id(a)"),
		testutils.TextBox(7, ".id(b)"),
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceParse)

	msg := err.Error()
	assert.Contains(t, msg, "slide 1 shape 2")
	assert.Contains(t, msg, `unsupported preset geometry "star5"`)
	assert.Contains(t, msg, "slide 1 shape 3")
	assert.Contains(t, msg, "slide 1 shape 4")
	assert.Contains(t, msg, "more than one layer directive")
	assert.NotContains(t, msg, "shape 5")
}

func TestParseDeckInvalidPackage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("ppt/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	_, err = NewParser(nil).ParseArchive(context.Background(), deckSource, zr)
	assert.ErrorIs(t, err, domain.ErrSourceParse)

	_, err = NewParser(nil).Parse(context.Background(), domain.Source{ID: "body", Href: "/nonexistent/deck.pptx"})
	assert.ErrorIs(t, err, domain.ErrSourceParse)
}

func TestParseDeckFile(t *testing.T) {
	t.Parallel()

	path := testutils.WriteDeck(t, t.TempDir(), "body.pptx", testutils.Slide{Shapes: []string{
		testutils.PresetShape(2, ".id(heart)", "ellipse", 0, 0, 1000, 1000),
	}})
	layers, err := NewParser(nil).Parse(context.Background(), domain.Source{ID: "body", Kind: domain.SourceKindSlides, Href: path})
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "heart", layers[0].Features[0].ID)
}
