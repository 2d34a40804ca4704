package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(p *Path, x0, y0, x1, y1 float64, clockwise bool) {
	p.MoveTo(orb.Point{x0, y0})
	if clockwise {
		p.LineTo(orb.Point{x0, y1})
		p.LineTo(orb.Point{x1, y1})
		p.LineTo(orb.Point{x1, y0})
	} else {
		p.LineTo(orb.Point{x1, y0})
		p.LineTo(orb.Point{x1, y1})
		p.LineTo(orb.Point{x0, y1})
	}
	p.Close()
}

func TestGeometryNestsRings(t *testing.T) {
	t.Parallel()

	p := NewPath()
	rect(p, 2, 2, 8, 8, false)    // hole, drawn with the wrong winding
	rect(p, 0, 0, 10, 10, true)   // exterior, drawn clockwise
	rect(p, 4, 4, 6, 6, true)     // island inside the hole
	rect(p, 20, 20, 30, 30, true) // separate polygon

	g, err := p.Geometry(0.1)
	require.NoError(t, err)
	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "expected a multipolygon, got %T", g)
	require.Len(t, mp, 3)

	assert.Len(t, mp[0], 2, "outer square carries one hole")
	assert.Greater(t, signedArea(mp[0][0]), 0.0, "exterior is counter-clockwise")
	assert.Less(t, signedArea(mp[0][1]), 0.0, "hole is clockwise")
	for _, poly := range mp[1:] {
		assert.Len(t, poly, 1)
		assert.Greater(t, signedArea(poly[0]), 0.0)
	}
}

func TestGeometryOpenAndMixed(t *testing.T) {
	t.Parallel()

	line := NewPath()
	line.MoveTo(orb.Point{0, 0})
	line.LineTo(orb.Point{1, 1})
	line.LineTo(orb.Point{1, 1})
	g, err := line.Geometry(0.1)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 1}}, g, "duplicate vertices collapse")

	mixed := NewPath()
	rect(mixed, 0, 0, 1, 1, false)
	mixed.MoveTo(orb.Point{5, 5})
	mixed.LineTo(orb.Point{6, 6})
	g, err = mixed.Geometry(0.1)
	require.NoError(t, err)
	c, ok := g.(orb.Collection)
	require.True(t, ok)
	assert.Len(t, c, 2)
}

func TestGeometryDegenerate(t *testing.T) {
	t.Parallel()

	empty := NewPath()
	_, err := empty.Geometry(0.1)
	assert.ErrorIs(t, err, ErrEmptyGeometry)

	// A closed path with zero area falls back to a line.
	flat := NewPath()
	flat.MoveTo(orb.Point{0, 0})
	flat.LineTo(orb.Point{5, 0})
	flat.LineTo(orb.Point{10, 0})
	flat.Close()
	g, err := flat.Geometry(0.1)
	require.NoError(t, err)
	assert.IsType(t, orb.LineString{}, g)
}

func TestDedup(t *testing.T) {
	t.Parallel()

	in := orb.LineString{{0, 0}, {0, 1e-12}, {1, 1}, {1, 1}, {2, 2}}
	assert.Equal(t, orb.LineString{{0, 0}, {1, 1}, {2, 2}}, Dedup(in))
	assert.Empty(t, Dedup(nil))
}

func TestPathCloseThenDrawStartsAtSubpathStart(t *testing.T) {
	t.Parallel()

	p := NewPath()
	p.MoveTo(orb.Point{1, 1})
	p.LineTo(orb.Point{2, 1})
	p.LineTo(orb.Point{2, 2})
	p.Close()
	p.LineTo(orb.Point{0, 0})

	require.Len(t, p.Subpaths, 2)
	assert.Equal(t, orb.Point{1, 1}, p.Subpaths[1].Start)
	assert.False(t, p.Subpaths[1].Closed)
}

func TestPathBoundAndSVG(t *testing.T) {
	t.Parallel()

	p := NewPath()
	p.MoveTo(orb.Point{0, 0})
	p.CubicTo(orb.Point{0, 10}, orb.Point{10, 10}, orb.Point{10, 0})
	p.Close()

	b := p.Bound()
	assert.Equal(t, orb.Point{0, 0}, b.Min)
	assert.Equal(t, orb.Point{10, 10}, b.Max)
	assert.Equal(t, "M0,0 C0,10 10,10 10,0 Z", p.SVG())
}
