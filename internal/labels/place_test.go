package labels

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
)

func square(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestPlace(t *testing.T) {
	t.Parallel()

	// a C shape whose centroid falls in the notch
	cShape := orb.Polygon{{{0, 0}, {10, 0}, {10, 2}, {2, 2}, {2, 8}, {10, 8}, {10, 10}, {0, 10}, {0, 0}}}

	tests := []struct {
		name string
		geom orb.Geometry
		want orb.Point
		ok   bool
	}{
		{name: "point", geom: orb.Point{3, 4}, want: orb.Point{3, 4}, ok: true},
		{name: "multipoint", geom: orb.MultiPoint{{1, 1}, {2, 2}}, want: orb.Point{1, 1}, ok: true},
		{name: "empty multipoint", geom: orb.MultiPoint{}, ok: false},
		{name: "line midpoint by length", geom: orb.LineString{{0, 0}, {10, 0}, {10, 10}}, want: orb.Point{10, 0}, ok: true},
		{name: "single point line", geom: orb.LineString{{5, 5}}, want: orb.Point{5, 5}, ok: true},
		{
			name: "longest line of several",
			geom: orb.MultiLineString{{{0, 0}, {1, 0}}, {{0, 5}, {4, 5}}},
			want: orb.Point{2, 5},
			ok:   true,
		},
		{name: "convex polygon centroid", geom: orb.Polygon{square(0, 0, 4, 2)}, want: orb.Point{2, 1}, ok: true},
		{
			name: "centroid in hole uses widest span",
			geom: orb.Polygon{square(0, 0, 10, 10), square(3, 3, 7, 7)},
			want: orb.Point{1.5, 5},
			ok:   true,
		},
		{
			name: "largest polygon wins",
			geom: orb.MultiPolygon{{square(0, 0, 1, 1)}, {square(10, 10, 14, 14)}},
			want: orb.Point{12, 12},
			ok:   true,
		},
		{name: "empty polygon", geom: orb.Polygon{}, ok: false},
		{name: "nil", geom: nil, ok: false},
		{name: "concave polygon", geom: cShape, want: orb.Point{1, 5}, ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Place(tc.geom)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want[0], got[0], 1e-9)
				assert.InDelta(t, tc.want[1], got[1], 1e-9)
			}
		})
	}
}

func TestPlaceIsInsidePolygons(t *testing.T) {
	t.Parallel()

	polys := []orb.Polygon{
		{{{0, 0}, {10, 0}, {10, 2}, {2, 2}, {2, 8}, {10, 8}, {10, 10}, {0, 10}, {0, 0}}},
		{square(0, 0, 10, 10), square(1, 1, 9, 9)},
		{{{0, 0}, {10, 0}, {5, 1}, {0, 0}}},
	}
	for _, p := range polys {
		pt, ok := Place(p)
		assert.True(t, ok)
		assert.True(t, planar.PolygonContains(p, pt), "label %v outside %v", pt, p)
	}
}
