package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineInverseRoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	transforms := []struct {
		name string
		m    Affine
	}{
		{"identity", Identity()},
		{"translate", Translate(1e5, -3e4)},
		{"scale", Scale(1234.5, 0.002)},
		{"mirror", Scale(1, -1).Then(Translate(0, 720))},
		{"rotate and skew", Rotate(0.7).Then(SkewX(0.3)).Then(Translate(5, 6))},
		{"bounds to bounds", mustBounds(t,
			orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{3, 7}},
			orb.Bound{Min: orb.Point{1e6, 2e6}, Max: orb.Point{1.5e6, 2.1e6}})},
	}

	for _, tc := range transforms {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := tc.m.Inverse()
			require.NoError(t, err, "transform should be invertible")
			for i := 0; i < 100; i++ {
				p := orb.Point{rng.Float64()*2e3 - 1e3, rng.Float64()*2e3 - 1e3}
				back := inv.Apply(tc.m.Apply(p))
				scale := math.Max(1, math.Max(math.Abs(p[0]), math.Abs(p[1])))
				assert.InDelta(t, p[0], back[0], 1e-9*scale, "x should survive the round trip")
				assert.InDelta(t, p[1], back[1], 1e-9*scale, "y should survive the round trip")
			}
		})
	}
}

func mustBounds(t *testing.T, from, to orb.Bound) Affine {
	t.Helper()
	m, err := BoundsToBounds(from, to)
	require.NoError(t, err)
	return m
}

func TestAffineInverseSingular(t *testing.T) {
	t.Parallel()

	_, err := Scale(0, 1).Inverse()
	assert.ErrorIs(t, err, ErrSingularTransform)

	_, err = Affine{A: 1, B: 2, D: 2, E: 4}.Inverse()
	assert.ErrorIs(t, err, ErrSingularTransform, "rank-deficient matrix has no inverse")
}

func TestBoundsToBounds(t *testing.T) {
	t.Parallel()

	from := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 20}}
	to := orb.Bound{Min: orb.Point{100, 100}, Max: orb.Point{200, 150}}
	m, err := BoundsToBounds(from, to)
	require.NoError(t, err)

	assert.Equal(t, orb.Point{100, 100}, m.Apply(from.Min))
	assert.Equal(t, orb.Point{200, 150}, m.Apply(from.Max))

	_, err = BoundsToBounds(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 5}}, to)
	assert.ErrorIs(t, err, ErrDegenerateBounds)
	_, err = BoundsToBounds(from, orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{4, 1}})
	assert.ErrorIs(t, err, ErrDegenerateBounds)
}

func TestThenComposesInOrder(t *testing.T) {
	t.Parallel()

	m := Translate(1, 0).Then(Scale(2, 2))
	assert.Equal(t, orb.Point{4, 0}, m.Apply(orb.Point{1, 0}), "translation applies before scaling")
}

func TestApplyGeometryKeepsOrientationUnderMirror(t *testing.T) {
	t.Parallel()

	poly := orb.Polygon{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {1, 3}, {3, 3}, {3, 1}, {1, 1}},
	}
	out := Scale(1, -1).ApplyGeometry(poly).(orb.Polygon)

	assert.Greater(t, signedArea(out[0]), 0.0, "exterior stays counter-clockwise")
	assert.Less(t, signedArea(out[1]), 0.0, "hole stays clockwise")
	assert.Greater(t, signedArea(poly[0]), 0.0, "input is not modified")
}
