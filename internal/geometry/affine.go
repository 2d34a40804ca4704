package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrSingularTransform is returned when an affine transform has no inverse.
var ErrSingularTransform = errors.New("affine transform is not invertible")

// ErrDegenerateBounds is returned when a bounds-to-bounds transform is
// requested for a zero-width or zero-height extent.
var ErrDegenerateBounds = errors.New("degenerate bounds")

// Affine maps (x, y) to (A*x + B*y + C, D*x + E*y + F).
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Affine {
	return Affine{A: 1, C: tx, E: 1, F: ty}
}

// Scale returns a scaling about the origin.
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// Rotate returns a rotation about the origin by theta radians. In a y-up
// system this is counter-clockwise; in a y-down system it is clockwise.
func Rotate(theta float64) Affine {
	s, c := math.Sincos(theta)
	return Affine{A: c, B: -s, D: s, E: c}
}

// SkewX returns a horizontal shear by theta radians.
func SkewX(theta float64) Affine {
	return Affine{A: 1, B: math.Tan(theta), E: 1}
}

// SkewY returns a vertical shear by theta radians.
func SkewY(theta float64) Affine {
	return Affine{A: 1, D: math.Tan(theta), E: 1}
}

// Then returns the transform that applies m first and n second.
func (m Affine) Then(n Affine) Affine {
	return Affine{
		A: n.A*m.A + n.B*m.D,
		B: n.A*m.B + n.B*m.E,
		C: n.A*m.C + n.B*m.F + n.C,
		D: n.D*m.A + n.E*m.D,
		E: n.D*m.B + n.E*m.E,
		F: n.D*m.C + n.E*m.F + n.F,
	}
}

// Det returns the determinant of the linear part.
func (m Affine) Det() float64 {
	return m.A*m.E - m.B*m.D
}

// IsMirror reports whether the transform reverses orientation.
func (m Affine) IsMirror() bool {
	return m.Det() < 0
}

// Inverse returns the inverse transform. A transform whose determinant is
// zero relative to the magnitude of its coefficients is singular.
func (m Affine) Inverse() (Affine, error) {
	det := m.Det()
	norm := math.Max(math.Max(math.Abs(m.A), math.Abs(m.B)), math.Max(math.Abs(m.D), math.Abs(m.E)))
	if norm == 0 || math.IsNaN(det) || math.Abs(det) <= 1e-12*norm*norm {
		return Affine{}, fmt.Errorf("%w: determinant %g", ErrSingularTransform, det)
	}
	inv := Affine{
		A: m.E / det,
		B: -m.B / det,
		D: -m.D / det,
		E: m.A / det,
	}
	inv.C = -(inv.A*m.C + inv.B*m.F)
	inv.F = -(inv.D*m.C + inv.E*m.F)
	return inv, nil
}

// Apply transforms a point.
func (m Affine) Apply(p orb.Point) orb.Point {
	return orb.Point{
		m.A*p[0] + m.B*p[1] + m.C,
		m.D*p[0] + m.E*p[1] + m.F,
	}
}

// ApplyVector transforms a direction vector, ignoring translation.
func (m Affine) ApplyVector(v orb.Point) orb.Point {
	return orb.Point{m.A*v[0] + m.B*v[1], m.D*v[0] + m.E*v[1]}
}

// ApplyGeometry returns a transformed copy of g. Ring orientation is
// restored when the transform mirrors.
func (m Affine) ApplyGeometry(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	if p, ok := g.(orb.Point); ok {
		return m.Apply(p)
	}
	out := orb.Clone(g)
	transformInPlace(out, m)
	if m.IsMirror() {
		out = Orient(out)
	}
	return out
}

func transformInPlace(g orb.Geometry, m Affine) {
	switch g := g.(type) {
	case orb.MultiPoint:
		for i := range g {
			g[i] = m.Apply(g[i])
		}
	case orb.LineString:
		for i := range g {
			g[i] = m.Apply(g[i])
		}
	case orb.Ring:
		for i := range g {
			g[i] = m.Apply(g[i])
		}
	case orb.MultiLineString:
		for _, ls := range g {
			transformInPlace(ls, m)
		}
	case orb.Polygon:
		for _, r := range g {
			transformInPlace(r, m)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			transformInPlace(p, m)
		}
	case orb.Collection:
		for i := range g {
			if p, ok := g[i].(orb.Point); ok {
				g[i] = m.Apply(p)
				continue
			}
			transformInPlace(g[i], m)
		}
	}
}

// BoundsToBounds returns the axis-aligned scale and translation that maps
// from onto to.
func BoundsToBounds(from, to orb.Bound) (Affine, error) {
	fw, fh := from.Max[0]-from.Min[0], from.Max[1]-from.Min[1]
	tw, th := to.Max[0]-to.Min[0], to.Max[1]-to.Min[1]
	if !(fw > 0 && fh > 0) {
		return Affine{}, fmt.Errorf("%w: source extent %gx%g", ErrDegenerateBounds, fw, fh)
	}
	if !(tw > 0 && th > 0) {
		return Affine{}, fmt.Errorf("%w: target extent %gx%g", ErrDegenerateBounds, tw, th)
	}
	sx, sy := tw/fw, th/fh
	return Affine{
		A: sx, C: to.Min[0] - sx*from.Min[0],
		E: sy, F: to.Min[1] - sy*from.Min[1],
	}, nil
}
