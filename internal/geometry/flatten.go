package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// maxSubdivision bounds the recursion depth of Bézier subdivision. At this
// depth a segment spans 2^-40 of the original parameter range.
const maxSubdivision = 40

// Polyline is a flattened subpath.
type Polyline struct {
	Points orb.LineString
	Closed bool
}

// Flatten approximates every subpath with straight segments. The maximum
// distance between a flattened subpath and the original curve is below tol.
func (p *Path) Flatten(tol float64) []Polyline {
	out := make([]Polyline, 0, len(p.Subpaths))
	for _, sp := range p.Subpaths {
		if len(sp.Segments) == 0 {
			continue
		}
		pts := orb.LineString{sp.Start}
		cur := sp.Start
		for _, s := range sp.Segments {
			pts = s.flatten(cur, tol, pts)
			cur = s.End()
		}
		out = append(out, Polyline{Points: pts, Closed: sp.Closed})
	}
	return out
}

func (l Line) flatten(_ orb.Point, _ float64, out orb.LineString) orb.LineString {
	return append(out, l.To)
}

func (q Quad) flatten(start orb.Point, tol float64, out orb.LineString) orb.LineString {
	return q.Elevate(start).flatten(start, tol, out)
}

// Elevate returns the cubic that traces exactly the same curve.
func (q Quad) Elevate(start orb.Point) Cubic {
	return Cubic{
		C1: lerp(start, q.C, 2.0/3.0),
		C2: lerp(q.To, q.C, 2.0/3.0),
		To: q.To,
	}
}

func (c Cubic) flatten(start orb.Point, tol float64, out orb.LineString) orb.LineString {
	return flattenCubic(start, c.C1, c.C2, c.To, tol, 0, out)
}

// flattenCubic subdivides until both inner control points are within tol of
// the chord segment. The curve lies in the convex hull of its control
// points, and distance to a segment is convex, so the whole curve is then
// within that distance of the chord. Measuring to the segment rather than
// the infinite line keeps the bound valid for collinear control points that
// overshoot the endpoints.
func flattenCubic(p0, p1, p2, p3 orb.Point, tol float64, depth int, out orb.LineString) orb.LineString {
	d := math.Max(segmentDistance(p1, p0, p3), segmentDistance(p2, p0, p3))
	if d < tol || depth >= maxSubdivision || math.IsNaN(d) {
		return append(out, p3)
	}
	p01 := mid(p0, p1)
	p12 := mid(p1, p2)
	p23 := mid(p2, p3)
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	m := mid(p012, p123)
	out = flattenCubic(p0, p01, p012, m, tol, depth+1, out)
	return flattenCubic(m, p123, p23, p3, tol, depth+1, out)
}

// The chord of a parameter step delta on the unit circle deviates from the
// arc by 1-cos(delta/2). The ellipse is the image of the unit circle under
// [U V], which stretches distances by at most its largest singular value.
func (a Arc) flatten(_ orb.Point, tol float64, out orb.LineString) orb.LineString {
	sigma, _, _ := principalAxes(a.U, a.V)
	end := a.End()
	if sigma == 0 || a.Sweep == 0 {
		return append(out, end)
	}
	step := math.Pi / 2
	if r := tol / sigma; r < 1 {
		step = math.Min(step, 2*math.Acos(1-0.999*r))
	}
	n := int(math.Ceil(math.Abs(a.Sweep) / step))
	if n < 1 {
		n = 1
	}
	for i := 1; i < n; i++ {
		out = append(out, a.At(a.Start+a.Sweep*float64(i)/float64(n)))
	}
	return append(out, end)
}

func mid(a, b orb.Point) orb.Point {
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy))
}

// PointAt evaluates the cubic at t.
func (c Cubic) PointAt(start orb.Point, t float64) orb.Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	cc := 3 * mt * t * t
	d := t * t * t
	return orb.Point{
		a*start[0] + b*c.C1[0] + cc*c.C2[0] + d*c.To[0],
		a*start[1] + b*c.C1[1] + cc*c.C2[1] + d*c.To[1],
	}
}

// DistanceToPolyline returns the distance from p to the nearest point of ls.
func DistanceToPolyline(p orb.Point, ls orb.LineString) float64 {
	if len(ls) == 0 {
		return math.Inf(1)
	}
	if len(ls) == 1 {
		return math.Hypot(p[0]-ls[0][0], p[1]-ls[0][1])
	}
	best := math.Inf(1)
	for i := 1; i < len(ls); i++ {
		best = math.Min(best, segmentDistance(p, ls[i-1], ls[i]))
	}
	return best
}
