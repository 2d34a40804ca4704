package labels

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Place returns the label point for g. Polygons use their area centroid when
// it lies inside the polygon, otherwise the midpoint of the widest interior
// span on the horizontal line through the centre of their bound. Lines use
// the point halfway along their length and points use themselves. The
// second result is false for empty geometry.
func Place(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[0], true
	case orb.LineString:
		return alongLine(g)
	case orb.MultiLineString:
		var longest orb.LineString
		best := -1.0
		for _, ls := range g {
			if l := planar.Length(ls); l > best {
				longest, best = ls, l
			}
		}
		return alongLine(longest)
	case orb.Ring:
		return inPolygon(orb.Polygon{g})
	case orb.Polygon:
		return inPolygon(g)
	case orb.MultiPolygon:
		var largest orb.Polygon
		best := -1.0
		for _, p := range g {
			if a := math.Abs(planar.Area(p)); a > best {
				largest, best = p, a
			}
		}
		return inPolygon(largest)
	case orb.Collection:
		for _, child := range g {
			if p, ok := Place(child); ok {
				return p, true
			}
		}
	}
	return orb.Point{}, false
}

func alongLine(ls orb.LineString) (orb.Point, bool) {
	switch len(ls) {
	case 0:
		return orb.Point{}, false
	case 1:
		return ls[0], true
	}
	half := planar.Length(ls) / 2
	for i := 1; i < len(ls); i++ {
		d := planar.Distance(ls[i-1], ls[i])
		if d >= half && d > 0 {
			t := half / d
			return orb.Point{
				ls[i-1][0] + t*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + t*(ls[i][1]-ls[i-1][1]),
			}, true
		}
		half -= d
	}
	return ls[len(ls)-1], true
}

func inPolygon(p orb.Polygon) (orb.Point, bool) {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}, false
	}
	c, area := planar.CentroidArea(p)
	if area != 0 && planar.PolygonContains(p, c) {
		return c, true
	}
	if pt, ok := widestSpan(p); ok {
		return pt, true
	}
	return c, true
}

// widestSpan scans the horizontal line through the centre of p's bound and
// returns the midpoint of the widest stretch inside p. Holes count as
// outside.
func widestSpan(p orb.Polygon) (orb.Point, bool) {
	y := p.Bound().Center()[1]
	var xs []float64
	for _, r := range p {
		for i := 0; i < len(r); i++ {
			a, b := r[i], r[(i+1)%len(r)]
			if (a[1] <= y) == (b[1] <= y) {
				continue
			}
			t := (y - a[1]) / (b[1] - a[1])
			xs = append(xs, a[0]+t*(b[0]-a[0]))
		}
	}
	if len(xs) < 2 {
		return orb.Point{}, false
	}
	sort.Float64s(xs)

	best, at := -1.0, 0.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > best {
			best, at = w, (xs[i]+xs[i+1])/2
		}
	}
	return orb.Point{at, y}, true
}
