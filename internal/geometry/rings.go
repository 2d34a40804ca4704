package geometry

import (
	"errors"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DedupEpsilon is the distance under which consecutive vertices collapse.
const DedupEpsilon = 1e-9

// ErrEmptyGeometry is returned when a path flattens to nothing usable.
var ErrEmptyGeometry = errors.New("path has no drawable geometry")

// Geometry flattens the path and assembles polygons from its closed
// subpaths and line strings from its open ones.
func (p *Path) Geometry(tol float64) (orb.Geometry, error) {
	return Build(p.Flatten(tol))
}

// Build assembles flattened subpaths into an orb geometry. Closed rings are
// nested by containment: a ring directly inside an exterior becomes its
// hole, a ring inside a hole starts a new polygon. Exteriors are
// counter-clockwise and holes clockwise.
func Build(lines []Polyline) (orb.Geometry, error) {
	var rings []orb.Ring
	var open []orb.LineString
	for _, pl := range lines {
		pts := Dedup(pl.Points)
		if pl.Closed {
			if r, ok := closeRing(pts); ok {
				rings = append(rings, r)
				continue
			}
		}
		if len(pts) >= 2 {
			open = append(open, pts)
		}
	}

	polys := nestRings(rings)
	switch {
	case len(polys) == 0 && len(open) == 0:
		return nil, ErrEmptyGeometry
	case len(open) == 0:
		if len(polys) == 1 {
			return polys[0], nil
		}
		return polys, nil
	case len(polys) == 0:
		if len(open) == 1 {
			return open[0], nil
		}
		return orb.MultiLineString(open), nil
	default:
		c := orb.Collection{}
		for _, p := range polys {
			c = append(c, p)
		}
		for _, ls := range open {
			c = append(c, ls)
		}
		return c, nil
	}
}

// Dedup collapses consecutive vertices closer than DedupEpsilon.
func Dedup(ls orb.LineString) orb.LineString {
	if len(ls) == 0 {
		return ls
	}
	out := make(orb.LineString, 0, len(ls))
	out = append(out, ls[0])
	for _, pt := range ls[1:] {
		last := out[len(out)-1]
		if math.Hypot(pt[0]-last[0], pt[1]-last[1]) <= DedupEpsilon {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// closeRing returns a closed ring, or false when fewer than three distinct
// vertices or zero area remain.
func closeRing(pts orb.LineString) (orb.Ring, bool) {
	if len(pts) >= 2 {
		first, last := pts[0], pts[len(pts)-1]
		if math.Hypot(first[0]-last[0], first[1]-last[1]) <= DedupEpsilon {
			pts = pts[:len(pts)-1]
		}
	}
	if len(pts) < 3 {
		return nil, false
	}
	r := make(orb.Ring, 0, len(pts)+1)
	r = append(r, pts...)
	r = append(r, pts[0])
	if signedArea(r) == 0 {
		return nil, false
	}
	return r, true
}

type placedRing struct {
	ring     orb.Ring
	area     float64
	exterior bool
	polygon  int
}

func nestRings(rings []orb.Ring) orb.MultiPolygon {
	order := make([]int, len(rings))
	areas := make([]float64, len(rings))
	for i, r := range rings {
		order[i] = i
		areas[i] = math.Abs(signedArea(r))
	}
	sort.SliceStable(order, func(a, b int) bool { return areas[order[a]] > areas[order[b]] })

	var polys orb.MultiPolygon
	var placed []placedRing
	for _, idx := range order {
		r := rings[idx]
		probe := interiorProbe(r)
		parent := -1
		for i, pr := range placed {
			if planar.RingContains(pr.ring, probe) && (parent < 0 || pr.area < placed[parent].area) {
				parent = i
			}
		}
		if parent >= 0 && placed[parent].exterior {
			pi := placed[parent].polygon
			polys[pi] = append(polys[pi], orientRing(r, false))
			placed = append(placed, placedRing{ring: r, area: areas[idx], polygon: pi})
			continue
		}
		polys = append(polys, orb.Polygon{orientRing(r, true)})
		placed = append(placed, placedRing{ring: r, area: areas[idx], exterior: true, polygon: len(polys) - 1})
	}
	return polys
}

// interiorProbe returns a point near the ring's first vertex, nudged along
// the inward bisector so that containment tests do not land on shared
// boundaries.
func interiorProbe(r orb.Ring) orb.Point {
	n := len(r) - 1
	p := r[0]
	prev := r[n-1]
	next := r[1]
	cx := (prev[0] + p[0] + next[0]) / 3
	cy := (prev[1] + p[1] + next[1]) / 3
	probe := orb.Point{p[0] + (cx-p[0])*1e-6, p[1] + (cy-p[1])*1e-6}
	if planar.RingContains(r, probe) {
		return probe
	}
	return p
}

func orientRing(r orb.Ring, exterior bool) orb.Ring {
	ccw := signedArea(r) > 0
	if ccw != exterior {
		r.Reverse()
	}
	return r
}

func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

// Orient returns g with exterior rings counter-clockwise and holes
// clockwise. Rings are reoriented in place.
func Orient(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Polygon:
		for i, r := range g {
			g[i] = orientRing(r, i == 0)
		}
		return g
	case orb.MultiPolygon:
		for _, p := range g {
			Orient(p)
		}
		return g
	case orb.Collection:
		for i := range g {
			g[i] = Orient(g[i])
		}
		return g
	}
	return g
}
