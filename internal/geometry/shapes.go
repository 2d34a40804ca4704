package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Polygon returns a closed path through pts.
func Polygon(pts ...orb.Point) *Path {
	p := NewPath()
	if len(pts) == 0 {
		return p
	}
	p.MoveTo(pts[0])
	for _, pt := range pts[1:] {
		p.LineTo(pt)
	}
	p.Close()
	return p
}

// Rect returns the closed outline of an axis-aligned rectangle. Corners are
// rounded with radii rx and ry when both are positive.
func Rect(x, y, w, h, rx, ry float64) *Path {
	if rx <= 0 || ry <= 0 {
		return Polygon(orb.Point{x, y}, orb.Point{x + w, y}, orb.Point{x + w, y + h}, orb.Point{x, y + h})
	}
	corner := func(cx, cy, start float64) Arc {
		return Arc{
			Center: orb.Point{cx, cy},
			U:      orb.Point{rx, 0},
			V:      orb.Point{0, ry},
			Start:  start,
			Sweep:  math.Pi / 2,
		}
	}
	p := NewPath()
	p.MoveTo(orb.Point{x + rx, y})
	p.LineTo(orb.Point{x + w - rx, y})
	p.ArcTo(corner(x+w-rx, y+ry, -math.Pi/2))
	p.LineTo(orb.Point{x + w, y + h - ry})
	p.ArcTo(corner(x+w-rx, y+h-ry, 0))
	p.LineTo(orb.Point{x + rx, y + h})
	p.ArcTo(corner(x+rx, y+h-ry, math.Pi/2))
	p.LineTo(orb.Point{x, y + ry})
	p.ArcTo(corner(x+rx, y+ry, math.Pi))
	p.Close()
	return p
}

// Ellipse returns the closed outline of an axis-aligned ellipse.
func Ellipse(cx, cy, rx, ry float64) *Path {
	p := NewPath()
	p.MoveTo(orb.Point{cx + rx, cy})
	p.ArcTo(Arc{
		Center: orb.Point{cx, cy},
		U:      orb.Point{rx, 0},
		V:      orb.Point{0, ry},
		Sweep:  2 * math.Pi,
	})
	p.Close()
	return p
}

// OpenPath returns an open path through pts.
func OpenPath(pts ...orb.Point) *Path {
	p := NewPath()
	if len(pts) == 0 {
		return p
	}
	p.MoveTo(pts[0])
	for _, pt := range pts[1:] {
		p.LineTo(pt)
	}
	return p
}

// Append adds the subpaths of other to p.
func (p *Path) Append(other *Path) {
	for _, sp := range other.Subpaths {
		if len(sp.Segments) == 0 {
			continue
		}
		p.Subpaths = append(p.Subpaths, sp)
		p.current = sp.Start
		if n := len(sp.Segments); n > 0 && !sp.Closed {
			p.current = sp.Segments[n-1].End()
		}
	}
	p.needMove = true
}
