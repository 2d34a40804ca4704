package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Segment is one drawing primitive of a subpath. It starts at the end of
// the previous segment (or the subpath start).
type Segment interface {
	// End returns the segment's final point.
	End() orb.Point

	transform(m Affine) Segment
	flatten(start orb.Point, tol float64, out orb.LineString) orb.LineString
	extend(b orb.Bound) orb.Bound
	writeSVG(sb *strings.Builder)
}

// Line is a straight segment.
type Line struct {
	To orb.Point
}

// Cubic is a cubic Bézier segment.
type Cubic struct {
	C1, C2, To orb.Point
}

// Quad is a quadratic Bézier segment.
type Quad struct {
	C, To orb.Point
}

// Arc is an elliptical arc in centre form:
//
//	P(t) = Center + U*cos(t) + V*sin(t), t from Start to Start+Sweep
//
// U and V are conjugate semi-axes, so an affine image of an Arc is again an
// Arc with transformed Center, U and V.
type Arc struct {
	Center orb.Point
	U, V   orb.Point
	Start  float64
	Sweep  float64
}

// At returns the point at parameter t.
func (a Arc) At(t float64) orb.Point {
	s, c := math.Sincos(t)
	return orb.Point{
		a.Center[0] + a.U[0]*c + a.V[0]*s,
		a.Center[1] + a.U[1]*c + a.V[1]*s,
	}
}

// End implements Segment.
func (l Line) End() orb.Point { return l.To }

// End implements Segment.
func (c Cubic) End() orb.Point { return c.To }

// End implements Segment.
func (q Quad) End() orb.Point { return q.To }

// End implements Segment.
func (a Arc) End() orb.Point { return a.At(a.Start + a.Sweep) }

func (l Line) transform(m Affine) Segment {
	return Line{To: m.Apply(l.To)}
}

func (c Cubic) transform(m Affine) Segment {
	return Cubic{C1: m.Apply(c.C1), C2: m.Apply(c.C2), To: m.Apply(c.To)}
}

func (q Quad) transform(m Affine) Segment {
	return Quad{C: m.Apply(q.C), To: m.Apply(q.To)}
}

func (a Arc) transform(m Affine) Segment {
	return Arc{
		Center: m.Apply(a.Center),
		U:      m.ApplyVector(a.U),
		V:      m.ApplyVector(a.V),
		Start:  a.Start,
		Sweep:  a.Sweep,
	}
}

func (l Line) extend(b orb.Bound) orb.Bound { return b.Extend(l.To) }

func (c Cubic) extend(b orb.Bound) orb.Bound {
	return b.Extend(c.C1).Extend(c.C2).Extend(c.To)
}

func (q Quad) extend(b orb.Bound) orb.Bound { return b.Extend(q.C).Extend(q.To) }

// An arc lies inside the bounding box of its full ellipse.
func (a Arc) extend(b orb.Bound) orb.Bound {
	hx := math.Hypot(a.U[0], a.V[0])
	hy := math.Hypot(a.U[1], a.V[1])
	return b.Extend(orb.Point{a.Center[0] - hx, a.Center[1] - hy}).
		Extend(orb.Point{a.Center[0] + hx, a.Center[1] + hy})
}

// Subpath is a connected run of segments.
type Subpath struct {
	Start    orb.Point
	Segments []Segment
	Closed   bool
}

// Path is an ordered list of subpaths, as drawn by a source shape.
type Path struct {
	Subpaths []Subpath

	current  orb.Point
	needMove bool
}

// NewPath returns an empty path.
func NewPath() *Path {
	return &Path{needMove: true}
}

// Empty reports whether the path has no drawing segments.
func (p *Path) Empty() bool {
	for _, sp := range p.Subpaths {
		if len(sp.Segments) > 0 {
			return false
		}
	}
	return true
}

// Current returns the current point.
func (p *Path) Current() orb.Point {
	return p.current
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(pt orb.Point) {
	p.trimEmpty()
	p.Subpaths = append(p.Subpaths, Subpath{Start: pt})
	p.current = pt
	p.needMove = false
}

// LineTo appends a straight segment.
func (p *Path) LineTo(pt orb.Point) {
	p.add(Line{To: pt})
}

// CubicTo appends a cubic Bézier segment.
func (p *Path) CubicTo(c1, c2, to orb.Point) {
	p.add(Cubic{C1: c1, C2: c2, To: to})
}

// QuadTo appends a quadratic Bézier segment.
func (p *Path) QuadTo(c, to orb.Point) {
	p.add(Quad{C: c, To: to})
}

// ArcTo appends an elliptical arc. The arc is expected to start at the
// current point.
func (p *Path) ArcTo(a Arc) {
	p.add(a)
}

// Close closes the current subpath. Drawing after Close without a MoveTo
// continues from the closed subpath's start.
func (p *Path) Close() {
	if p.needMove || len(p.Subpaths) == 0 {
		return
	}
	sp := &p.Subpaths[len(p.Subpaths)-1]
	sp.Closed = true
	p.current = sp.Start
	p.needMove = true
}

func (p *Path) add(s Segment) {
	if p.needMove || len(p.Subpaths) == 0 {
		start := p.current
		p.trimEmpty()
		p.Subpaths = append(p.Subpaths, Subpath{Start: start})
		p.needMove = false
	}
	sp := &p.Subpaths[len(p.Subpaths)-1]
	sp.Segments = append(sp.Segments, s)
	p.current = s.End()
}

// trimEmpty drops a trailing subpath that only holds a move.
func (p *Path) trimEmpty() {
	if n := len(p.Subpaths); n > 0 && len(p.Subpaths[n-1].Segments) == 0 {
		p.Subpaths = p.Subpaths[:n-1]
	}
}

// Transform returns a copy of the path with m applied to every control
// point.
func (p *Path) Transform(m Affine) *Path {
	out := &Path{
		Subpaths: make([]Subpath, len(p.Subpaths)),
		current:  m.Apply(p.current),
		needMove: p.needMove,
	}
	for i, sp := range p.Subpaths {
		segs := make([]Segment, len(sp.Segments))
		for j, s := range sp.Segments {
			segs[j] = s.transform(m)
		}
		out.Subpaths[i] = Subpath{Start: m.Apply(sp.Start), Segments: segs, Closed: sp.Closed}
	}
	return out
}

// Bound returns a box containing every point of the path.
func (p *Path) Bound() orb.Bound {
	var b orb.Bound
	first := true
	for _, sp := range p.Subpaths {
		if len(sp.Segments) == 0 {
			continue
		}
		if first {
			b = orb.Bound{Min: sp.Start, Max: sp.Start}
			first = false
		} else {
			b = b.Extend(sp.Start)
		}
		for _, s := range sp.Segments {
			b = s.extend(b)
		}
	}
	return b
}

// SVG renders the path as SVG path data.
func (p *Path) SVG() string {
	var sb strings.Builder
	for _, sp := range p.Subpaths {
		if len(sp.Segments) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("M")
		writePoint(&sb, sp.Start)
		for _, s := range sp.Segments {
			sb.WriteByte(' ')
			s.writeSVG(&sb)
		}
		if sp.Closed {
			sb.WriteString(" Z")
		}
	}
	return sb.String()
}

func writePoint(sb *strings.Builder, pt orb.Point) {
	sb.WriteString(formatFloat(pt[0]))
	sb.WriteByte(',')
	sb.WriteString(formatFloat(pt[1]))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 10, 64)
}

func (l Line) writeSVG(sb *strings.Builder) {
	sb.WriteString("L")
	writePoint(sb, l.To)
}

func (c Cubic) writeSVG(sb *strings.Builder) {
	sb.WriteString("C")
	writePoint(sb, c.C1)
	sb.WriteByte(' ')
	writePoint(sb, c.C2)
	sb.WriteByte(' ')
	writePoint(sb, c.To)
}

func (q Quad) writeSVG(sb *strings.Builder) {
	sb.WriteString("Q")
	writePoint(sb, q.C)
	sb.WriteByte(' ')
	writePoint(sb, q.To)
}

func (a Arc) writeSVG(sb *strings.Builder) {
	s1, s2, phi := principalAxes(a.U, a.V)
	large := "0"
	if math.Abs(a.Sweep) > math.Pi {
		large = "1"
	}
	sweep := "0"
	if a.Sweep*(a.U[0]*a.V[1]-a.U[1]*a.V[0]) > 0 {
		sweep = "1"
	}
	sb.WriteString("A")
	sb.WriteString(formatFloat(s1))
	sb.WriteByte(',')
	sb.WriteString(formatFloat(s2))
	sb.WriteByte(' ')
	sb.WriteString(formatFloat(phi * 180 / math.Pi))
	sb.WriteString(" " + large + "," + sweep + " ")
	writePoint(sb, a.End())
}

// principalAxes returns the singular values of the matrix [U V] and the
// direction of its major axis.
func principalAxes(u, v orb.Point) (major, minor, angle float64) {
	e := (u[0] + v[1]) / 2
	f := (u[0] - v[1]) / 2
	g := (u[1] + v[0]) / 2
	h := (u[1] - v[0]) / 2
	q := math.Hypot(e, h)
	r := math.Hypot(f, g)
	a1 := math.Atan2(g, f)
	a2 := math.Atan2(h, e)
	return q + r, math.Abs(q - r), (a2 + a1) / 2
}
