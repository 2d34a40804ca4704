package svg

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/geometry"
)

// ErrPathData is wrapped by every path data syntax error.
var ErrPathData = errors.New("invalid path data")

// scanner tokenizes SVG path data and point lists.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) skip() {
	for sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case ' ', '\t', '\r', '\n', '\f', ',':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *scanner) done() bool {
	sc.skip()
	return sc.pos >= len(sc.s)
}

func (sc *scanner) number() (float64, error) {
	sc.skip()
	start := sc.pos
	i := sc.pos
	if i < len(sc.s) && (sc.s[i] == '+' || sc.s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(sc.s) && isDigit(sc.s[i]) {
		i++
		digits++
	}
	if i < len(sc.s) && sc.s[i] == '.' {
		i++
		for i < len(sc.s) && isDigit(sc.s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, fmt.Errorf("%w: expected a number at offset %d", ErrPathData, start)
	}
	if i < len(sc.s) && (sc.s[i] == 'e' || sc.s[i] == 'E') {
		j := i + 1
		if j < len(sc.s) && (sc.s[j] == '+' || sc.s[j] == '-') {
			j++
		}
		if j < len(sc.s) && isDigit(sc.s[j]) {
			for j < len(sc.s) && isDigit(sc.s[j]) {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(sc.s[start:i], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrPathData, sc.s[start:i], err)
	}
	sc.pos = i
	return v, nil
}

// flag reads an arc flag, which may be written without a separator.
func (sc *scanner) flag() (bool, error) {
	sc.skip()
	if sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case '0':
			sc.pos++
			return false, nil
		case '1':
			sc.pos++
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: expected an arc flag at offset %d", ErrPathData, sc.pos)
}

func (sc *scanner) point() (orb.Point, error) {
	x, err := sc.number()
	if err != nil {
		return orb.Point{}, err
	}
	y, err := sc.number()
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x, y}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0
}

func add(a, b orb.Point) orb.Point { return orb.Point{a[0] + b[0], a[1] + b[1]} }

func reflect(ctrl, about orb.Point) orb.Point {
	return orb.Point{2*about[0] - ctrl[0], 2*about[1] - ctrl[1]}
}

// parsePathData parses the d attribute of a path element. Coordinates stay
// in the element's user space.
func parsePathData(d string) (*geometry.Path, error) {
	p := geometry.NewPath()
	sc := &scanner{s: d}

	var cmd byte
	var lastCubic, lastQuad orb.Point
	var prev byte // upper-case command of the previous segment

	for !sc.done() {
		if c := sc.s[sc.pos]; isCommand(c) {
			cmd = c
			sc.pos++
		} else if cmd == 0 {
			return nil, fmt.Errorf("%w: path data must start with a command", ErrPathData)
		} else if cmd == 'Z' || cmd == 'z' {
			return nil, fmt.Errorf("%w: unexpected %q after close", ErrPathData, c)
		}

		rel := cmd >= 'a'
		cur := p.Current()
		offset := func(pt orb.Point) orb.Point {
			if rel {
				return add(cur, pt)
			}
			return pt
		}

		upper := cmd &^ 0x20
		switch upper {
		case 'M':
			pt, err := sc.point()
			if err != nil {
				return nil, err
			}
			p.MoveTo(offset(pt))
			// Further pairs are implicit line-tos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			pt, err := sc.point()
			if err != nil {
				return nil, err
			}
			p.LineTo(offset(pt))
		case 'H':
			x, err := sc.number()
			if err != nil {
				return nil, err
			}
			if rel {
				x += cur[0]
			}
			p.LineTo(orb.Point{x, cur[1]})
		case 'V':
			y, err := sc.number()
			if err != nil {
				return nil, err
			}
			if rel {
				y += cur[1]
			}
			p.LineTo(orb.Point{cur[0], y})
		case 'C', 'S':
			c1 := cur
			if upper == 'C' {
				pt, err := sc.point()
				if err != nil {
					return nil, err
				}
				c1 = offset(pt)
			} else if prev == 'C' || prev == 'S' {
				c1 = reflect(lastCubic, cur)
			}
			c2, err := sc.point()
			if err != nil {
				return nil, err
			}
			to, err := sc.point()
			if err != nil {
				return nil, err
			}
			c2, to = offset(c2), offset(to)
			p.CubicTo(c1, c2, to)
			lastCubic = c2
		case 'Q', 'T':
			c := cur
			if upper == 'Q' {
				pt, err := sc.point()
				if err != nil {
					return nil, err
				}
				c = offset(pt)
			} else if prev == 'Q' || prev == 'T' {
				c = reflect(lastQuad, cur)
			}
			to, err := sc.point()
			if err != nil {
				return nil, err
			}
			p.QuadTo(c, offset(to))
			lastQuad = c
		case 'A':
			rx, err := sc.number()
			if err != nil {
				return nil, err
			}
			ry, err := sc.number()
			if err != nil {
				return nil, err
			}
			phi, err := sc.number()
			if err != nil {
				return nil, err
			}
			large, err := sc.flag()
			if err != nil {
				return nil, err
			}
			sweep, err := sc.flag()
			if err != nil {
				return nil, err
			}
			to, err := sc.point()
			if err != nil {
				return nil, err
			}
			appendSegment(p, geometry.EndpointArc(cur, rx, ry, phi*math.Pi/180, large, sweep, offset(to)))
		case 'Z':
			p.Close()
		}
		prev = upper
	}
	return p, nil
}

func appendSegment(p *geometry.Path, seg geometry.Segment) {
	switch s := seg.(type) {
	case geometry.Line:
		p.LineTo(s.To)
	case geometry.Arc:
		p.ArcTo(s)
	}
}

// parsePoints parses the points attribute of polyline and polygon.
func parsePoints(s string) ([]orb.Point, error) {
	sc := &scanner{s: s}
	var pts []orb.Point
	for !sc.done() {
		pt, err := sc.point()
		if err != nil {
			return nil, err
		}
		pts = append(pts, pt)
	}
	return pts, nil
}
