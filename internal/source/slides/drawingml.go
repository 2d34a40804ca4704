package slides

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/geometry"
)

// DrawingML angles are in 60000ths of a degree.
const angleUnit = math.Pi / 180 / 60000

// box is the frame of a shape or group in its parent's coordinates.
type box struct {
	x, y, cx, cy float64
	rot          float64 // radians, clockwise on the slide
	flipH, flipV bool
}

func readBox(xfrm *etree.Element) (box, error) {
	var b box
	if xfrm == nil {
		return b, errors.New("missing xfrm")
	}
	var err error
	if off := xfrm.SelectElement("off"); off != nil {
		if b.x, err = number(off, "x", 0); err != nil {
			return b, err
		}
		if b.y, err = number(off, "y", 0); err != nil {
			return b, err
		}
	}
	if ext := xfrm.SelectElement("ext"); ext != nil {
		if b.cx, err = number(ext, "cx", 0); err != nil {
			return b, err
		}
		if b.cy, err = number(ext, "cy", 0); err != nil {
			return b, err
		}
	}
	rot, err := number(xfrm, "rot", 0)
	if err != nil {
		return b, err
	}
	b.rot = rot * angleUnit
	b.flipH = boolAttr(xfrm, "flipH")
	b.flipV = boolAttr(xfrm, "flipV")
	return b, nil
}

// transform maps box-local coordinates, (0,0) to (cx,cy), into the parent.
// Flips and rotation are about the box centre.
func (b box) transform() geometry.Affine {
	fx, fy := 1.0, 1.0
	if b.flipH {
		fx = -1
	}
	if b.flipV {
		fy = -1
	}
	return geometry.Translate(-b.cx/2, -b.cy/2).
		Then(geometry.Scale(fx, fy)).
		Then(geometry.Rotate(b.rot)).
		Then(geometry.Translate(b.x+b.cx/2, b.y+b.cy/2))
}

// groupTransform maps a group's child coordinates into its parent.
func groupTransform(xfrm *etree.Element) (geometry.Affine, error) {
	b, err := readBox(xfrm)
	if err != nil {
		return geometry.Affine{}, err
	}
	var chX, chY, chCX, chCY float64
	if off := xfrm.SelectElement("chOff"); off != nil {
		if chX, err = number(off, "x", 0); err != nil {
			return geometry.Affine{}, err
		}
		if chY, err = number(off, "y", 0); err != nil {
			return geometry.Affine{}, err
		}
	}
	if ext := xfrm.SelectElement("chExt"); ext != nil {
		if chCX, err = number(ext, "cx", 0); err != nil {
			return geometry.Affine{}, err
		}
		if chCY, err = number(ext, "cy", 0); err != nil {
			return geometry.Affine{}, err
		}
	}
	sx, sy := 1.0, 1.0
	if chCX > 0 {
		sx = b.cx / chCX
	}
	if chCY > 0 {
		sy = b.cy / chCY
	}
	return geometry.Translate(-chX, -chY).Then(geometry.Scale(sx, sy)).Then(b.transform()), nil
}

// shapePath returns the outline described by a shape's properties in
// box-local coordinates. A nil path means the shape has no geometry.
func shapePath(spPr *etree.Element, b box) (*geometry.Path, error) {
	if spPr == nil {
		return nil, nil
	}
	if cust := spPr.SelectElement("custGeom"); cust != nil {
		return customGeometry(cust, b)
	}
	if prst := spPr.SelectElement("prstGeom"); prst != nil {
		return presetGeometry(prst, b)
	}
	return nil, nil
}

func customGeometry(cust *etree.Element, b box) (*geometry.Path, error) {
	list := cust.SelectElement("pathLst")
	if list == nil {
		return nil, errors.New("custom geometry has no path list")
	}
	out := geometry.NewPath()
	for i, pe := range list.SelectElements("path") {
		p, err := drawPath(pe)
		if err != nil {
			return nil, fmt.Errorf("path %d: %w", i, err)
		}
		w, err := number(pe, "w", 0)
		if err != nil {
			return nil, err
		}
		h, err := number(pe, "h", 0)
		if err != nil {
			return nil, err
		}
		sx, sy := 1.0, 1.0
		if w > 0 {
			sx = b.cx / w
		}
		if h > 0 {
			sy = b.cy / h
		}
		out.Append(p.Transform(geometry.Scale(sx, sy)))
	}
	return out, nil
}

// drawPath interprets the commands of one a:path in its own coordinates.
func drawPath(pe *etree.Element) (*geometry.Path, error) {
	p := geometry.NewPath()
	for _, c := range pe.ChildElements() {
		switch c.Tag {
		case "moveTo", "lnTo":
			pts, err := points(c, 1)
			if err != nil {
				return nil, err
			}
			if c.Tag == "moveTo" {
				p.MoveTo(pts[0])
			} else {
				p.LineTo(pts[0])
			}
		case "cubicBezTo":
			pts, err := points(c, 3)
			if err != nil {
				return nil, err
			}
			p.CubicTo(pts[0], pts[1], pts[2])
		case "quadBezTo":
			pts, err := points(c, 2)
			if err != nil {
				return nil, err
			}
			p.QuadTo(pts[0], pts[1])
		case "arcTo":
			var v [4]float64
			for i, name := range []string{"wR", "hR", "stAng", "swAng"} {
				n, err := number(c, name, math.NaN())
				if err != nil {
					return nil, err
				}
				if math.IsNaN(n) {
					return nil, fmt.Errorf("arcTo: missing %s", name)
				}
				v[i] = n
			}
			switch seg := geometry.EllipseArc(p.Current(), v[0], v[1], v[2]*angleUnit, v[3]*angleUnit).(type) {
			case geometry.Line:
				p.LineTo(seg.To)
			case geometry.Arc:
				p.ArcTo(seg)
			}
		case "close":
			p.Close()
		default:
			return nil, fmt.Errorf("unsupported path command %s", c.Tag)
		}
	}
	return p, nil
}

func points(c *etree.Element, n int) ([]orb.Point, error) {
	pts := c.SelectElements("pt")
	if len(pts) != n {
		return nil, fmt.Errorf("%s: expected %d points, got %d", c.Tag, n, len(pts))
	}
	out := make([]orb.Point, n)
	for i, pt := range pts {
		x, err := number(pt, "x", math.NaN())
		if err != nil {
			return nil, err
		}
		y, err := number(pt, "y", math.NaN())
		if err != nil {
			return nil, err
		}
		if math.IsNaN(x) || math.IsNaN(y) {
			return nil, fmt.Errorf("%s: point %d is incomplete", c.Tag, i)
		}
		out[i] = orb.Point{x, y}
	}
	return out, nil
}

// defaultRoundRectAdjust is the corner radius of roundRect as a fraction
// of the shorter side, in 100000ths.
const defaultRoundRectAdjust = 16667

func presetGeometry(prst *etree.Element, b box) (*geometry.Path, error) {
	w, h := b.cx, b.cy
	switch name := prst.SelectAttrValue("prst", ""); name {
	case "rect":
		return geometry.Rect(0, 0, w, h, 0, 0), nil
	case "roundRect":
		adj, err := adjustValue(prst, "adj", defaultRoundRectAdjust)
		if err != nil {
			return nil, err
		}
		r := math.Min(w, h) * adj / 100000
		return geometry.Rect(0, 0, w, h, r, r), nil
	case "ellipse":
		return geometry.Ellipse(w/2, h/2, w/2, h/2), nil
	case "triangle":
		return geometry.Polygon(orb.Point{w / 2, 0}, orb.Point{w, h}, orb.Point{0, h}), nil
	case "rtTriangle":
		return geometry.Polygon(orb.Point{0, h}, orb.Point{0, 0}, orb.Point{w, h}), nil
	case "diamond":
		return geometry.Polygon(orb.Point{w / 2, 0}, orb.Point{w, h / 2}, orb.Point{w / 2, h}, orb.Point{0, h / 2}), nil
	case "line", "straightConnector1":
		return geometry.OpenPath(orb.Point{0, 0}, orb.Point{w, h}), nil
	default:
		return nil, fmt.Errorf("unsupported preset geometry %q", name)
	}
}

// adjustValue reads an "val N" guide from a preset's adjust list.
func adjustValue(prst *etree.Element, name string, def float64) (float64, error) {
	list := prst.SelectElement("avLst")
	if list == nil {
		return def, nil
	}
	for _, gd := range list.SelectElements("gd") {
		if gd.SelectAttrValue("name", "") != name {
			continue
		}
		val, ok := strings.CutPrefix(gd.SelectAttrValue("fmla", ""), "val ")
		if !ok {
			return 0, fmt.Errorf("guide %s: unsupported formula %q", name, gd.SelectAttrValue("fmla", ""))
		}
		return finite("guide "+name, val)
	}
	return def, nil
}

// fillColour returns the solid RGB fill of a shape or background, if any.
func fillColour(el *etree.Element) string {
	if el == nil {
		return ""
	}
	if c := el.FindElement("solidFill/srgbClr"); c != nil {
		if v := c.SelectAttrValue("val", ""); v != "" {
			return "#" + v
		}
	}
	return ""
}

// number reads a numeric attribute; a missing attribute yields def.
func number(el *etree.Element, name string, def float64) (float64, error) {
	a := el.SelectAttr(name)
	if a == nil {
		return def, nil
	}
	return finite(el.Tag+"@"+name, a.Value)
}

// finite parses s as a finite number.
func finite(what, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %q is not a finite number", what, s)
	}
	return v, nil
}

func boolAttr(el *etree.Element, name string) bool {
	v := el.SelectAttrValue(name, "")
	return v == "1" || v == "true"
}
