package svg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/geometry"
	"github.com/phrazzld/flatmap-maker/internal/markup"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/source"
)

// geometryAttrs are consumed by the parser and not copied into properties.
var geometryAttrs = map[string]bool{
	"id": true, "d": true, "transform": true, "points": true,
	"x": true, "y": true, "width": true, "height": true, "rx": true, "ry": true,
	"cx": true, "cy": true, "r": true, "x1": true, "y1": true, "x2": true, "y2": true,
}

// shapeTags are the elements that become features.
var shapeTags = map[string]bool{
	"path": true, "rect": true, "circle": true, "ellipse": true,
	"line": true, "polyline": true, "polygon": true,
}

// Parser reads SVG sources.
type Parser struct {
	logger *slog.Logger
}

var _ source.Parser = (*Parser)(nil)

// NewParser returns an SVG parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "svg_parser"))}
}

// Parse reads the document at src.Href.
func (p *Parser) Parse(ctx context.Context, src domain.Source) ([]*domain.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(src.Href); err != nil {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "document", Reason: "cannot read SVG", Err: err}
	}
	layer, err := p.ParseDocument(ctx, src, doc)
	if err != nil {
		return nil, err
	}
	return []*domain.Layer{layer}, nil
}

// ParseDocument converts an already loaded SVG document.
func (p *Parser) ParseDocument(ctx context.Context, src domain.Source, doc *etree.Document) (*domain.Layer, error) {
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "document", Reason: "not an SVG document"}
	}

	b := &builder{
		ctx:      ctx,
		src:      src,
		problems: &source.Problems{SourceID: src.ID},
		logger:   logger.FromContextOrDefault(ctx, p.logger),
	}

	frame, bounds, err := viewport(root)
	if err != nil {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "svg", Reason: "invalid viewport", Err: err}
	}

	kind := domain.LayerKindDetail
	if src.Kind == domain.SourceKindBase {
		kind = domain.LayerKindBase
	}
	directive := b.directive(root)
	layerID := directive.ID
	if layerID == "" {
		layerID = src.ID
	}
	b.layer = domain.NewLayer(layerID, src.ID, kind)
	applyDirective(b.layer, directive)
	if kind == domain.LayerKindDetail {
		b.layer.LocalBounds = &bounds
	}

	b.walk(root, frame)

	if kind == domain.LayerKindDetail && b.layer.Boundary == "" {
		switch len(b.boundaries) {
		case 0:
			// Left for the composer, which may find a base feature whose
			// details() markup names this layer.
		case 1:
			b.layer.Boundary = b.boundaries[0]
			if b.layer.Outline == "" {
				b.layer.Outline = b.boundaries[0]
			}
		default:
			b.problems.Addf("svg", "several boundary shapes: %s", strings.Join(b.boundaries, ", "))
		}
	}

	if err := b.problems.Err(); err != nil {
		return nil, err
	}
	b.logger.DebugContext(ctx, "parsed SVG source",
		slog.String("source", src.ID),
		slog.String("layer", b.layer.ID),
		slog.Int("features", len(b.layer.Features)))
	return b.layer, nil
}

type builder struct {
	ctx        context.Context
	src        domain.Source
	layer      *domain.Layer
	problems   *source.Problems
	logger     *slog.Logger
	seq        int
	boundaries []string
}

func (b *builder) directive(root *etree.Element) markup.Layer {
	title := root.SelectElement("title")
	if title == nil {
		return markup.Layer{}
	}
	text := strings.TrimSpace(title.Text())
	if !markup.IsMarkup(text) {
		return markup.Layer{Description: text}
	}
	l, err := markup.ParseLayer(text)
	if err != nil {
		b.problems.Add("svg title", "invalid layer directive", err)
	}
	return l
}

func applyDirective(layer *domain.Layer, d markup.Layer) {
	layer.Description = d.Description
	layer.Boundary = d.Boundary
	layer.Outline = d.Outline
	if d.Models != "" {
		layer.Properties[domain.PropModels] = d.Models
	}
	if len(d.Zoom) == 3 {
		layer.Properties["zoom"] = d.Zoom
		layer.MinZoom = d.Zoom[0]
	}
}

func (b *builder) walk(parent *etree.Element, ctm geometry.Affine) {
	for _, el := range parent.ChildElements() {
		switch {
		case el.Tag == "g":
			t, err := elementTransform(el)
			if err != nil {
				b.problems.Add(region(el), "invalid transform", err)
				continue
			}
			b.walk(el, t.Then(ctm))
		case shapeTags[el.Tag]:
			b.shape(el, ctm)
		}
	}
}

func (b *builder) shape(el *etree.Element, ctm geometry.Affine) {
	where := region(el)

	t, err := elementTransform(el)
	if err != nil {
		b.problems.Add(where, "invalid transform", err)
		return
	}
	path, err := shapePath(el)
	if err != nil {
		b.problems.Add(where, "invalid geometry", err)
		return
	}
	if path.Empty() {
		b.problems.Addf(where, "%s has no drawable geometry", el.Tag)
		return
	}

	var shape markup.Shape
	var name, raw string
	if title := el.SelectElement("title"); title != nil {
		text := strings.TrimSpace(title.Text())
		if markup.IsMarkup(text) {
			raw = text
			shape, err = markup.ParseShape(text)
			if err != nil {
				b.problems.Add(where, "invalid markup", err)
				return
			}
			for _, w := range shape.Warnings {
				b.logger.WarnContext(b.ctx, "markup warning",
					slog.String("source", b.src.ID),
					slog.String("region", where),
					slog.String("warning", w))
			}
		} else {
			name = text
		}
	}

	id := shape.ID
	if id == "" {
		id = el.SelectAttrValue("id", "")
	}
	if id == "" {
		b.seq++
		id = fmt.Sprintf("%s_%d", b.layer.ID, b.seq)
	}

	f := domain.NewFeature(id, path.Transform(t.Then(ctm)))
	f.Markup = raw
	for _, a := range el.Attr {
		key := a.FullKey()
		if geometryAttrs[key] || a.Space == "xmlns" || key == "xmlns" {
			continue
		}
		f.SetProperty(key, a.Value)
	}
	if name != "" {
		f.SetProperty(domain.PropName, name)
	}
	for k, v := range shape.Properties() {
		f.SetProperty(k, v)
	}
	if shape.Has(domain.PropBoundary) {
		b.boundaries = append(b.boundaries, id)
	}
	b.layer.Add(f)
}

func region(el *etree.Element) string {
	if id := el.SelectAttrValue("id", ""); id != "" {
		return el.Tag + "#" + id
	}
	return fmt.Sprintf("%s[%d]", el.Tag, el.Index())
}

func elementTransform(el *etree.Element) (geometry.Affine, error) {
	attr := el.SelectAttrValue("transform", "")
	if attr == "" {
		return geometry.Identity(), nil
	}
	return parseTransform(attr)
}

// viewport maps the document's user space into a y-up frame and returns
// that frame's extent.
func viewport(root *etree.Element) (geometry.Affine, orb.Bound, error) {
	var minX, minY, w, h float64
	if vb := root.SelectAttrValue("viewBox", ""); vb != "" {
		sc := &scanner{s: vb}
		var vals []float64
		for !sc.done() {
			v, err := sc.number()
			if err != nil {
				return geometry.Affine{}, orb.Bound{}, fmt.Errorf("viewBox: %w", err)
			}
			vals = append(vals, v)
		}
		if len(vals) != 4 {
			return geometry.Affine{}, orb.Bound{}, fmt.Errorf("viewBox needs 4 numbers, got %d", len(vals))
		}
		minX, minY, w, h = vals[0], vals[1], vals[2], vals[3]
	} else {
		var err error
		if w, err = length(root, "width"); err != nil {
			return geometry.Affine{}, orb.Bound{}, err
		}
		if h, err = length(root, "height"); err != nil {
			return geometry.Affine{}, orb.Bound{}, err
		}
	}
	if !(w > 0 && h > 0) {
		return geometry.Affine{}, orb.Bound{}, errors.New("missing viewBox or document size")
	}
	frame := geometry.Affine{A: 1, C: -minX, E: -1, F: minY + h}
	return frame, orb.Bound{Max: orb.Point{w, h}}, nil
}

// length parses a numeric attribute, ignoring a trailing unit. A missing
// attribute is zero.
func length(el *etree.Element, name string) (float64, error) {
	s := strings.TrimSpace(el.SelectAttrValue(name, ""))
	if s == "" {
		return 0, nil
	}
	s = strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyz%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("attribute %s: %q is not a length", name, el.SelectAttrValue(name, ""))
	}
	return v, nil
}

func lengths(el *etree.Element, names ...string) ([]float64, error) {
	vals := make([]float64, len(names))
	for i, n := range names {
		v, err := length(el, n)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// shapePath builds the outline of a shape element in its user space.
func shapePath(el *etree.Element) (*geometry.Path, error) {
	switch el.Tag {
	case "path":
		d := el.SelectAttrValue("d", "")
		if strings.TrimSpace(d) == "" {
			return nil, errors.New("missing path data")
		}
		return parsePathData(d)
	case "rect":
		v, err := lengths(el, "x", "y", "width", "height")
		if err != nil {
			return nil, err
		}
		if !(v[2] > 0 && v[3] > 0) {
			return nil, fmt.Errorf("rect has size %gx%g", v[2], v[3])
		}
		rx, ry, err := cornerRadii(el, v[2], v[3])
		if err != nil {
			return nil, err
		}
		return geometry.Rect(v[0], v[1], v[2], v[3], rx, ry), nil
	case "circle":
		v, err := lengths(el, "cx", "cy", "r")
		if err != nil {
			return nil, err
		}
		if !(v[2] > 0) {
			return nil, fmt.Errorf("circle has radius %g", v[2])
		}
		return geometry.Ellipse(v[0], v[1], v[2], v[2]), nil
	case "ellipse":
		v, err := lengths(el, "cx", "cy", "rx", "ry")
		if err != nil {
			return nil, err
		}
		if !(v[2] > 0 && v[3] > 0) {
			return nil, fmt.Errorf("ellipse has radii %g, %g", v[2], v[3])
		}
		return geometry.Ellipse(v[0], v[1], v[2], v[3]), nil
	case "line":
		v, err := lengths(el, "x1", "y1", "x2", "y2")
		if err != nil {
			return nil, err
		}
		return geometry.OpenPath(orb.Point{v[0], v[1]}, orb.Point{v[2], v[3]}), nil
	case "polyline", "polygon":
		pts, err := parsePoints(el.SelectAttrValue("points", ""))
		if err != nil {
			return nil, err
		}
		if len(pts) < 2 {
			return nil, fmt.Errorf("%s needs at least two points", el.Tag)
		}
		if el.Tag == "polygon" {
			return geometry.Polygon(pts...), nil
		}
		return geometry.OpenPath(pts...), nil
	}
	return nil, fmt.Errorf("unsupported element %s", el.Tag)
}

func cornerRadii(el *etree.Element, w, h float64) (float64, float64, error) {
	rx, err := length(el, "rx")
	if err != nil {
		return 0, 0, err
	}
	ry, err := length(el, "ry")
	if err != nil {
		return 0, 0, err
	}
	if el.SelectAttr("rx") == nil {
		rx = ry
	}
	if el.SelectAttr("ry") == nil {
		ry = rx
	}
	return math.Min(math.Abs(rx), w/2), math.Min(math.Abs(ry), h/2), nil
}
