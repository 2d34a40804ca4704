package slides

import (
	"archive/zip"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/geometry"
	"github.com/phrazzld/flatmap-maker/internal/markup"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/source"
)

// MetresPerEMU scales slide coordinates into a layer's local frame.
const MetresPerEMU = 0.1

// Parser reads slide decks.
type Parser struct {
	logger *slog.Logger
}

var _ source.Parser = (*Parser)(nil)

// NewParser returns a slide deck parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "slides_parser"))}
}

// Parse reads the deck at src.Href.
func (p *Parser) Parse(ctx context.Context, src domain.Source) ([]*domain.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zr, err := zip.OpenReader(src.Href)
	if err != nil {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "document", Reason: "cannot open slide deck", Err: err}
	}
	defer func() { _ = zr.Close() }()
	return p.ParseArchive(ctx, src, &zr.Reader)
}

// ParseArchive converts an opened deck into its base layer followed by one
// detail layer per later slide.
func (p *Parser) ParseArchive(ctx context.Context, src domain.Source, zr *zip.Reader) ([]*domain.Layer, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	d, err := openDeck(zr)
	if err != nil {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "presentation", Reason: "invalid presentation", Err: err}
	}
	frame := geometry.Translate(-d.width/2, -d.height/2).Then(geometry.Scale(MetresPerEMU, -MetresPerEMU))

	problems := &source.Problems{SourceID: src.ID}
	slides := make([]*slide, 0, len(d.slides))
	for i, part := range d.slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &slide{
			ctx:      ctx,
			number:   i + 1,
			src:      src,
			problems: problems,
			logger:   log,
			details:  map[string]markup.Details{},
		}
		doc, err := d.xml(part)
		if err != nil {
			problems.Add(s.region(), "cannot read slide", err)
			continue
		}
		s.build(doc.Root(), frame)
		slides = append(slides, s)
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}

	anchor(slides, problems)
	if err := problems.Err(); err != nil {
		return nil, err
	}

	layers := make([]*domain.Layer, len(slides))
	for i, s := range slides {
		layers[i] = s.layer
	}
	log.DebugContext(ctx, "parsed slide deck",
		slog.String("source", src.ID),
		slog.Int("slides", len(slides)))
	return layers, nil
}

// slide accumulates the layer of one slide.
type slide struct {
	ctx      context.Context
	number   int
	src      domain.Source
	problems *source.Problems
	logger   *slog.Logger

	layer      *domain.Layer
	directive  *markup.Layer
	pending    []pendingID
	boundaries []*domain.Feature
	details    map[string]markup.Details // detail layer id -> reference, base slide only
}

// pendingID is a feature whose id is generated once the layer id is known.
type pendingID struct {
	feature *domain.Feature
	shapeID string
}

func (s *slide) region() string {
	return fmt.Sprintf("slide %d", s.number)
}

func (s *slide) build(root *etree.Element, frame geometry.Affine) {
	kind := domain.LayerKindDetail
	if s.number == 1 {
		kind = domain.LayerKindBase
	}
	s.layer = domain.NewLayer("", s.src.ID, kind)

	csld := root.SelectElement("cSld")
	if csld == nil {
		s.problems.Addf(s.region(), "slide has no content")
		return
	}
	if bg := csld.SelectElement("bg"); bg != nil {
		if colour := fillColour(bg.SelectElement("bgPr")); colour != "" {
			s.layer.Properties["background"] = colour
		}
	}
	if tree := csld.SelectElement("spTree"); tree != nil {
		s.walk(tree, frame)
	}

	s.layer.ID = s.defaultLayerID()
	if d := s.directive; d != nil {
		if d.ID != "" {
			s.layer.ID = d.ID
		}
		s.layer.Description = d.Description
		s.layer.Boundary = d.Boundary
		s.layer.Outline = d.Outline
		if d.Models != "" {
			s.layer.Properties[domain.PropModels] = d.Models
		}
		if len(d.Zoom) == 3 {
			s.layer.Properties["zoom"] = d.Zoom
			s.layer.MinZoom = d.Zoom[0]
		}
	}
	for _, p := range s.pending {
		p.feature.ID = fmt.Sprintf("%s_%s", s.layer.ID, p.shapeID)
	}
}

func (s *slide) defaultLayerID() string {
	if s.number == 1 {
		return s.src.ID
	}
	return fmt.Sprintf("%s_%d", s.src.ID, s.number)
}

func (s *slide) walk(parent *etree.Element, ctm geometry.Affine) {
	for _, el := range parent.ChildElements() {
		switch el.Tag {
		case "sp", "cxnSp":
			s.shape(el, ctm)
		case "grpSp":
			var xfrm *etree.Element
			if pr := el.SelectElement("grpSpPr"); pr != nil {
				xfrm = pr.SelectElement("xfrm")
			}
			if xfrm == nil {
				s.walk(el, ctm)
				continue
			}
			t, err := groupTransform(xfrm)
			if err != nil {
				s.problems.Add(fmt.Sprintf("%s group %s", s.region(), shapeID(el)), "invalid group transform", err)
				continue
			}
			s.walk(el, t.Then(ctm))
		}
	}
}

func (s *slide) shape(el *etree.Element, ctm geometry.Affine) {
	id, name := shapeID(el), shapeName(el)
	where := fmt.Sprintf("%s shape %s", s.region(), id)

	text := shapeText(el)
	if markup.IsMarkup(text) {
		s.layerDirective(where, text)
		return
	}

	spPr := el.SelectElement("spPr")
	var path *geometry.Path
	var b box
	if spPr != nil && (spPr.SelectElement("custGeom") != nil || spPr.SelectElement("prstGeom") != nil) {
		var err error
		if b, err = readBox(spPr.SelectElement("xfrm")); err != nil {
			s.problems.Add(where, "invalid shape frame", err)
			return
		}
		if path, err = shapePath(spPr, b); err != nil {
			s.problems.Add(where, "invalid geometry", err)
			return
		}
	}
	if path == nil {
		if markup.IsMarkup(name) {
			s.problems.Addf(where, "markup %q on a shape without geometry", name)
			return
		}
		s.logger.DebugContext(s.ctx, "skipping shape without geometry",
			slog.String("source", s.src.ID),
			slog.String("region", where))
		return
	}
	if path.Empty() {
		s.problems.Addf(where, "shape has no drawable geometry")
		return
	}

	var m markup.Shape
	if markup.IsMarkup(name) {
		var err error
		if m, err = markup.ParseShape(name); err != nil {
			s.problems.Add(where, "invalid markup", err)
			return
		}
		for _, w := range m.Warnings {
			s.logger.WarnContext(s.ctx, "markup warning",
				slog.String("source", s.src.ID),
				slog.String("region", where),
				slog.String("warning", w))
		}
	}

	f := domain.NewFeature(m.ID, path.Transform(b.transform().Then(ctm)))
	f.SetProperty(domain.PropShapeID, id)
	if markup.IsMarkup(name) {
		f.Markup = name
	} else if name != "" {
		f.SetProperty(domain.PropName, name)
	}
	if colour := fillColour(spPr); colour != "" {
		f.SetProperty("fill", colour)
	}
	if text != "" && m.Label == "" {
		f.SetProperty(domain.PropLabel, text)
	}
	for k, v := range m.Properties() {
		f.SetProperty(k, v)
	}
	if f.ID == "" {
		s.pending = append(s.pending, pendingID{feature: f, shapeID: id})
	}
	if m.Has(domain.PropBoundary) {
		s.boundaries = append(s.boundaries, f)
	}
	if m.Details != nil {
		s.details[m.Details.LayerID] = *m.Details
	}
	s.layer.Add(f)
}

func (s *slide) layerDirective(where, text string) {
	if s.directive != nil {
		s.problems.Addf(where, "slide has more than one layer directive")
		return
	}
	d, err := markup.ParseLayer(text)
	if err != nil {
		s.problems.Add(where, "invalid layer directive", err)
		return
	}
	s.directive = &d
}

// anchor resolves the boundary feature of every detail slide: an explicit
// directive wins, then a base shape's details() reference, then a detail
// shape flagged boundary whose id is also a base feature, then any detail
// shape whose id is also a base feature.
func anchor(slides []*slide, problems *source.Problems) {
	if len(slides) == 0 {
		return
	}
	base := slides[0]
	baseIDs := map[string]bool{}
	refs := map[string]string{}
	for _, f := range base.layer.Features {
		baseIDs[f.ID] = true
		if layerID := f.StringProperty(domain.PropDetails); layerID != "" {
			refs[layerID] = f.ID
		}
	}

	for _, s := range slides[1:] {
		l := s.layer
		ref, referenced := refs[l.ID]
		if referenced {
			l.MinZoom = base.details[l.ID].Zoom
		}
		if l.Boundary == "" {
			if referenced {
				l.Boundary = ref
			} else {
				l.Boundary = implicitAnchor(baseIDs, s.boundaries, l.Features)
				if l.Outline == "" {
					l.Outline = l.Boundary
				}
			}
		}
		if l.Outline == "" && len(s.boundaries) > 0 {
			l.Outline = s.boundaries[0].ID
		}
		if l.Boundary == "" {
			problems.Addf(s.region(), "detail slide %q has no boundary anchor", l.ID)
		}
	}
}

// implicitAnchor returns the id of the first shape, among flagged
// boundaries and then all shapes, that is also a base feature id.
func implicitAnchor(baseIDs map[string]bool, candidates ...[]*domain.Feature) string {
	for _, features := range candidates {
		for _, f := range features {
			if baseIDs[f.ID] {
				return f.ID
			}
		}
	}
	return ""
}

// nonVisual returns the cNvPr element of a shape or group.
func nonVisual(el *etree.Element) *etree.Element {
	for _, c := range el.ChildElements() {
		if strings.HasPrefix(c.Tag, "nv") {
			return c.SelectElement("cNvPr")
		}
	}
	return nil
}

func shapeID(el *etree.Element) string {
	if nv := nonVisual(el); nv != nil {
		return nv.SelectAttrValue("id", "")
	}
	return ""
}

func shapeName(el *etree.Element) string {
	if nv := nonVisual(el); nv != nil {
		return strings.TrimSpace(nv.SelectAttrValue("name", ""))
	}
	return ""
}

// shapeText returns the text of a shape's text body, one line per
// paragraph.
func shapeText(el *etree.Element) string {
	body := el.SelectElement("txBody")
	if body == nil {
		return ""
	}
	var lines []string
	for _, p := range body.SelectElements("p") {
		var sb strings.Builder
		for _, t := range p.FindElements(".//t") {
			sb.WriteString(t.Text())
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
