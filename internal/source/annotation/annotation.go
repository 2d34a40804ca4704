package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/geometry"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/source"
)

// Parser reads MBF annotation sources.
type Parser struct {
	logger *slog.Logger
}

var _ source.Parser = (*Parser)(nil)

// NewParser returns an annotation parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "annotation_parser"))}
}

// Parse reads the annotation at src.Href into one detail layer anchored to
// src.Boundary.
func (p *Parser) Parse(ctx context.Context, src domain.Source) ([]*domain.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(src.Href); err != nil {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "document", Reason: "cannot read annotation", Err: err}
	}
	layer, err := p.ParseDocument(ctx, src, doc)
	if err != nil {
		return nil, err
	}
	return []*domain.Layer{layer}, nil
}

// ParseDocument converts an already loaded annotation document. Image
// pixel coordinates are flipped so y grows upwards.
func (p *Parser) ParseDocument(ctx context.Context, src domain.Source, doc *etree.Document) (*domain.Layer, error) {
	root := doc.Root()
	if root == nil || root.Tag != "mbf" {
		return nil, &domain.SourceParseError{SourceID: src.ID, Region: "document", Reason: "not an MBF annotation"}
	}
	if src.Boundary == "" {
		return nil, &domain.UnresolvedBoundaryError{SourceID: src.ID, LayerID: src.ID}
	}

	problems := &source.Problems{SourceID: src.ID}
	layer := domain.NewLayer(src.ID, src.ID, domain.LayerKindDetail)
	layer.Boundary = src.Boundary

	if img := root.FindElement(".//image"); img != nil {
		w, errW := attrFloat(img, "width")
		h, errH := attrFloat(img, "height")
		switch {
		case errW != nil || errH != nil:
			problems.Add("image", "invalid image size", firstErr(errW, errH))
		case w > 0 && h > 0:
			layer.LocalBounds = &orb.Bound{Min: orb.Point{0, -h}, Max: orb.Point{w, 0}}
		default:
			problems.Addf("image", "image size %gx%g is empty", w, h)
		}
	}

	for i, c := range root.FindElements(".//contour") {
		name := strings.TrimSpace(c.SelectAttrValue("name", ""))
		where := fmt.Sprintf("contour[%d]", i)
		if name != "" {
			where = fmt.Sprintf("contour %q", name)
		}

		path, err := contourPath(c)
		if err != nil {
			problems.Add(where, "invalid contour", err)
			continue
		}

		// Repeated names are kept; composition reports them as duplicates.
		id := name
		if id == "" {
			id = fmt.Sprintf("%s_%d", layer.ID, i+1)
		}

		f := domain.NewFeature(id, path)
		if name != "" {
			f.SetProperty(domain.PropName, name)
		}
		if colour := c.SelectAttrValue("color", ""); colour != "" {
			f.SetProperty("colour", colour)
		}
		layer.Add(f)
	}

	if err := problems.Err(); err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, p.logger).DebugContext(ctx, "parsed annotation source",
		slog.String("source", src.ID),
		slog.Int("contours", len(layer.Features)))
	return layer, nil
}

func contourPath(c *etree.Element) (*geometry.Path, error) {
	points := c.SelectElements("point")
	if len(points) < 2 {
		return nil, fmt.Errorf("contour has %d points", len(points))
	}
	path := geometry.NewPath()
	for i, pt := range points {
		x, err := attrFloat(pt, "x")
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		y, err := attrFloat(pt, "y")
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		if i == 0 {
			path.MoveTo(orb.Point{x, -y})
			continue
		}
		path.LineTo(orb.Point{x, -y})
	}
	closed, err := strconv.ParseBool(c.SelectAttrValue("closed", "false"))
	if err != nil {
		return nil, fmt.Errorf("closed: %w", err)
	}
	if closed {
		if len(points) < 3 {
			return nil, fmt.Errorf("closed contour has %d points", len(points))
		}
		path.Close()
	}
	return path, nil
}

func attrFloat(el *etree.Element, name string) (float64, error) {
	a := el.SelectAttr(name)
	if a == nil {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("attribute %s: %q is not a finite number", name, a.Value)
	}
	return v, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
