package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/geometry"
	"github.com/phrazzld/flatmap-maker/internal/labels"
	"github.com/phrazzld/flatmap-maker/internal/normalize"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/properties"
)

// DefaultMapWidth is the width of the flatmap frame, in projected metres,
// when Options.MapWidth is zero.
const DefaultMapWidth = 1_000_000.0

// Options supplies the documents and state composition reads.
type Options struct {
	AnatomicalMap properties.AnatomicalMap
	Properties    *properties.Document

	// MapWidth is the length of the longer side of the base layer once
	// placed in the flatmap frame.
	MapWidth float64

	// Labels, when set, is consulted and updated for every labelled
	// feature. Without a cache, labels are computed afresh.
	Labels *labels.Cache
}

// Composer merges normalized layers into a Flatmap.
type Composer struct {
	normalizer *normalize.Normalizer
	opts       Options
	logger     *slog.Logger
}

// New returns a Composer. If logger is nil, a default logger will be used.
func New(n *normalize.Normalizer, opts Options, logger *slog.Logger) *Composer {
	if n == nil {
		// ALLOW-PANIC: a nil normalizer is a programming error
		panic("normalizer cannot be nil")
	}
	if opts.MapWidth == 0 {
		opts.MapWidth = DefaultMapWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		normalizer: n,
		opts:       opts,
		logger:     logger.With(slog.String("component", "composer")),
	}
}

// Compose builds the flatmap declared by m from layers, which must already
// be normalized in their local coordinates. Layers are modified in place.
func (c *Composer) Compose(ctx context.Context, m *domain.Manifest, layers []*domain.Layer) (*domain.Flatmap, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkLayerIDs(layers); err != nil {
		return nil, err
	}
	base, err := baseLayer(layers)
	if err != nil {
		return nil, err
	}
	if err := checkFeatureIDs(layers); err != nil {
		return nil, err
	}

	graph, errs := buildAnchorGraph(base, layers)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	ordered, err := graph.order()
	if err != nil {
		return nil, err
	}

	if err := c.placeBase(base); err != nil {
		return nil, err
	}

	fm := &domain.Flatmap{ID: m.ID, Models: m.Models, Layers: []*domain.Layer{base}}
	for _, l := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l == base {
			continue
		}
		if err := c.anchor(base, l); err != nil {
			return nil, err
		}
		fm.Layers = append(fm.Layers, l)
		fm.Anchors = append(fm.Anchors, *l.Anchor)
		log.DebugContext(ctx, "anchored detail layer",
			slog.String("layer", l.ID),
			slog.String("boundary", l.Boundary))
	}

	for _, l := range fm.Layers {
		for _, f := range l.Features {
			properties.Apply(f, c.opts.AnatomicalMap, c.opts.Properties)
		}
	}
	c.placeLabels(fm)

	extent, ok := extentOf(fm.Layers)
	if !ok {
		return nil, fmt.Errorf("%w: flatmap %s has no geometry", normalize.ErrNoGeometry, m.ID)
	}
	fm.Extent = extent

	log.InfoContext(ctx, "composed flatmap",
		slog.String("flatmap", fm.ID),
		slog.Int("layers", len(fm.Layers)),
		slog.Int("anchors", len(fm.Anchors)))
	return fm, nil
}

// placeBase moves the base layer into the flatmap frame.
func (c *Composer) placeBase(base *domain.Layer) error {
	extent, ok := base.Bound()
	if !ok {
		return &domain.AnchorError{LayerID: base.ID, Reason: "base layer has no geometry"}
	}
	frame, err := normalize.FrameTransform(extent, c.opts.MapWidth)
	if err != nil {
		return &domain.AnchorError{LayerID: base.ID, Reason: "cannot place base layer", Err: err}
	}
	if err := c.normalizer.Reproject(base, frame); err != nil {
		return err
	}
	for _, f := range base.Features {
		f.SetProperty(domain.PropLayer, base.ID)
	}
	return nil
}

// anchor maps l's outline onto its boundary feature and reprojects l.
func (c *Composer) anchor(base, l *domain.Layer) error {
	target, _ := base.Feature(l.Boundary)
	if target.Geometry == nil {
		return &domain.AnchorError{LayerID: l.ID, BaseFeatureID: l.Boundary, Reason: "boundary feature has no geometry"}
	}

	from, err := outlineBound(l)
	if err != nil {
		return err
	}
	t, err := geometry.BoundsToBounds(from, target.Geometry.Bound())
	if err != nil {
		return &domain.AnchorError{LayerID: l.ID, BaseFeatureID: l.Boundary, Reason: "degenerate extent", Err: err}
	}
	if _, err := t.Inverse(); err != nil {
		return &domain.AnchorError{LayerID: l.ID, BaseFeatureID: l.Boundary, Reason: "transform is not invertible", Err: err}
	}
	if err := c.normalizer.Reproject(l, t); err != nil {
		return err
	}

	minZoom := l.MinZoom
	if minZoom == 0 {
		if z, ok := target.IntProperty(domain.PropMaxZoom); ok {
			minZoom = z + 1
		}
	}
	for _, f := range l.Features {
		f.SetProperty(domain.PropLayer, base.ID)
		if minZoom > 0 {
			f.SetProperty(domain.PropMinZoom, minZoom)
		}
	}
	l.Anchor = &domain.BoundaryAnchor{LayerID: l.ID, BaseFeatureID: l.Boundary, Transform: t}
	return nil
}

// outlineBound is the local extent mapped onto the boundary feature: the
// outline feature when named, otherwise the layer's declared local bounds,
// otherwise the extent of all its features.
func outlineBound(l *domain.Layer) (orb.Bound, error) {
	if l.Outline != "" {
		f, ok := l.Feature(l.Outline)
		if !ok || f.Geometry == nil {
			return orb.Bound{}, &domain.AnchorError{
				LayerID:       l.ID,
				BaseFeatureID: l.Boundary,
				Reason:        fmt.Sprintf("outline feature %q not found", l.Outline),
			}
		}
		return f.Geometry.Bound(), nil
	}
	if l.LocalBounds != nil {
		return *l.LocalBounds, nil
	}
	b, ok := l.Bound()
	if !ok {
		return orb.Bound{}, &domain.AnchorError{LayerID: l.ID, BaseFeatureID: l.Boundary, Reason: "layer has no geometry"}
	}
	return b, nil
}

func (c *Composer) placeLabels(fm *domain.Flatmap) {
	for _, l := range fm.Layers {
		for _, f := range l.Features {
			text := f.StringProperty(domain.PropLabel)
			if text == "" || f.Flag(domain.PropInvisible) {
				continue
			}
			var (
				p  domain.LabelPlacement
				ok bool
			)
			if c.opts.Labels != nil {
				p, ok = c.opts.Labels.Placement(l.ID, f, text)
			} else if pt, placed := labels.Place(f.Geometry); placed {
				p, ok = domain.LabelPlacement{Text: text, Point: pt}, true
			}
			if ok {
				f.Label = &p
			}
		}
	}
}

func checkLayerIDs(layers []*domain.Layer) error {
	sources := map[string][]string{}
	var order []string
	for _, l := range layers {
		if _, seen := sources[l.ID]; !seen {
			order = append(order, l.ID)
		}
		sources[l.ID] = append(sources[l.ID], l.SourceID)
	}
	var errs []error
	for _, id := range order {
		if len(sources[id]) > 1 {
			errs = append(errs, &domain.DuplicateLayerIDError{LayerID: id, Sources: sources[id]})
		}
	}
	return errors.Join(errs...)
}

func baseLayer(layers []*domain.Layer) (*domain.Layer, error) {
	var base []*domain.Layer
	for _, l := range layers {
		if l.Kind == domain.LayerKindBase {
			base = append(base, l)
		}
	}
	if len(base) != 1 {
		return nil, fmt.Errorf("%w: found %d", domain.ErrNoBaseLayer, len(base))
	}
	return base[0], nil
}

func checkFeatureIDs(layers []*domain.Layer) error {
	var errs []error
	for _, l := range layers {
		seen := make(map[string]bool, len(l.Features))
		for _, f := range l.Features {
			if seen[f.ID] {
				errs = append(errs, &domain.DuplicateFeatureIDError{
					SourceID:  l.SourceID,
					LayerID:   l.ID,
					FeatureID: f.ID,
				})
				continue
			}
			seen[f.ID] = true
		}
	}
	return errors.Join(errs...)
}

func extentOf(layers []*domain.Layer) (orb.Bound, bool) {
	var extent orb.Bound
	found := false
	for _, l := range layers {
		b, ok := l.Bound()
		if !ok {
			continue
		}
		if !found {
			extent, found = b, true
			continue
		}
		extent = extent.Union(b)
	}
	return extent, found
}
