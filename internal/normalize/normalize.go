package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/geometry"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

// ErrInvalidTolerance is returned for a non-positive flattening tolerance.
var ErrInvalidTolerance = errors.New("flattening tolerance must be positive")

// ErrNoGeometry is wrapped when a feature has neither a path nor geometry.
var ErrNoGeometry = errors.New("feature has no geometry")

// Normalizer flattens feature paths within a fixed tolerance.
type Normalizer struct {
	tolerance float64
	logger    *slog.Logger
}

// New returns a normalizer. Tolerance is the maximum distance between a
// curve and its flattened form, in the units of the coordinates being
// flattened.
func New(tolerance float64, logger *slog.Logger) (*Normalizer, error) {
	if !(tolerance > 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidTolerance, tolerance)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		tolerance: tolerance,
		logger:    logger.With(slog.String("component", "normalizer")),
	}, nil
}

// Tolerance returns the flattening tolerance.
func (n *Normalizer) Tolerance() float64 {
	return n.tolerance
}

// NormalizeLayer flattens every feature of layer in its local coordinates.
// Every feature that fails is reported.
func (n *Normalizer) NormalizeLayer(ctx context.Context, layer *domain.Layer) error {
	var errs []error
	for _, f := range layer.Features {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Path == nil {
			if f.Geometry == nil {
				errs = append(errs, featureError(layer, f, ErrNoGeometry))
			}
			continue
		}
		g, err := f.Path.Geometry(n.tolerance)
		if err != nil {
			errs = append(errs, featureError(layer, f, err))
			continue
		}
		f.Geometry = g
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.FromContextOrDefault(ctx, n.logger).DebugContext(ctx, "normalized layer",
		slog.String("layer", layer.ID),
		slog.Int("features", len(layer.Features)))
	return nil
}

// NormalizeLayers normalizes layers in parallel and joins their errors.
func (n *Normalizer) NormalizeLayers(ctx context.Context, layers []*domain.Layer) error {
	errs := make([]error, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range layers {
		g.Go(func() error {
			errs[i] = n.NormalizeLayer(gctx, l)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Reproject moves layer into another frame through m. Features that kept
// their curves are re-flattened from the transformed control points so the
// tolerance holds in the new frame.
func (n *Normalizer) Reproject(layer *domain.Layer, m geometry.Affine) error {
	if _, err := m.Inverse(); err != nil {
		return fmt.Errorf("reproject layer %s: %w", layer.ID, err)
	}
	var errs []error
	for _, f := range layer.Features {
		switch {
		case f.Path != nil:
			f.Path = f.Path.Transform(m)
			g, err := f.Path.Geometry(n.tolerance)
			if err != nil {
				errs = append(errs, featureError(layer, f, err))
				continue
			}
			f.Geometry = g
		case f.Geometry != nil:
			f.Geometry = m.ApplyGeometry(f.Geometry)
		default:
			errs = append(errs, featureError(layer, f, ErrNoGeometry))
		}
		if f.Label != nil {
			f.Label.Point = m.Apply(f.Label.Point)
		}
	}
	return errors.Join(errs...)
}

// FrameTransform centres extent on the origin and scales it so its longer
// side measures mapWidth.
func FrameTransform(extent orb.Bound, mapWidth float64) (geometry.Affine, error) {
	w, h := extent.Max[0]-extent.Min[0], extent.Max[1]-extent.Min[1]
	longest := max(w, h)
	if !(longest > 0) || !(mapWidth > 0) {
		return geometry.Affine{}, fmt.Errorf("%w: extent %gx%g, map width %g", geometry.ErrDegenerateBounds, w, h, mapWidth)
	}
	s := mapWidth / longest
	c := extent.Center()
	return geometry.Translate(-c[0], -c[1]).Then(geometry.Scale(s, s)), nil
}

func featureError(layer *domain.Layer, f *domain.Feature, err error) error {
	return &domain.SourceParseError{
		SourceID: layer.SourceID,
		Region:   fmt.Sprintf("layer %s feature %s", layer.ID, f.ID),
		Reason:   "cannot normalize geometry",
		Err:      err,
	}
}
