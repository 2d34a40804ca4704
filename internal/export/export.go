package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

// ErrEmptyFlatmap is returned when there is nothing to export.
var ErrEmptyFlatmap = errors.New("flatmap has no layers")

// Options toggles diagnostic output. None of them changes the primary
// layer documents.
type Options struct {
	// RawSegments writes each layer's curves as SVG path data to a
	// "<layer>.segments.json" sidecar.
	RawSegments bool

	// RawMarkup writes each feature's markup text to a
	// "<layer>.markup.json" sidecar.
	RawMarkup bool
}

// Document is one serialized output file.
type Document struct {
	Name  string // file name relative to the output directory
	Layer string
	Data  []byte
}

// Exporter serializes flatmaps.
type Exporter struct {
	opts   Options
	logger *slog.Logger
}

// New returns an Exporter. If logger is nil, a default logger will be used.
func New(opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		opts:   opts,
		logger: logger.With(slog.String("component", "geojson_exporter")),
	}
}

// LayerFile is the name of the GeoJSON document written for a layer.
func LayerFile(layerID string) string {
	return layerID + ".json"
}

// Build serializes fm entirely in memory. Features are numbered from 1 in
// layer order and invisible features are left out.
func (e *Exporter) Build(fm *domain.Flatmap) ([]Document, error) {
	if fm == nil || len(fm.Layers) == 0 {
		return nil, ErrEmptyFlatmap
	}
	w, h := fm.Extent.Max[0]-fm.Extent.Min[0], fm.Extent.Max[1]-fm.Extent.Min[1]
	mapArea := w * h

	var docs []Document
	next := 1
	for _, l := range fm.Layers {
		coll := collectionJSON{Type: "FeatureCollection", Features: []featureJSON{}}
		segments := map[string]string{}
		markup := map[string]string{}
		for _, f := range l.Features {
			if f.Flag(domain.PropInvisible) || f.Geometry == nil {
				continue
			}
			coll.Features = append(coll.Features, newFeature(l, f, next, mapArea))
			next++
			if f.Path != nil {
				segments[f.ID] = f.Path.SVG()
			}
			if f.Markup != "" {
				markup[f.ID] = f.Markup
			}
		}

		data, err := marshal(coll)
		if err != nil {
			return nil, fmt.Errorf("failed to encode layer %s: %w", l.ID, err)
		}
		docs = append(docs, Document{Name: LayerFile(l.ID), Layer: l.ID, Data: data})

		if e.opts.RawSegments {
			data, err := marshalSidecar(segments)
			if err != nil {
				return nil, fmt.Errorf("failed to encode segments of layer %s: %w", l.ID, err)
			}
			docs = append(docs, Document{Name: l.ID + ".segments.json", Layer: l.ID, Data: data})
		}
		if e.opts.RawMarkup {
			data, err := marshalSidecar(markup)
			if err != nil {
				return nil, fmt.Errorf("failed to encode markup of layer %s: %w", l.ID, err)
			}
			docs = append(docs, Document{Name: l.ID + ".markup.json", Layer: l.ID, Data: data})
		}
	}
	return docs, nil
}

// Export builds every document of fm and then writes them into dir.
// Nothing is written when building fails. It returns the paths of the layer
// documents, in layer order.
func (e *Exporter) Export(ctx context.Context, fm *domain.Flatmap, dir string) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	docs, err := e.Build(fm)
	if err != nil {
		return nil, err
	}
	if err := WriteDocuments(ctx, dir, docs); err != nil {
		return nil, err
	}

	var layers []string
	for _, d := range docs {
		if d.Name == LayerFile(d.Layer) {
			layers = append(layers, filepath.Join(dir, d.Name))
		}
	}
	log.InfoContext(ctx, "exported flatmap",
		slog.String("flatmap", fm.ID),
		slog.String("dir", dir),
		slog.Int("documents", len(docs)))
	return layers, nil
}

// BuildIntermediate serializes each layer as parsed, in its own local
// coordinates, as "<layer>.json". It is a debugging aid for comparing
// sources with the composed result. Call it before composition, which
// reprojects layers in place.
func BuildIntermediate(layers []*domain.Layer) ([]Document, error) {
	docs := make([]Document, 0, len(layers))
	for _, l := range layers {
		fc := geojson.NewFeatureCollection()
		for _, f := range l.Features {
			if f.Geometry == nil {
				continue
			}
			gf := geojson.NewFeature(f.Geometry)
			gf.ID = f.ID
			for k, v := range f.Properties {
				gf.Properties[k] = v
			}
			fc.Append(gf)
		}
		fc.ExtraMembers = geojson.Properties{"layer": l.ID, "source": l.SourceID, "kind": string(l.Kind)}
		data, err := marshal(fc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode intermediate layer %s: %w", l.ID, err)
		}
		docs = append(docs, Document{Name: LayerFile(l.ID), Layer: l.ID, Data: data})
	}
	return docs, nil
}

// WriteIntermediate builds the intermediate documents of layers and writes
// them into dir.
func WriteIntermediate(ctx context.Context, dir string, layers []*domain.Layer) error {
	docs, err := BuildIntermediate(layers)
	if err != nil {
		return err
	}
	return WriteDocuments(ctx, dir, docs)
}

// WriteDocuments writes docs into dir, each through a temporary file that is
// renamed into place.
func WriteDocuments(ctx context.Context, dir string, docs []Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, d.Name), d.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", d.Name, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func marshalSidecar(m map[string]string) ([]byte, error) {
	entries := make([]sidecarEntry, 0, len(m))
	for _, id := range sortedKeys(m) {
		entries = append(entries, sidecarEntry{ID: id, Value: m[id]})
	}
	return marshal(entries)
}

type sidecarEntry struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}
