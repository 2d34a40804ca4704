package tiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

// Output file names.
const (
	ArchiveFile = "index.mbtiles"
	IndexFile   = "index.json"
	StyleFile   = "style.json"
)

// IndexVersion is the flatmap index format version.
const IndexVersion = 1

// Layer is one exported layer to tile.
type Layer struct {
	ID          string
	Description string
	File        string // GeoJSON document
}

// Job describes one tiling run.
type Job struct {
	FlatmapID string
	Models    string
	OutputDir string
	Layers    []Layer
	Zoom      ZoomConfig

	// Bounds is the flatmap extent in WGS84 degrees.
	Bounds orb.Bound
}

// Result lists the files a successful run produced.
type Result struct {
	Archive  string
	Index    string
	Style    string
	Duration time.Duration
}

// Driver runs an Engine and publishes its output.
type Driver struct {
	engine Engine
	logger *slog.Logger
}

// NewDriver returns a Driver using engine. If logger is nil, a default
// logger will be used.
func NewDriver(engine Engine, logger *slog.Logger) *Driver {
	if engine == nil {
		// ALLOW-PANIC: a nil engine is a programming error
		panic("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		engine: engine,
		logger: logger.With(slog.String("component", "tile_driver")),
	}
}

// Run generates the tile archive for job into a temporary file and renames
// it to ArchiveFile only when the engine succeeds, then writes IndexFile and
// StyleFile. On failure or cancellation the temporary archive is removed and
// any previous archive is left untouched.
func (d *Driver) Run(ctx context.Context, job Job) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, d.logger)
	start := time.Now()

	if err := job.Zoom.Validate(); err != nil {
		return nil, err
	}
	if len(job.Layers) == 0 {
		return nil, errors.New("no layers to tile")
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	archive := filepath.Join(job.OutputDir, ArchiveFile)
	tmp := filepath.Join(job.OutputDir, fmt.Sprintf(".%s.%s.tmp", ArchiveFile, uuid.NewString()))

	req := Request{Output: tmp, Zoom: job.Zoom}
	for _, l := range job.Layers {
		req.Layers = append(req.Layers, LayerInput{File: l.File, Layer: l.ID, Description: l.Description})
	}

	if err := d.engine.Generate(ctx, req); err != nil {
		removeQuietly(log, tmp)
		log.ErrorContext(ctx, "tiling failed", slog.String("error", err.Error()))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		removeQuietly(log, tmp)
		return nil, err
	}
	if err := os.Rename(tmp, archive); err != nil {
		removeQuietly(log, tmp)
		return nil, fmt.Errorf("failed to publish tile archive: %w", err)
	}

	res := &Result{
		Archive: archive,
		Index:   filepath.Join(job.OutputDir, IndexFile),
		Style:   filepath.Join(job.OutputDir, StyleFile),
	}
	if err := writeJSON(res.Index, newIndex(job)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", IndexFile, err)
	}
	if err := writeJSON(res.Style, newStyle(job)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", StyleFile, err)
	}
	res.Duration = time.Since(start)

	log.InfoContext(ctx, "tiles generated",
		slog.String("archive", archive),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func removeQuietly(log *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove temporary archive", slog.String("path", path), slog.String("error", err.Error()))
	}
}

type indexLayer struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

type index struct {
	ID          string       `json:"id"`
	Version     int          `json:"version"`
	Describes   string       `json:"describes,omitempty"`
	MinZoom     int          `json:"min-zoom"`
	MaxZoom     int          `json:"max-zoom"`
	InitialZoom int          `json:"initial-zoom"`
	Bounds      [4]float64   `json:"bounds"`
	Layers      []indexLayer `json:"layers"`
}

func newIndex(job Job) index {
	idx := index{
		ID:          job.FlatmapID,
		Version:     IndexVersion,
		Describes:   job.Models,
		MinZoom:     job.Zoom.Min,
		MaxZoom:     job.Zoom.Max,
		InitialZoom: job.Zoom.Initial,
		Bounds:      bounds(job.Bounds),
		Layers:      make([]indexLayer, 0, len(job.Layers)),
	}
	for _, l := range job.Layers {
		idx.Layers = append(idx.Layers, indexLayer{ID: l.ID, Description: l.Description})
	}
	return idx
}

type styleSource struct {
	Type    string     `json:"type"`
	URL     string     `json:"url"`
	MinZoom int        `json:"minzoom"`
	MaxZoom int        `json:"maxzoom"`
	Bounds  [4]float64 `json:"bounds"`
}

type style struct {
	Version int                    `json:"version"`
	Name    string                 `json:"name"`
	Sources map[string]styleSource `json:"sources"`
	Center  [2]float64             `json:"center"`
	Zoom    int                    `json:"zoom"`
	Layers  []any                  `json:"layers"`
}

func newStyle(job Job) style {
	c := job.Bounds.Center()
	return style{
		Version: 8,
		Name:    job.FlatmapID,
		Sources: map[string]styleSource{
			"vector-tiles": {
				Type:    "vector",
				URL:     "mbtiles://" + ArchiveFile,
				MinZoom: job.Zoom.Min,
				MaxZoom: job.Zoom.Max,
				Bounds:  bounds(job.Bounds),
			},
		},
		Center: [2]float64{c[0], c[1]},
		Zoom:   job.Zoom.Initial,
		Layers: []any{},
	}
}

func bounds(b orb.Bound) [4]float64 {
	return [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
