package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/project"

	"github.com/phrazzld/flatmap-maker/internal/compose"
	"github.com/phrazzld/flatmap-maker/internal/config"
	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/events"
	"github.com/phrazzld/flatmap-maker/internal/export"
	"github.com/phrazzld/flatmap-maker/internal/labels"
	"github.com/phrazzld/flatmap-maker/internal/manifest"
	"github.com/phrazzld/flatmap-maker/internal/normalize"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/platform/metrics"
	"github.com/phrazzld/flatmap-maker/internal/properties"
	"github.com/phrazzld/flatmap-maker/internal/source"
	"github.com/phrazzld/flatmap-maker/internal/store"
	"github.com/phrazzld/flatmap-maker/internal/task"
	"github.com/phrazzld/flatmap-maker/internal/tiler"
)

// Result describes a finished run.
type Result struct {
	RunID   string
	Flatmap *domain.Flatmap

	// Files are the exported layer documents, in layer order. Empty in
	// error-check mode.
	Files []string

	// Tiles is set when the tiling engine ran.
	Tiles *tiler.Result
}

// Pipeline runs conversions with a fixed configuration.
type Pipeline struct {
	cfg      *config.Config
	registry *source.Registry
	engine   tiler.Engine
	labels   store.LabelStore
	emitter  *events.InMemoryEventEmitter
	metrics  *metrics.Metrics
	base     *slog.Logger
	logger   *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRegistry replaces the default parser registry.
func WithRegistry(r *source.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithEngine replaces the tippecanoe engine built from the configuration.
func WithEngine(e tiler.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithLabelStore replaces the label store selected by the configuration.
func WithLabelStore(s store.LabelStore) Option {
	return func(p *Pipeline) { p.labels = s }
}

// WithEventHandler registers an additional progress event handler.
func WithEventHandler(h events.EventHandler) Option {
	return func(p *Pipeline) { p.emitter.RegisterHandler(h) }
}

// New returns a Pipeline for cfg. If logger is nil, a default logger will
// be used.
func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Pipeline{
		cfg:     cfg,
		emitter: events.NewInMemoryEventEmitter(log),
		metrics: metrics.New(log),
		base:    log,
		logger:  log.With(slog.String("component", "pipeline")),
	}
	p.emitter.RegisterHandler(events.NewLogHandler(log))
	p.emitter.RegisterHandler(p.metrics)

	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = DefaultRegistry(log)
	}
	if p.engine == nil && cfg.Tiler.Enabled {
		p.engine = tiler.NewTippecanoeEngine(cfg.Tiler.Command, log)
	}
	return p, nil
}

// Metrics returns the collectors updated by every run.
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Run converts the flatmap described by the manifest at manifestPath.
func (p *Pipeline) Run(ctx context.Context, manifestPath string) (res *Result, err error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(logger.WithLogger(ctx, logger.FromContextOrDefault(ctx, p.base)), runID)
	log := logger.FromContext(ctx).With(slog.String("component", "pipeline"))
	start := time.Now()

	p.emit(ctx, events.NewProgressEvent(runID, events.StageRun, events.StatusStarted).WithSubject(manifestPath))
	defer func() {
		p.emit(ctx, events.NewProgressEvent(runID, events.StageRun, events.StatusStarted).Finish(start, err))
		p.writeMetrics(ctx)
	}()

	r := &run{Pipeline: p, id: runID}
	res, err = r.execute(ctx, manifestPath)
	if err != nil {
		log.ErrorContext(ctx, "conversion failed", slog.String("error", err.Error()))
		return nil, err
	}
	log.InfoContext(ctx, "conversion finished",
		slog.String("flatmap", res.Flatmap.ID),
		slog.Int("files", len(res.Files)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

// run holds the state of one conversion.
type run struct {
	*Pipeline
	id string

	manifest *domain.Manifest
	anatomy  properties.AnatomicalMap
	props    *properties.Document
}

func (r *run) execute(ctx context.Context, manifestPath string) (*Result, error) {
	cfg := r.cfg
	zoom := tiler.ZoomConfig{Min: cfg.Zoom.Min, Initial: cfg.Zoom.Initial, Max: cfg.Zoom.Max}
	if err := zoom.Validate(); err != nil {
		return nil, err
	}

	if err := r.stage(ctx, events.StageManifest, func() error { return r.loadManifest(manifestPath) }); err != nil {
		return nil, err
	}

	var layers []*domain.Layer
	if err := r.stage(ctx, events.StageParse, func() (err error) {
		layers, err = r.parse(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	normalizer, err := normalize.New(cfg.Pipeline.Tolerance, r.base)
	if err != nil {
		return nil, err
	}
	if err := r.stage(ctx, events.StageNormalize, func() error {
		return normalizer.NormalizeLayers(ctx, layers)
	}); err != nil {
		return nil, err
	}

	var intermediate []export.Document
	if cfg.Export.IntermediateDir != "" && !cfg.Pipeline.ErrorCheck {
		if intermediate, err = export.BuildIntermediate(layers); err != nil {
			return nil, err
		}
	}

	var cache *labels.Cache
	var closeStore func() error
	if !cfg.Pipeline.ErrorCheck {
		if err := r.stage(ctx, events.StageLabels, func() (err error) {
			cache, closeStore, err = r.openCache(ctx)
			return err
		}); err != nil {
			return nil, err
		}
		defer func() {
			if err := closeStore(); err != nil {
				r.logger.Warn("failed to close label store", slog.String("error", err.Error()))
			}
		}()
	}

	composer := compose.New(normalizer, compose.Options{
		AnatomicalMap: r.anatomy,
		Properties:    r.props,
		MapWidth:      cfg.Pipeline.MapWidth,
		Labels:        cache,
	}, r.base)
	var fm *domain.Flatmap
	if err := r.stage(ctx, events.StageCompose, func() (err error) {
		fm, err = composer.Compose(ctx, r.manifest, layers)
		return err
	}); err != nil {
		return nil, err
	}

	res := &Result{RunID: r.id, Flatmap: fm}
	if cfg.Pipeline.ErrorCheck {
		logger.FromContext(ctx).InfoContext(ctx, "error check passed, no output written",
			slog.String("flatmap", fm.ID))
		return res, nil
	}

	if err := r.stage(ctx, events.StageExport, func() (err error) {
		res.Files, err = r.export(ctx, fm, intermediate)
		return err
	}); err != nil {
		return nil, err
	}

	if cfg.Tiler.Enabled {
		if err := r.stage(ctx, events.StageTile, func() (err error) {
			res.Tiles, err = r.tile(ctx, fm, res.Files, zoom)
			return err
		}); err != nil {
			return nil, err
		}
	}

	if err := r.stage(ctx, events.StageLabels, func() error { return cache.Persist(ctx) }); err != nil {
		return nil, err
	}
	hits, misses := cache.Stats()
	r.metrics.ObserveLabelCache(hits, misses)
	return res, nil
}

func (r *run) loadManifest(path string) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	anatomy, err := properties.LoadAnatomicalMap(m.AnatomicalMap)
	if err != nil {
		return err
	}
	props, err := properties.LoadDocument(m.Properties)
	if err != nil {
		return err
	}
	r.manifest, r.anatomy, r.props = m, anatomy, props
	return nil
}

// parse runs one task per source and waits for all of them. Layers keep
// manifest source order. Every source is parsed even when some fail, so
// the returned error reports all of them.
func (r *run) parse(ctx context.Context) ([]*domain.Layer, error) {
	parser := source.ParserFunc(func(ctx context.Context, src domain.Source) ([]*domain.Layer, error) {
		start := time.Now()
		layers, err := r.registry.Parse(ctx, src)
		r.emit(ctx, events.NewProgressEvent(r.id, events.StageParse, events.StatusStarted).
			WithSubject(src.ID).
			WithCount(len(layers)).
			Finish(start, err))
		return layers, err
	})

	parseTasks := make([]*task.SourceParseTask, len(r.manifest.Sources))
	tasks := make([]task.Task, len(r.manifest.Sources))
	for i, src := range r.manifest.Sources {
		parseTasks[i] = task.NewSourceParseTask(src, parser)
		tasks[i] = parseTasks[i]
	}

	err := task.RunAll(ctx, tasks, task.WorkerPoolConfig{WorkerCount: r.cfg.Pipeline.Workers}, r.base)
	if err != nil {
		return nil, err
	}

	var layers []*domain.Layer
	for _, t := range parseTasks {
		ls, _ := t.Result()
		layers = append(layers, ls...)
	}
	return layers, nil
}

func (r *run) openCache(ctx context.Context) (*labels.Cache, func() error, error) {
	s, closeStore := r.labels, func() error { return nil }
	if s == nil {
		var err error
		if s, closeStore, err = OpenLabelStore(ctx, r.cfg.Labels, r.base); err != nil {
			return nil, nil, err
		}
	}

	cache := labels.NewCache(s, r.base)
	if err := cache.Load(ctx); err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	if r.cfg.Labels.Refresh {
		cache.Clear()
	}
	return cache, closeStore, nil
}

// export serializes every document in memory before anything is written.
func (r *run) export(ctx context.Context, fm *domain.Flatmap, intermediate []export.Document) ([]string, error) {
	exporter := export.New(export.Options{
		RawSegments: r.cfg.Export.RawSegments,
		RawMarkup:   r.cfg.Export.RawMarkup,
	}, r.base)

	files, err := exporter.Export(ctx, fm, r.cfg.Pipeline.OutputDir)
	if err != nil {
		return nil, err
	}
	for _, l := range fm.Layers {
		r.emit(ctx, events.NewProgressEvent(r.id, events.StageExport, events.StatusFinished).
			WithSubject(l.ID).
			WithCount(exportedFeatures(l)))
	}

	if len(intermediate) > 0 {
		if err := export.WriteDocuments(ctx, r.cfg.Export.IntermediateDir, intermediate); err != nil {
			return nil, fmt.Errorf("failed to write intermediate documents: %w", err)
		}
	}
	return files, nil
}

func (r *run) tile(ctx context.Context, fm *domain.Flatmap, files []string, zoom tiler.ZoomConfig) (*tiler.Result, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("%w: no tiling engine configured", domain.ErrEngine)
	}

	job := tiler.Job{
		FlatmapID: fm.ID,
		Models:    fm.Models,
		OutputDir: r.cfg.Pipeline.OutputDir,
		Zoom:      zoom,
		Bounds:    project.Geometry(fm.Extent.ToPolygon(), project.Mercator.ToWGS84).Bound(),
	}
	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[filepath.Base(f)] = f
	}
	for _, l := range fm.Layers {
		file, ok := byName[export.LayerFile(l.ID)]
		if !ok {
			return nil, fmt.Errorf("layer %s was not exported", l.ID)
		}
		job.Layers = append(job.Layers, tiler.Layer{ID: l.ID, Description: l.Description, File: file})
	}
	return tiler.NewDriver(r.engine, r.base).Run(ctx, job)
}

// stage runs fn between a started and a finished or failed event.
func (r *run) stage(ctx context.Context, stage events.Stage, fn func() error) error {
	start := time.Now()
	r.emit(ctx, events.NewProgressEvent(r.id, stage, events.StatusStarted))
	err := fn()
	r.emit(ctx, events.NewProgressEvent(r.id, stage, events.StatusStarted).Finish(start, err))
	return err
}

// emit publishes an event. Progress reporting never changes the outcome of
// a run, so handler errors are only logged.
func (p *Pipeline) emit(ctx context.Context, event *events.ProgressEvent) {
	if err := p.emitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, p.logger).DebugContext(ctx, "progress event not handled",
			slog.String("stage", string(event.Stage)),
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) writeMetrics(ctx context.Context) {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := p.metrics.WriteTextfile(path); err != nil {
		logger.FromContextOrDefault(ctx, p.logger).WarnContext(ctx, "failed to write metrics",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func exportedFeatures(l *domain.Layer) int {
	n := 0
	for _, f := range l.Features {
		if f.Geometry != nil && !f.Flag(domain.PropInvisible) {
			n++
		}
	}
	return n
}
