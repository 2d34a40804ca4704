package labels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/store"
)

// ErrAlreadyLoaded is returned by a second call to Cache.Load.
var ErrAlreadyLoaded = errors.New("label cache already loaded")

type key struct {
	layer   string
	feature string
	text    string
}

// Cache holds label placements keyed by layer id, feature id and label text.
//
// The lifecycle is Load once, optionally Clear to discard what was loaded,
// any number of Placement calls, and Persist once at the end of the run. A
// Cache is not safe for concurrent use; composition is its only writer.
type Cache struct {
	store   store.LabelStore
	logger  *slog.Logger
	entries map[key]orb.Point
	loaded  bool
	dirty   bool
	hits    int
	misses  int
}

// NewCache returns an empty cache persisted through s. If logger is nil, a
// default logger will be used.
func NewCache(s store.LabelStore, logger *slog.Logger) *Cache {
	if s == nil {
		// ALLOW-PANIC: a nil store is a programming error
		panic("label store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:   s,
		logger:  logger.With(slog.String("component", "label_cache")),
		entries: map[key]orb.Point{},
	}
}

// Load reads the stored placements.
func (c *Cache) Load(ctx context.Context) error {
	if c.loaded {
		return ErrAlreadyLoaded
	}
	entries, err := c.store.LoadLabels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load label cache: %w", err)
	}
	for _, e := range entries {
		c.entries[key{e.LayerID, e.FeatureID, e.Text}] = orb.Point{e.X, e.Y}
	}
	c.loaded = true
	logger.FromContextOrDefault(ctx, c.logger).DebugContext(ctx, "label cache loaded",
		slog.Int("count", len(entries)))
	return nil
}

// Clear discards every placement, so each label is computed afresh and the
// next Persist replaces the stored cache.
func (c *Cache) Clear() {
	if len(c.entries) > 0 {
		c.dirty = true
	}
	c.entries = map[key]orb.Point{}
}

// Placement returns the label placement for f, a feature of layer layerID,
// with the given text. A cached placement is returned as is; otherwise one is
// computed from f's geometry and recorded. The second result is false when f
// has no geometry to place a label on.
func (c *Cache) Placement(layerID string, f *domain.Feature, text string) (domain.LabelPlacement, bool) {
	k := key{layerID, f.ID, text}
	if pt, ok := c.entries[k]; ok {
		c.hits++
		return domain.LabelPlacement{Text: text, Point: pt}, true
	}
	if f.Geometry == nil {
		return domain.LabelPlacement{}, false
	}
	pt, ok := Place(f.Geometry)
	if !ok {
		return domain.LabelPlacement{}, false
	}
	c.misses++
	c.entries[k] = pt
	c.dirty = true
	return domain.LabelPlacement{Text: text, Point: pt}, true
}

// Len returns the number of cached placements.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns how many placements were served from the cache and how many
// were computed.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Entries returns the cached placements in layer, feature then text order.
func (c *Cache) Entries() []domain.LabelEntry {
	out := make([]domain.LabelEntry, 0, len(c.entries))
	for k, pt := range c.entries {
		out = append(out, domain.LabelEntry{LayerID: k.layer, FeatureID: k.feature, Text: k.text, X: pt[0], Y: pt[1]})
	}
	store.SortEntries(out)
	return out
}

// Persist saves the cache when anything changed since Load.
func (c *Cache) Persist(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, c.logger)
	if !c.dirty {
		log.DebugContext(ctx, "label cache unchanged, not saving")
		return nil
	}
	if err := c.store.SaveLabels(ctx, c.Entries()); err != nil {
		return fmt.Errorf("failed to persist label cache: %w", err)
	}
	c.dirty = false
	log.InfoContext(ctx, "label cache persisted",
		slog.Int("count", len(c.entries)),
		slog.Int("hits", c.hits),
		slog.Int("misses", c.misses))
	return nil
}
