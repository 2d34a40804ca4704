package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/store"
)

// FormatVersion is the version written to, and accepted from, label files.
// Version 1 entries carry no layer id; such files are read as empty.
const FormatVersion = 2

const unlayeredVersion = 1

const backendName = "file"

type document struct {
	Version int                 `json:"version"`
	Entries []domain.LabelEntry `json:"entries"`
}

// LabelStore implements store.LabelStore on a JSON file.
type LabelStore struct {
	path   string
	logger *slog.Logger
}

var _ store.LabelStore = (*LabelStore)(nil)

// NewLabelStore returns a store backed by the file at path. The file need
// not exist yet. If logger is nil, a default logger will be used.
func NewLabelStore(path string, logger *slog.Logger) *LabelStore {
	if path == "" {
		// ALLOW-PANIC: an empty path is a programming error
		panic("path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelStore{
		path:   path,
		logger: logger.With(slog.String("component", "label_file_store")),
	}
}

// Path returns the file the store reads and writes.
func (s *LabelStore) Path() string {
	return s.path
}

// LoadLabels implements store.LabelStore.LoadLabels. A missing file is an
// empty store.
func (s *LabelStore) LoadLabels(ctx context.Context) ([]domain.LabelEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.DebugContext(ctx, "label file does not exist, starting empty", slog.String("path", s.path))
		return nil, nil
	}
	if err != nil {
		return nil, store.NewStoreError(backendName, "load", "cannot read "+s.path, err)
	}

	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, store.NewStoreError(backendName, "load", "cannot decode "+s.path,
			fmt.Errorf("%w: %v", store.ErrCorrupt, err))
	}
	if doc.Version == unlayeredVersion {
		log.WarnContext(ctx, "label file has no layer ids, discarding its placements",
			slog.String("path", s.path),
			slog.Int("count", len(doc.Entries)))
		return nil, nil
	}
	if doc.Version != FormatVersion {
		return nil, store.NewStoreError(backendName, "load", s.path,
			fmt.Errorf("%w %d", store.ErrUnsupportedVersion, doc.Version))
	}
	if err := store.ValidateEntries(doc.Entries); err != nil {
		return nil, store.NewStoreError(backendName, "load", s.path,
			fmt.Errorf("%w: %w", store.ErrCorrupt, err))
	}

	log.DebugContext(ctx, "loaded labels",
		slog.String("path", s.path),
		slog.Int("count", len(doc.Entries)))
	return doc.Entries, nil
}

// SaveLabels implements store.LabelStore.SaveLabels. Entries are written in
// layer, feature then text order so reruns produce identical files.
func (s *LabelStore) SaveLabels(ctx context.Context, entries []domain.LabelEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := store.ValidateEntries(entries); err != nil {
		return store.NewStoreError(backendName, "save", "rejected entries", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := make([]domain.LabelEntry, len(entries))
	copy(sorted, entries)
	store.SortEntries(sorted)

	data, err := json.MarshalIndent(document{Version: FormatVersion, Entries: sorted}, "", "  ")
	if err != nil {
		return store.NewStoreError(backendName, "save", "cannot encode labels", err)
	}
	data = append(data, '\n')

	if err := writeAtomic(s.path, data); err != nil {
		return store.NewStoreError(backendName, "save", "cannot write "+s.path, err)
	}

	log.InfoContext(ctx, "saved labels",
		slog.String("path", s.path),
		slog.Int("count", len(sorted)))
	return nil
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
