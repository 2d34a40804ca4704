package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
	"github.com/phrazzld/flatmap-maker/internal/store"
)

const backendName = "postgres"

const (
	selectLabelsQuery = `
		SELECT layer_id, feature_id, label_text, x, y
		FROM label_cache
		ORDER BY layer_id, feature_id, label_text
	`
	deleteLabelsQuery = `DELETE FROM label_cache`
	insertLabelQuery  = `
		INSERT INTO label_cache (layer_id, feature_id, label_text, x, y, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
)

// LabelStore implements store.LabelStore on the label_cache table.
type LabelStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.LabelStore = (*LabelStore)(nil)

// NewLabelStore returns a store using db, which the caller owns. If logger
// is nil, a default logger will be used.
func NewLabelStore(db *sql.DB, logger *slog.Logger) *LabelStore {
	if db == nil {
		// ALLOW-PANIC: a nil database is a programming error
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelStore{
		db:     db,
		logger: logger.With(slog.String("component", "label_pg_store")),
	}
}

// LoadLabels implements store.LabelStore.LoadLabels.
func (s *LabelStore) LoadLabels(ctx context.Context) ([]domain.LabelEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entries, err := queryLabels(ctx, s.db)
	if err != nil {
		log.ErrorContext(ctx, "failed to load labels", slog.String("error", err.Error()))
		return nil, store.NewStoreError(backendName, "load", "cannot query label_cache", MapError(err))
	}

	log.DebugContext(ctx, "loaded labels", slog.Int("count", len(entries)))
	return entries, nil
}

// SaveLabels implements store.LabelStore.SaveLabels by replacing the table
// contents in one transaction.
func (s *LabelStore) SaveLabels(ctx context.Context, entries []domain.LabelEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := store.ValidateEntries(entries); err != nil {
		return store.NewStoreError(backendName, "save", "rejected entries", err)
	}

	sorted := make([]domain.LabelEntry, len(entries))
	copy(sorted, entries)
	store.SortEntries(sorted)

	err := store.RunInTransaction(logger.WithLogger(ctx, log), s.db, func(ctx context.Context, tx *sql.Tx) error {
		return replaceLabels(ctx, tx, sorted)
	})
	if err != nil {
		return store.NewStoreError(backendName, "save", "cannot replace label_cache", MapError(err))
	}

	log.InfoContext(ctx, "saved labels", slog.Int("count", len(sorted)))
	return nil
}

func queryLabels(ctx context.Context, db store.Querier) (entries []domain.LabelEntry, err error) {
	rows, err := db.QueryContext(ctx, selectLabelsQuery)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var e domain.LabelEntry
		if err := rows.Scan(&e.LayerID, &e.FeatureID, &e.Text, &e.X, &e.Y); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func replaceLabels(ctx context.Context, db store.Querier, entries []domain.LabelEntry) (err error) {
	if _, err := db.ExecContext(ctx, deleteLabelsQuery); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	stmt, err := db.PrepareContext(ctx, insertLabelQuery)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.LayerID, e.FeatureID, e.Text, e.X, e.Y); err != nil {
			return err
		}
	}
	return nil
}
