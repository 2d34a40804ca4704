package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/flatmap-maker/internal/config"
	"github.com/phrazzld/flatmap-maker/internal/platform/jsonfile"
	"github.com/phrazzld/flatmap-maker/internal/platform/postgres"
	"github.com/phrazzld/flatmap-maker/internal/store"
)

// Label store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// OpenLabelStore returns the label store selected by cfg and a function
// releasing it. The Postgres backend is migrated before it is returned.
func OpenLabelStore(ctx context.Context, cfg config.LabelsConfig, logger *slog.Logger) (store.LabelStore, func() error, error) {
	switch cfg.Backend {
	case BackendFile:
		return jsonfile.NewLabelStore(cfg.Path, logger), func() error { return nil }, nil

	case BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewLabelStore(db, logger), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown label store backend %q", cfg.Backend)
}
