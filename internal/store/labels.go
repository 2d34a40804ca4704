package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// LabelStore persists label placements between runs.
//
// LoadLabels returns every stored entry; an empty store yields no entries
// and no error. SaveLabels replaces the stored entries with the given set
// atomically: a failed save leaves the previous contents intact.
type LabelStore interface {
	LoadLabels(ctx context.Context) ([]domain.LabelEntry, error)
	SaveLabels(ctx context.Context, entries []domain.LabelEntry) error
}

// Querier runs label queries on a *sql.DB or inside a *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}
