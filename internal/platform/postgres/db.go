package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/phrazzld/flatmap-maker/internal/redact"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// Connection pool settings. A run holds at most one transaction at a time.
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open connects to the database at databaseURL and verifies the connection
// with a ping. The URL is only ever logged with its password masked.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	masked := redact.DatabaseURL(databaseURL)

	db, err := sql.Open(DriverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %s", redact.Error(err))
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		logger.ErrorContext(ctx, "database ping failed",
			slog.String("url", masked),
			slog.String("error", redact.Error(err)))
		return nil, MapError(fmt.Errorf("failed to ping database %s: %w", masked, err))
	}

	logger.InfoContext(ctx, "database connection established", slog.String("url", masked))
	return db, nil
}
