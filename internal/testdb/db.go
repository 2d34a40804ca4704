package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/flatmap-maker/internal/platform/postgres"
)

// TestTimeout bounds every database operation issued by these helpers.
const TestTimeout = 10 * time.Second

// GetTestDatabaseURL returns DATABASE_URL, falling back to
// MAPMAKER_TEST_DB_URL.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("MAPMAKER_TEST_DB_URL")
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// SkipIfNoDatabase skips the test when no test database is configured.
func SkipIfNoDatabase(t *testing.T) {
	t.Helper()
	if !IsIntegrationTestEnvironment() {
		t.Skip("DATABASE_URL not set, skipping database test")
	}
}

// OpenMigrated connects to the test database, applies the label cache
// migrations and empties label_cache. The connection is closed when the
// test ends.
func OpenMigrated(t *testing.T) *sql.DB {
	t.Helper()
	SkipIfNoDatabase(t)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, GetTestDatabaseURL(), nil)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, nil), "failed to migrate test database")
	ResetLabels(t, db)
	return db
}

// ResetLabels deletes every row of label_cache.
func ResetLabels(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	_, err := db.ExecContext(ctx, "DELETE FROM label_cache")
	require.NoError(t, err, "failed to reset label_cache")
}

// WithTx runs fn in a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
