package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/flatmap-maker/internal/store"
)

func TestMapError(t *testing.T) {
	plain := errors.New("something else")

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "nil", err: nil, wantErr: nil},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, wantErr: store.ErrDuplicate},
		{name: "check violation", err: &pgconn.PgError{Code: checkViolationCode}, wantErr: store.ErrInvalidEntry},
		{name: "not null violation", err: &pgconn.PgError{Code: notNullViolationCode}, wantErr: store.ErrInvalidEntry},
		{name: "undefined table", err: &pgconn.PgError{Code: undefinedTableCode}, wantErr: store.ErrUnavailable},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, wantErr: store.ErrUnavailable},
		{name: "closed connection", err: sql.ErrConnDone, wantErr: store.ErrUnavailable},
		{name: "wrapped violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode}), wantErr: store.ErrDuplicate},
		{name: "unmapped", err: plain, wantErr: plain},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError(tc.err)
			if tc.wantErr == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.wantErr)
			assert.ErrorIs(t, got, tc.err, "original error stays in the chain")
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("x")))
	assert.True(t, IsUndefinedTable(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: undefinedTableCode})))
	assert.False(t, IsUndefinedTable(&pgconn.PgError{Code: uniqueViolationCode}))
}
