package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

func TestStoreError(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			name: "with wrapped error",
			err:  NewStoreError("file", "save", "cannot write labels", cause),
			want: "file save failed: cannot write labels: disk full",
		},
		{
			name: "without wrapped error",
			err:  NewStoreError("postgres", "load", "no table", nil),
			want: "postgres load failed: no table",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}

	var se *StoreError
	wrapped := NewStoreError("file", "save", "x", cause)
	assert.True(t, errors.As(error(wrapped), &se))
	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, ErrUnsupportedVersion, ErrCorrupt)
}

func TestValidateEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.LabelEntry
		wantErr error
	}{
		{
			name: "valid",
			entries: []domain.LabelEntry{
				{LayerID: "body", FeatureID: "heart", Text: "Heart", X: 1, Y: 2},
				{LayerID: "body", FeatureID: "heart", Text: "Cor", X: 1, Y: 2},
			},
		},
		{
			name: "same feature in two layers",
			entries: []domain.LabelEntry{
				{LayerID: "body", FeatureID: "heart", Text: "Heart"},
				{LayerID: "heart-detail", FeatureID: "heart", Text: "Heart"},
			},
		},
		{name: "empty", entries: nil},
		{
			name:    "missing layer id",
			entries: []domain.LabelEntry{{FeatureID: "heart", Text: "Heart"}},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "missing feature id",
			entries: []domain.LabelEntry{{LayerID: "body", Text: "Heart"}},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "non-finite coordinate",
			entries: []domain.LabelEntry{{LayerID: "body", FeatureID: "heart", X: math.Inf(1)}},
			wantErr: ErrInvalidEntry,
		},
		{
			name: "duplicate key",
			entries: []domain.LabelEntry{
				{LayerID: "body", FeatureID: "heart", Text: "Heart", X: 1},
				{LayerID: "body", FeatureID: "heart", Text: "Heart", X: 2},
			},
			wantErr: ErrDuplicate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEntries(tc.entries)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSortEntries(t *testing.T) {
	entries := []domain.LabelEntry{
		{LayerID: "detail", FeatureID: "heart", Text: "a"},
		{LayerID: "body", FeatureID: "lung", Text: "B"},
		{LayerID: "body", FeatureID: "heart", Text: "b"},
		{LayerID: "body", FeatureID: "heart", Text: "a"},
	}
	SortEntries(entries)
	assert.Equal(t, []domain.LabelEntry{
		{LayerID: "body", FeatureID: "heart", Text: "a"},
		{LayerID: "body", FeatureID: "heart", Text: "b"},
		{LayerID: "body", FeatureID: "lung", Text: "B"},
		{LayerID: "detail", FeatureID: "heart", Text: "a"},
	}, entries)
}

func TestRunInTransaction_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM label_cache").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM label_cache")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_FunctionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	expected := errors.New("insert failed")
	err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error {
		return expected
	})
	assert.Equal(t, expected, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, called, "function must not run without a transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollbackError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

	expected := errors.New("function failed")
	err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error { return expected })
	assert.ErrorIs(t, err, expected)
	assert.Contains(t, err.Error(), "rollback failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_Panic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
