package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/store"
)

func TestNewLabelStore_PanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() { NewLabelStore(nil, nil) })
}

func TestLabelStore_LoadLabels(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"layer_id", "feature_id", "label_text", "x", "y"}).
		AddRow("body", "heart", "Heart", 1.5, -2.0).
		AddRow("body", "lung", "Lung", 3.0, 4.0).
		AddRow("heart-detail", "heart", "Heart", 7.0, 8.0)
	mock.ExpectQuery("SELECT layer_id, feature_id, label_text, x, y").WillReturnRows(rows)

	entries, err := NewLabelStore(db, nil).LoadLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.LabelEntry{
		{LayerID: "body", FeatureID: "heart", Text: "Heart", X: 1.5, Y: -2},
		{LayerID: "body", FeatureID: "lung", Text: "Lung", X: 3, Y: 4},
		{LayerID: "heart-detail", FeatureID: "heart", Text: "Heart", X: 7, Y: 8},
	}, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelStore_LoadLabelsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT layer_id").
		WillReturnRows(sqlmock.NewRows([]string{"layer_id", "feature_id", "label_text", "x", "y"}))

	entries, err := NewLabelStore(db, nil).LoadLabels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelStore_LoadLabelsMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT layer_id").
		WillReturnError(&pgconn.PgError{Code: undefinedTableCode, Message: `relation "label_cache" does not exist`})

	_, err = NewLabelStore(db, nil).LoadLabels(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	var se *store.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "postgres", se.Backend)
	assert.Equal(t, "load", se.Operation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelStore_SaveLabels(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM label_cache").WillReturnResult(sqlmock.NewResult(0, 5))
	prep := mock.ExpectPrepare("INSERT INTO label_cache")
	// entries are written in key order
	prep.ExpectExec().WithArgs("body", "heart", "Heart", 1.5, -2.0).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("body", "lung", "Lung", 3.0, 4.0).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("heart-detail", "heart", "Heart", 7.0, 8.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewLabelStore(db, nil).SaveLabels(context.Background(), []domain.LabelEntry{
		{LayerID: "heart-detail", FeatureID: "heart", Text: "Heart", X: 7, Y: 8},
		{LayerID: "body", FeatureID: "lung", Text: "Lung", X: 3, Y: 4},
		{LayerID: "body", FeatureID: "heart", Text: "Heart", X: 1.5, Y: -2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelStore_SaveLabelsEmptyClearsTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM label_cache").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, NewLabelStore(db, nil).SaveLabels(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelStore_SaveLabelsRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM label_cache").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO label_cache").
		ExpectExec().
		WillReturnError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "label_cache_feature_id_check"})
	mock.ExpectRollback()

	err = NewLabelStore(db, nil).SaveLabels(context.Background(), []domain.LabelEntry{
		{LayerID: "body", FeatureID: "heart", Text: "Heart"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntry)
	assert.Contains(t, err.Error(), "label_cache_feature_id_check")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelStore_SaveLabelsValidatesBeforeWriting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = NewLabelStore(db, nil).SaveLabels(context.Background(), []domain.LabelEntry{
		{LayerID: "body", FeatureID: "heart", Text: "Heart"},
		{LayerID: "body", FeatureID: "heart", Text: "Heart"},
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	// no statements were issued
	assert.NoError(t, mock.ExpectationsWereMet())
}
