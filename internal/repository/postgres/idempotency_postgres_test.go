package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestIdempotencyPostgres_Reserve(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	ledger := NewIdempotencyPostgres(db)
	ctx := context.Background()

	t.Run("wins the insert", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO idempotency_keys").
			WithArgs("fp-1", "doc-1", model.StatusPending, int64(86400)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		won, err := ledger.Reserve(ctx, "fp-1", "doc-1", 24*time.Hour)

		assert.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("loses to an existing entry", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO idempotency_keys").
			WithArgs("fp-1", "doc-2", model.StatusPending, int64(86400)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		won, err := ledger.Reserve(ctx, "fp-1", "doc-2", 24*time.Hour)

		assert.NoError(t, err)
		assert.False(t, won)
	})
}

func TestIdempotencyPostgres_Lookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	ledger := NewIdempotencyPostgres(db)
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery("SELECT (.+) FROM idempotency_keys").
			WithArgs("fp-1").
			WillReturnRows(sqlmock.NewRows([]string{"fingerprint", "document_id", "status", "created_at", "expires_at"}).
				AddRow("fp-1", "doc-1", model.StatusMetadataRegistered, now, now.Add(24*time.Hour)))

		entry, err := ledger.Lookup(ctx, "fp-1")

		assert.NoError(t, err)
		assert.Equal(t, "doc-1", entry.DocumentID)
		assert.Equal(t, model.StatusMetadataRegistered, entry.Status)
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM idempotency_keys").
			WithArgs("fp-unknown").
			WillReturnError(sql.ErrNoRows)

		entry, err := ledger.Lookup(ctx, "fp-unknown")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, entry)
	})
}

func TestIdempotencyPostgres_AdvanceAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	ledger := NewIdempotencyPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE idempotency_keys").
		WithArgs(model.StatusStored, "fp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ledger.Advance(ctx, "fp-1", model.StatusStored))

	mock.ExpectExec("DELETE FROM idempotency_keys").
		WithArgs("fp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ledger.Release(ctx, "fp-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyPostgres_Evict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	ledger := NewIdempotencyPostgres(db)
	ctx := context.Background()

	cutoff := time.Now().UTC()
	mock.ExpectExec("DELETE FROM idempotency_keys").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := ledger.Evict(ctx, cutoff)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
