package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/ogurasousui/cafe-staffing/internal/core/identifier"
	pgdb "github.com/ogurasousui/cafe-staffing/internal/platform/db/postgres"
)

func TestSequenceRepository_LastIssued(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewSequenceRepository(mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (prefix) DO UPDATE SET prefix = EXCLUDED.prefix`)).
		WithArgs("UI").
		WillReturnRows(pgxmock.NewRows([]string{"greatest"}).AddRow(int64(41)))

	last, err := repo.LastIssued(context.Background(), "UI")
	if err != nil {
		t.Fatalf("LastIssued returned error: %v", err)
	}
	if last != 41 {
		t.Fatalf("expected 41, got %d", last)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSequenceRepository_LastIssued_PropagatesError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewSequenceRepository(mock, nil)
	dbErr := errors.New("serialization failure")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO employee_id_sequences`)).
		WithArgs("UI").
		WillReturnError(dbErr)

	if _, err := repo.LastIssued(context.Background(), "UI"); !errors.Is(err, dbErr) {
		t.Fatalf("expected %v, got %v", dbErr, err)
	}
}

func TestSequenceRepository_Record(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewSequenceRepository(mock, nil)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE employee_id_sequences`)).
		WithArgs("UI", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Record(context.Background(), "UI", 42); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSequenceRepository_AllocatesInsideReadWriteTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	tm := pgdb.NewTransactionManager(mock)
	ids := identifier.NewAllocator(NewSequenceRepository(mock, nil), "UI", 7)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (prefix) DO UPDATE SET prefix = EXCLUDED.prefix`)).
		WithArgs("UI").
		WillReturnRows(pgxmock.NewRows([]string{"greatest"}).AddRow(int64(0)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE employee_id_sequences`)).
		WithArgs("UI", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	var id string
	err = tm.WithinReadWrite(context.Background(), func(txCtx context.Context) error {
		var err error
		id, err = ids.Next(txCtx)
		return err
	})
	if err != nil {
		t.Fatalf("WithinReadWrite returned error: %v", err)
	}
	if id != "UI0000001" {
		t.Fatalf("expected UI0000001, got %s", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
