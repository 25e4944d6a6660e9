package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestClassifyWriteError(t *testing.T) {
	unique := &pgconn.PgError{Code: pgUniqueViolation}
	foreignKey := &pgconn.PgError{Code: pgForeignKeyViolation}
	other := errors.New("connection reset")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNot error
	}{
		{name: "unique violation", err: unique, wantIs: domain.ErrOrderAlreadyExists},
		{name: "wrapped unique violation", err: fmt.Errorf("exec: %w", unique), wantIs: domain.ErrOrderAlreadyExists},
		{name: "foreign key violation", err: foreignKey, wantIs: domain.ErrReferenceViolation, wantNot: domain.ErrOrderAlreadyExists},
		{name: "other error", err: other, wantIs: other, wantNot: domain.ErrOrderAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyWriteError("insert order", tt.err, domain.ErrOrderAlreadyExists)
			if !errors.Is(got, tt.wantIs) {
				t.Fatalf("expected %v in chain, got %v", tt.wantIs, got)
			}
			if tt.wantNot != nil && errors.Is(got, tt.wantNot) {
				t.Fatalf("did not expect %v in chain: %v", tt.wantNot, got)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("original cause lost: %v", got)
			}
		})
	}
}

func TestPgErrorCode(t *testing.T) {
	if code := pgErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code, got %q", code)
	}
	if !isUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation}) {
		t.Fatal("expected unique violation")
	}
	if !isForeignKeyViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: pgForeignKeyViolation})) {
		t.Fatal("expected foreign key violation")
	}
}

func TestStore_NilSafe(t *testing.T) {
	var store *Store
	if err := store.Ping(context.Background()); !errors.Is(err, errStoreNotInitialized) {
		t.Fatalf("expected errStoreNotInitialized, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := inTx(ctx, store.DB(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO products (id, name, price_minor) VALUES ('tx-p', 'tx', 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE id = 'tx-p'`).Scan(&count); err != nil {
		t.Fatalf("count products: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}
