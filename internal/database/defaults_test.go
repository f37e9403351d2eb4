package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/database/repository"
)

func TestSeedDefaultsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(dbPath, migrations))

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SeedDefaults(ctx, db))
	catRepo := repository.NewCategoryRepo(db)
	first, err := catRepo.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	sentinel, err := catRepo.Get(ctx, repository.UncategorizedCategoryID)
	require.NoError(t, err)
	require.NotNil(t, sentinel)
	require.True(t, sentinel.LocalOnly, "the sentinel never reaches the sync layer")

	require.NoError(t, SeedDefaults(ctx, db))
	second, err := catRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(dbPath, migrations))

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	err = WithTx(db, func(tx *sql.Tx) error {
		if _, e := tx.ExecContext(ctx, `INSERT INTO contexts(id, name) VALUES('c1', 'Wallet')`); e != nil {
			return e
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts`).Scan(&n))
	require.Zero(t, n, "rolled-back writes are invisible")
}
