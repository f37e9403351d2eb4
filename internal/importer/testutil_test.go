package importer

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/database"
	"github.com/tillbook/tillbook/internal/database/repository"
)

// newTestDB opens a migrated throwaway sqlite database with the
// Uncategorized sentinel in place.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sentinel := repository.Category{
		ID:        repository.UncategorizedCategoryID,
		Name:      "Uncategorized",
		Type:      repository.TypeExpense,
		Icon:      "help-circle",
		Color:     "#7f849c",
		Active:    true,
		LocalOnly: true,
	}
	require.NoError(t, repository.NewCategoryRepo(db).Upsert(context.Background(), sentinel))
	return db
}

// mustInsertCategory adds an existing local category for tests.
func mustInsertCategory(t *testing.T, db *sql.DB, name, typ string) repository.Category {
	t.Helper()
	c := repository.Category{
		ID:     deterministicTestID(name),
		Name:   name,
		Type:   typ,
		Icon:   "tag",
		Color:  "#89b4fa",
		Active: true,
	}
	require.NoError(t, repository.NewCategoryRepo(db).Insert(context.Background(), c))
	return c
}

func deterministicTestID(name string) string {
	return "test-cat-" + name
}

func strptr(s string) *string { return &s }

func mustDate(t *testing.T, iso string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, iso)
	require.NoError(t, err)
	return d
}
