package repository_test

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

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCategorySoftDeleteExcludedFromList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	repo := repository.NewCategoryRepo(db)

	require.NoError(t, repo.Insert(ctx, repository.Category{
		ID: "c1", Name: "Transport", Type: repository.TypeExpense, Icon: "car", Color: "#89b4fa", Active: true,
	}))
	require.NoError(t, repo.Insert(ctx, repository.Category{
		ID: "c2", Name: "Old Stuff", Type: repository.TypeExpense, Icon: "tag", Color: "#f38ba8", Active: false,
	}))
	require.NoError(t, repo.SoftDelete(ctx, "c2", database.Now()))

	cats, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, "Transport", cats[0].Name)

	gone, err := repo.Get(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, gone)
	require.NotNil(t, gone.DeletedAt)
}

func TestImportRulesOrderAndNextPosition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	repo := repository.NewImportRuleRepo(db)

	pos, err := repo.NextPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, pos)

	require.NoError(t, repo.Insert(ctx, repository.ImportRule{
		ID: "r-b", MatchString: "b", MatchType: repository.MatchContains, CategoryID: "c1", Active: true, Position: 1,
	}))
	require.NoError(t, repo.Insert(ctx, repository.ImportRule{
		ID: "r-a", MatchString: "a", MatchType: repository.MatchContains, CategoryID: "c1", Active: true, Position: 0,
	}))
	require.NoError(t, repo.Insert(ctx, repository.ImportRule{
		ID: "r-off", MatchString: "c", MatchType: repository.MatchContains, CategoryID: "c1", Active: false, Position: 2,
	}))

	rules, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "r-a", rules[0].ID)
	require.Equal(t, "r-b", rules[1].ID)

	pos, err = repo.NextPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, pos)

	require.NoError(t, repo.Deactivate(ctx, "r-a"))
	rules, err = repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
}

func TestBudgetExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)

	catRepo := repository.NewCategoryRepo(db)
	require.NoError(t, catRepo.Insert(ctx, repository.Category{
		ID: "c1", Name: "Food", Type: repository.TypeExpense, Icon: "utensils", Color: "#fab387", Active: true,
	}))

	budgets := repository.NewBudgetRepo(db)
	ok, err := budgets.Exists(ctx, "c1", "2025-04")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, budgets.Insert(ctx, repository.Budget{
		ID: "b1", CategoryID: "c1", Period: "2025-04", AmountCents: 50000,
	}))
	ok, err = budgets.Exists(ctx, "c1", "2025-04")
	require.NoError(t, err)
	require.True(t, ok)

	// The unique index backs the idempotence contract.
	err = budgets.Insert(ctx, repository.Budget{
		ID: "b2", CategoryID: "c1", Period: "2025-04", AmountCents: 10000,
	})
	require.Error(t, err)
}

func TestTransactionFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)

	catRepo := repository.NewCategoryRepo(db)
	require.NoError(t, catRepo.Insert(ctx, repository.Category{
		ID: "c1", Name: "Groceries", Type: repository.TypeExpense, Icon: "shopping-cart", Color: "#94e2d5", Active: true,
	}))

	txRepo := repository.NewTransactionRepo(db)
	cat := "c1"
	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, txRepo.Insert(ctx, repository.Transaction{
		ID: "t1", Date: march.AddDate(0, 0, 9), AmountCents: 4250, Description: "WOOLWORTHS", Type: repository.TypeExpense, CategoryID: &cat,
	}))
	require.NoError(t, txRepo.Insert(ctx, repository.Transaction{
		ID: "t2", Date: march.AddDate(0, 1, 2), AmountCents: 900, Description: "COFFEE", Type: repository.TypeExpense,
	}))

	got, err := txRepo.List(ctx, repository.TransactionFilters{CategoryID: "c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "t1", got[0].ID)

	got, err = txRepo.List(ctx, repository.TransactionFilters{Month: march})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = txRepo.List(ctx, repository.TransactionFilters{Search: "coffee"})
	require.NoError(t, err)
	require.Len(t, got, 1, "sqlite LIKE is case-insensitive for ASCII")

	n, err := txRepo.CountByCategory(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
