package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tillbook/tillbook/internal/database/repository"
)

// SeedDefaults ensures the Uncategorized sentinel and a baseline category
// tree exist. It is idempotent and safe to run on every startup. The
// sentinel is local-only: the sync layer never sees it.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)

	sentinel := repository.Category{
		ID:        repository.UncategorizedCategoryID,
		Name:      "Uncategorized",
		Type:      repository.TypeExpense,
		Icon:      "help-circle",
		Color:     "#7f849c",
		Active:    true,
		LocalOnly: true,
		SortOrder: 999,
	}
	if err := catRepo.Upsert(ctx, sentinel); err != nil {
		return err
	}

	existing, err := catRepo.List(ctx)
	if err != nil || len(existing) > 1 {
		return err
	}

	defaults := []struct {
		name  string
		typ   string
		icon  string
		color string
	}{
		{"Salary", repository.TypeIncome, "banknote", "#a6e3a1"},
		{"Groceries", repository.TypeExpense, "shopping-cart", "#94e2d5"},
		{"Dining & Drinks", repository.TypeExpense, "utensils", "#fab387"},
		{"Transport", repository.TypeExpense, "car", "#89b4fa"},
		{"Bills & Utilities", repository.TypeExpense, "receipt", "#cba6f7"},
		{"Entertainment", repository.TypeExpense, "film", "#f5c2e7"},
		{"Health", repository.TypeExpense, "heart", "#74c7ec"},
		{"Stocks", repository.TypeInvestment, "trending-up", "#b4befe"},
	}
	for idx, d := range defaults {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("cat:"+d.name)).String()
		cat := repository.Category{
			ID:        id,
			Name:      d.name,
			Type:      d.typ,
			Icon:      d.icon,
			Color:     d.color,
			Active:    true,
			SortOrder: idx,
		}
		if err := catRepo.Upsert(ctx, cat); err != nil {
			return err
		}
	}
	return nil
}
