package repository

import (
	"context"
)

// BudgetRepo handles budgets.
type BudgetRepo struct{ db DBTX }

func NewBudgetRepo(db DBTX) *BudgetRepo { return &BudgetRepo{db: db} }

func (r *BudgetRepo) Insert(ctx context.Context, b Budget) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO budgets(id, category_id, period, amount, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, b.ID, b.CategoryID, b.Period, b.AmountCents)
	return err
}

// Exists reports whether a budget is already defined for (category, period).
func (r *BudgetRepo) Exists(ctx context.Context, categoryID, period string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets WHERE category_id = ? AND period = ?`, categoryID, period).Scan(&n)
	return n > 0, err
}

func (r *BudgetRepo) List(ctx context.Context) ([]Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, category_id, period, amount, created_at FROM budgets ORDER BY period, category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Period, &b.AmountCents, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
