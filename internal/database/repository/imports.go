package repository

import (
	"context"
)

// ImportRepo records committed import runs.
type ImportRepo struct{ db DBTX }

func NewImportRepo(db DBTX) *ImportRepo { return &ImportRepo{db: db} }

func (r *ImportRepo) Add(ctx context.Context, rec ImportRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO imports(id, source, categories, transactions, recurring, budgets, orphans, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, rec.ID, rec.Source, rec.Categories, rec.Transactions, rec.Recurring, rec.Budgets, rec.Orphans)
	return err
}

func (r *ImportRepo) List(ctx context.Context) ([]ImportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, source, categories, transactions, recurring, budgets, orphans, created_at
	FROM imports ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Categories, &rec.Transactions,
			&rec.Recurring, &rec.Budgets, &rec.Orphans, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
