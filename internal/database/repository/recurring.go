package repository

import (
	"context"
	"database/sql"
)

// RecurringRepo handles recurring obligations.
type RecurringRepo struct{ db DBTX }

func NewRecurringRepo(db DBTX) *RecurringRepo { return &RecurringRepo{db: db} }

func (r *RecurringRepo) Insert(ctx context.Context, e RecurringEntry) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO recurring_entries(id, description, amount, type, frequency, category_id, start_date)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`, e.ID, e.Description, e.AmountCents, e.Type, e.Frequency, e.CategoryID, e.StartDate)
	return err
}

// List returns recurring entries that have not been soft-deleted.
func (r *RecurringRepo) List(ctx context.Context) ([]RecurringEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, description, amount, type, frequency, category_id, start_date, deleted_at
	FROM recurring_entries WHERE deleted_at IS NULL ORDER BY description`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecurringEntry
	for rows.Next() {
		var e RecurringEntry
		var category sql.NullString
		var deleted sql.NullTime
		if err := rows.Scan(&e.ID, &e.Description, &e.AmountCents, &e.Type,
			&e.Frequency, &category, &e.StartDate, &deleted); err != nil {
			return nil, err
		}
		if category.Valid {
			e.CategoryID = &category.String
		}
		if deleted.Valid {
			e.DeletedAt = &deleted.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
