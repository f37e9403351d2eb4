package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	CategoryID string
	ContextID  string
	Type       string
	Month      time.Time // first day of month; zero time = no month filter
	Search     string
}

// TransactionRepo handles transactions.
type TransactionRepo struct{ db DBTX }

func NewTransactionRepo(db DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(id, date, amount, description, type, category_id, context_id, import_id, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, t.ID, t.Date, t.AmountCents, t.Description, t.Type, t.CategoryID, t.ContextID, t.ImportID)
	return err
}

func (r *TransactionRepo) UpdateCategory(ctx context.Context, id string, categoryID *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET category_id = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, categoryID, id)
	return err
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []any

	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.ContextID != "" {
		where = append(where, "context_id = ?")
		args = append(args, f.ContextID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if !f.Month.IsZero() {
		start := time.Date(f.Month.Year(), f.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		where = append(where, "date >= ? AND date < ?")
		args = append(args, start, end)
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := `SELECT id, date, amount, description, type, category_id, context_id, import_id, created_at, updated_at FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountByCategory returns the number of transactions assigned to a category.
// With the sentinel id it counts the user's outstanding orphans.
func (r *TransactionRepo) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE category_id = ?`, categoryID).Scan(&n)
	return n, err
}

// scanner handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var category, contextID, importID sql.NullString
	if err := row.Scan(&t.ID, &t.Date, &t.AmountCents, &t.Description, &t.Type,
		&category, &contextID, &importID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if category.Valid {
		t.CategoryID = &category.String
	}
	if contextID.Valid {
		t.ContextID = &contextID.String
	}
	if importID.Valid {
		t.ImportID = &importID.String
	}
	return t, nil
}
