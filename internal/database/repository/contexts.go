package repository

import (
	"context"
	"database/sql"
)

// ContextRepo handles spending contexts.
type ContextRepo struct{ db DBTX }

func NewContextRepo(db DBTX) *ContextRepo { return &ContextRepo{db: db} }

func (r *ContextRepo) Insert(ctx context.Context, c Context) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO contexts(id, name, icon, color) VALUES(?, ?, ?, ?);
	`, c.ID, c.Name, c.Icon, c.Color)
	return err
}

// List returns contexts that have not been soft-deleted.
func (r *ContextRepo) List(ctx context.Context) ([]Context, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, name, icon, color, deleted_at FROM contexts WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Context
	for rows.Next() {
		var c Context
		var deleted sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &deleted); err != nil {
			return nil, err
		}
		if deleted.Valid {
			c.DeletedAt = &deleted.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
