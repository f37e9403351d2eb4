package repository

import (
	"context"
	"database/sql"
	"time"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Insert(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(id, parent_id, name, type, icon, color, active, local_only, sort_order)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, c.ID, c.ParentID, c.Name, c.Type, c.Icon, c.Color, c.Active, c.LocalOnly, c.SortOrder)
	return err
}

func (r *CategoryRepo) Upsert(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(id, parent_id, name, type, icon, color, active, local_only, sort_order)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 parent_id=excluded.parent_id,
	 name=excluded.name,
	 icon=excluded.icon,
	 color=excluded.color,
	 active=excluded.active,
	 sort_order=excluded.sort_order;
	`, c.ID, c.ParentID, c.Name, c.Type, c.Icon, c.Color, c.Active, c.LocalOnly, c.SortOrder)
	return err
}

// List returns categories that have not been soft-deleted.
func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, parent_id, name, type, icon, color, active, local_only, sort_order, deleted_at
	FROM categories WHERE deleted_at IS NULL ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Get(ctx context.Context, id string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, parent_id, name, type, icon, color, active, local_only, sort_order, deleted_at
	FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE categories SET deleted_at = ? WHERE id = ?`, at, id)
	return err
}

func scanCategory(row scanner) (Category, error) {
	var c Category
	var parent sql.NullString
	var deleted sql.NullTime
	if err := row.Scan(&c.ID, &parent, &c.Name, &c.Type, &c.Icon, &c.Color,
		&c.Active, &c.LocalOnly, &c.SortOrder, &deleted); err != nil {
		return Category{}, err
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	if deleted.Valid {
		c.DeletedAt = &deleted.Time
	}
	return c, nil
}
