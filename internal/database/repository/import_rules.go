package repository

import (
	"context"
	"database/sql"
	"time"
)

// ImportRuleRepo stores classification rules.
type ImportRuleRepo struct{ db DBTX }

func NewImportRuleRepo(db DBTX) *ImportRuleRepo { return &ImportRuleRepo{db: db} }

func (r *ImportRuleRepo) Insert(ctx context.Context, rule ImportRule) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO import_rules(id, match_string, match_type, category_id, active, position, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, rule.ID, rule.MatchString, rule.MatchType, rule.CategoryID, rule.Active, rule.Position)
	return err
}

// ListActive returns active, non-deleted rules in consultation order.
func (r *ImportRuleRepo) ListActive(ctx context.Context) ([]ImportRule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, match_string, match_type, category_id, active, position, created_at, deleted_at
	FROM import_rules WHERE active = 1 AND deleted_at IS NULL
	ORDER BY position, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportRule
	for rows.Next() {
		var rule ImportRule
		var deleted sql.NullTime
		if err := rows.Scan(&rule.ID, &rule.MatchString, &rule.MatchType, &rule.CategoryID,
			&rule.Active, &rule.Position, &rule.CreatedAt, &deleted); err != nil {
			return nil, err
		}
		if deleted.Valid {
			rule.DeletedAt = &deleted.Time
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// NextPosition returns the position a newly created rule should take so it
// is consulted after every existing rule.
func (r *ImportRuleRepo) NextPosition(ctx context.Context) (int, error) {
	var maxPos sql.NullInt64
	if err := r.db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM import_rules WHERE deleted_at IS NULL`).Scan(&maxPos); err != nil {
		return 0, err
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return int(maxPos.Int64) + 1, nil
}

func (r *ImportRuleRepo) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE import_rules SET active = 0 WHERE id = ?`, id)
	return err
}

func (r *ImportRuleRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE import_rules SET deleted_at = ? WHERE id = ?`, at, id)
	return err
}
