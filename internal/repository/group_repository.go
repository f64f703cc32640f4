package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/okten/crm-api/internal/model"
)

// GroupRepo implements GroupStore over the 'groups' table.
type GroupRepo struct{ DB *sql.DB }

func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{DB: db} }

// Create inserts a group and returns the stored row. Duplicate names
// fail with ErrGroupExists.
func (r *GroupRepo) Create(ctx context.Context, name string) (model.Group, error) {
	res, err := r.DB.ExecContext(ctx, "INSERT INTO `groups` (name) VALUES (?)", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Group{}, ErrGroupExists
		}
		return model.Group{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Group{}, err
	}
	var g model.Group
	err = r.DB.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM `groups` WHERE id=? LIMIT 1", id).
		Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// ListAll returns every group, newest first.
func (r *GroupRepo) ListAll(ctx context.Context) ([]model.Group, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, created_at, updated_at FROM `groups` ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
