package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/iliyamo/ordermgmt/internal/model"
)

const roleCacheSize = 16

// RoleRepo reads the roles reference table. Roles are seeded by
// migrations and never edited at runtime, so lookups are cached.
type RoleRepo struct {
	DB    *sql.DB
	cache *lru.Cache[model.RoleName, model.Role]
}

func NewRoleRepo(db *sql.DB) *RoleRepo {
	cache, err := lru.New[model.RoleName, model.Role](roleCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &RoleRepo{DB: db, cache: cache}
}

// GetByName returns the role row for name, or ErrNotFound.
func (r *RoleRepo) GetByName(ctx context.Context, name model.RoleName) (model.Role, error) {
	if role, ok := r.cache.Get(name); ok {
		return role, nil
	}
	var role model.Role
	var raw string
	err := r.DB.QueryRowContext(ctx, "SELECT id, name FROM roles WHERE name = ? LIMIT 1", string(name)).
		Scan(&role.ID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("query role: %w", err)
	}
	role.Name = model.RoleName(raw)
	if !role.Name.Valid() {
		return model.Role{}, ErrUnknownRole
	}
	r.cache.Add(name, role)
	return role, nil
}

// List returns every role, ordered by id. Rows with unknown names are
// reported as ErrUnknownRole.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var role model.Role
		var raw string
		if err := rows.Scan(&role.ID, &raw); err != nil {
			return nil, err
		}
		role.Name = model.RoleName(raw)
		if !role.Name.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, raw)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
