package db

import (
	"context"

	"github.com/polyblog/backend/internal/model"
)

const roleColumns = `id, name, display_name, description, color, permissions, level, is_active`
const rankColumns = `id, name, display_name, description, icon, color, min_comments, min_likes, level, is_active`

func scanRole(row rowScanner) (*model.Role, error) {
	var r model.Role
	err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Description, &r.Color, &r.Permissions, &r.Level, &r.IsActive)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRank(row rowScanner) (*model.Rank, error) {
	var r model.Rank
	err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Description, &r.Icon, &r.Color, &r.MinComments, &r.MinLikes, &r.Level, &r.IsActive)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *Postgres) GetRoleByID(ctx context.Context, id int64) (*model.Role, error) {
	return scanRole(db.Pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

func (db *Postgres) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	return scanRole(db.Pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

func (db *Postgres) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_active ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, rows.Err()
}

func (db *Postgres) GetRankByID(ctx context.Context, id int64) (*model.Rank, error) {
	return scanRank(db.Pool.QueryRow(ctx, `SELECT `+rankColumns+` FROM ranks WHERE id = $1`, id))
}

func (db *Postgres) GetRankByName(ctx context.Context, name string) (*model.Rank, error) {
	return scanRank(db.Pool.QueryRow(ctx, `SELECT `+rankColumns+` FROM ranks WHERE name = $1`, name))
}

// ListActiveRanks returns active ranks ordered by descending level, the
// order the promotion rule scans them in.
func (db *Postgres) ListActiveRanks(ctx context.Context) ([]model.Rank, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+rankColumns+` FROM ranks WHERE is_active ORDER BY level DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Rank
	for rows.Next() {
		rank, err := scanRank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rank)
	}
	return out, rows.Err()
}

// SeedRolesAndRanks inserts the built-in roles and ranks if missing. Safe to
// run on every startup.
func (db *Postgres) SeedRolesAndRanks(ctx context.Context) error {
	roles := []model.Role{
		{
			Name:        "user",
			DisplayName: "User",
			Description: "Regular blog user",
			Color:       "#6c757d",
			Permissions: []string{"comment.create", "comment.like", "profile.edit"},
			Level:       1,
			IsActive:    true,
		},
		{
			Name:        "admin",
			DisplayName: "Administrator",
			Description: "Blog administrator with full permissions",
			Color:       "#dc3545",
			Permissions: []string{
				"comment.create", "comment.like", "comment.moderate", "comment.delete",
				"post.create", "post.edit", "post.delete", "post.publish",
				"user.manage", "role.manage", "system.admin",
			},
			Level:    100,
			IsActive: true,
		},
	}
	ranks := []model.Rank{
		{Name: "newbie", DisplayName: "Newcomer", Icon: "👶", Color: "#17a2b8", MinComments: 0, MinLikes: 0, Level: 1, IsActive: true},
		{Name: "regular", DisplayName: "Regular", Icon: "👤", Color: "#28a745", MinComments: 5, MinLikes: 10, Level: 2, IsActive: true},
		{Name: "trusted", DisplayName: "Trusted", Icon: "🤝", Color: "#007bff", MinComments: 25, MinLikes: 50, Level: 3, IsActive: true},
		{Name: "star", DisplayName: "Community Star", Icon: "⭐", Color: "#ffc107", MinComments: 100, MinLikes: 200, Level: 4, IsActive: true},
	}

	for _, r := range roles {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO roles (name, display_name, description, color, permissions, level, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (name) DO NOTHING
		`, r.Name, r.DisplayName, r.Description, r.Color, r.Permissions, r.Level, r.IsActive)
		if err != nil {
			return err
		}
	}
	for _, r := range ranks {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO ranks (name, display_name, description, icon, color, min_comments, min_likes, level, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (name) DO NOTHING
		`, r.Name, r.DisplayName, r.Description, r.Icon, r.Color, r.MinComments, r.MinLikes, r.Level, r.IsActive)
		if err != nil {
			return err
		}
	}
	return nil
}
