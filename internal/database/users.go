package database

import (
	"context"
	"fmt"

	"streamlens/models"
)

// UserRepository persists Jellyfin users.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert writes a user keyed on jellyfin_id, overwriting every column
// with the freshly fetched values.
func (r *UserRepository) Upsert(ctx context.Context, q Querier, user models.User) error {
	query := r.db.rebind(`
		INSERT INTO users (jellyfin_id, username, is_administrator, primary_image_tag, last_login, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (jellyfin_id) DO UPDATE SET
			username = excluded.username,
			is_administrator = excluded.is_administrator,
			primary_image_tag = excluded.primary_image_tag,
			last_login = excluded.last_login,
			last_seen = excluded.last_seen`)

	_, err := q.ExecContext(ctx, query,
		user.JellyfinID, user.Username, user.IsAdministrator,
		user.PrimaryImageTag, user.LastLogin, user.LastSeen)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.JellyfinID, err)
	}
	return nil
}

// List returns all users ordered by username.
func (r *UserRepository) List(ctx context.Context, q Querier) ([]models.User, error) {
	query := `
		SELECT id, jellyfin_id, username, is_administrator, primary_image_tag, last_login, last_seen
		FROM users ORDER BY username`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.JellyfinID, &u.Username, &u.IsAdministrator,
			&u.PrimaryImageTag, &u.LastLogin, &u.LastSeen); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
