package sync

import (
	"context"
	"fmt"
	"log"

	"streamlens/internal/database"
	"streamlens/models"
	"streamlens/services/jellyfin"
)

type usersClient interface {
	ListUsers(ctx context.Context) ([]jellyfin.User, error)
}

var _ usersClient = (*jellyfin.Client)(nil)

// UserSync reconciles the remote Jellyfin user list into the local
// user table. Users are upserted wholesale; users removed remotely are
// kept with their last synced state.
type UserSync struct {
	db     *database.DB
	users  *database.UserRepository
	client usersClient
}

func NewUserSync(db *database.DB, users *database.UserRepository, client usersClient) *UserSync {
	return &UserSync{db: db, users: users, client: client}
}

// Sync runs one full pass. Any single upsert failure aborts the pass;
// nothing is committed in that case.
func (s *UserSync) Sync(ctx context.Context) error {
	remote, err := s.client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("fetch jellyfin users: %w", err)
	}
	log.Printf("[usersync] fetched %d users from jellyfin", len(remote))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user sync: %w", err)
	}
	defer tx.Rollback()

	for _, u := range remote {
		user := models.User{
			JellyfinID:      u.JellyfinID,
			Username:        u.Username,
			IsAdministrator: u.IsAdministrator,
			PrimaryImageTag: u.PrimaryImageTag,
			LastLogin:       u.LastLogin,
			LastSeen:        u.LastSeen,
		}
		if err := s.users.Upsert(ctx, tx, user); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user sync: %w", err)
	}

	log.Printf("[usersync] upserted %d users", len(remote))
	return nil
}
