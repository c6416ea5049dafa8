package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"streamlens/internal/database"
	"streamlens/models"
	"streamlens/services/jellyfin"
	"streamlens/services/metadata"
)

type historyClient interface {
	ListUsers(ctx context.Context) ([]jellyfin.User, error)
	ListWatchHistory(ctx context.Context, jellyfinUserID string) ([]jellyfin.WatchItem, error)
}

var _ historyClient = (*jellyfin.Client)(nil)

type metadataResolver interface {
	Resolve(ctx context.Context, tmdbID int64, mediaType models.MediaType) (models.MediaItem, error)
}

var _ metadataResolver = (*metadata.Service)(nil)

type historyStore interface {
	Upsert(ctx context.Context, q database.Querier, entry models.WatchHistoryEntry) error
}

var _ historyStore = (*database.HistoryRepository)(nil)

// HistorySync reconciles Jellyfin play history into the local
// watch-history table. Unlike user and request sync, a single bad item
// never aborts the pass: history batches are large and one malformed
// row should not block the rest.
type HistorySync struct {
	db       *database.DB
	history  historyStore
	client   historyClient
	metadata metadataResolver
	now      func() time.Time
}

func NewHistorySync(db *database.DB, history historyStore, client historyClient, resolver metadataResolver) *HistorySync {
	return &HistorySync{
		db:       db,
		history:  history,
		client:   client,
		metadata: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SyncAll fetches the remote user list and syncs every user's history.
// Per-user failures are logged and the remaining users still sync.
func (s *HistorySync) SyncAll(ctx context.Context) error {
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("fetch jellyfin users: %w", err)
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("[historysync] processing user %s (%s)", user.Username, user.JellyfinID)
		if err := s.SyncUser(ctx, user.JellyfinID); err != nil {
			log.Printf("[historysync] user %s failed: %v", user.JellyfinID, err)
			continue
		}
	}
	return nil
}

// SyncUser runs one pass for a single user, committed as one batch.
// Items without a last-played timestamp are skipped entirely. Items
// whose metadata cannot be resolved keep their row but lose the
// metadata link; the next pass retries naturally since the item still
// carries its TMDB id remotely.
func (s *HistorySync) SyncUser(ctx context.Context, jellyfinUserID string) error {
	items, err := s.client.ListWatchHistory(ctx, jellyfinUserID)
	if err != nil {
		return fmt.Errorf("fetch watch history: %w", err)
	}

	// Resolve metadata before opening the batch transaction: each
	// resolution commits on its own connection.
	tmdbIDs := make([]*int64, len(items))
	for i, item := range items {
		if item.LastPlayedDate == nil || item.TmdbID == nil {
			tmdbIDs[i] = item.TmdbID
			continue
		}
		if _, err := s.metadata.Resolve(ctx, *item.TmdbID, models.NormalizeMediaType(item.ItemType)); err != nil {
			log.Printf("[historysync] metadata for item %s (tmdb %d) failed, clearing link: %v",
				item.ItemID, *item.TmdbID, err)
			continue
		}
		tmdbIDs[i] = item.TmdbID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history sync: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	upserted, skipped := 0, 0
	for i, item := range items {
		if item.LastPlayedDate == nil {
			skipped++
			continue
		}

		entry := models.WatchHistoryEntry{
			JellyfinUserID:   jellyfinUserID,
			ItemID:           item.ItemID,
			ItemName:         item.ItemName,
			ItemType:         item.ItemType,
			TmdbID:           tmdbIDs[i],
			ImdbID:           item.ImdbID,
			Genres:           item.Genres,
			PlayedPercentage: item.PlayedPercentage,
			PlayCount:        item.PlayCount,
			LastPlayedDate:   *item.LastPlayedDate,
			IsPlayed:         item.IsPlayed,
			RuntimeTicks:     item.RuntimeTicks,
			ProductionYear:   item.ProductionYear,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		// Each upsert runs under its own savepoint: on Postgres a
		// statement error aborts the enclosing transaction, which
		// would turn one bad item into a lost batch.
		if _, err := tx.ExecContext(ctx, "SAVEPOINT history_item"); err != nil {
			return fmt.Errorf("savepoint history item: %w", err)
		}
		if err := s.history.Upsert(ctx, tx, entry); err != nil {
			log.Printf("[historysync] upsert item %s for user %s failed, skipping: %v",
				item.ItemID, jellyfinUserID, err)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT history_item"); rbErr != nil {
				return fmt.Errorf("rollback history item savepoint: %w", rbErr)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT history_item"); err != nil {
			return fmt.Errorf("release history item savepoint: %w", err)
		}
		upserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history sync: %w", err)
	}

	log.Printf("[historysync] user %s: %d upserted, %d skipped of %d items",
		jellyfinUserID, upserted, skipped, len(items))
	return nil
}
