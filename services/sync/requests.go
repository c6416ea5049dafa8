package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"streamlens/internal/database"
	"streamlens/models"
	"streamlens/services/jellyseerr"
)

// RequestSync reconciles the Jellyseerr request queue into the local
// request table, soft-deleting rows whose remote counterpart is gone.
type RequestSync struct {
	db       *database.DB
	requests *database.RequestRepository
	metadata metadataResolver
	now      func() time.Time
}

func NewRequestSync(db *database.DB, requests *database.RequestRepository, resolver metadataResolver) *RequestSync {
	return &RequestSync{
		db:       db,
		requests: requests,
		metadata: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sync runs one pass over the full remote request list. Metadata is
// mandatory for a request, so a resolution failure aborts the whole
// pass. Soft-deletion is computed against the snapshot of ids taken
// before any upsert, so a request present remotely is never marked
// deleted in the same pass, and a vanished request is soft-deleted
// exactly once no matter how many cycles have elapsed.
func (s *RequestSync) Sync(ctx context.Context, remote []jellyseerr.Request) error {
	// Resolve all metadata up front; each resolution commits on its
	// own connection, outside the batch transaction.
	resolved := make([]models.MediaItem, len(remote))
	for i, req := range remote {
		item, err := s.metadata.Resolve(ctx, req.Media.TmdbID, models.NormalizeMediaType(req.Type))
		if err != nil {
			return fmt.Errorf("resolve request %d metadata: %w", req.ID, err)
		}
		resolved[i] = item
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin request sync: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.requests.ExistingIDs(ctx, tx)
	if err != nil {
		return err
	}

	now := s.now()
	current := make(map[int64]struct{}, len(remote))
	for i, req := range remote {
		current[req.ID] = struct{}{}

		status, known := models.MapRequestStatus(req.Status)
		if !known {
			log.Printf("[requestsync] request %d has unknown status %d, defaulting to %s",
				req.ID, req.Status, status)
		}

		record := models.MediaRequest{
			JellyseerrID: req.ID,
			TmdbID:       req.Media.TmdbID,
			MediaType:    models.NormalizeMediaType(req.Type),
			Title:        resolved[i].Title,
			RequestDate:  req.CreatedAt,
			Status:       status,
			Requester:    req.RequestedBy.DisplayName,
			Genres:       resolved[i].Genres,
			IsDeleted:    false,
			LastChecked:  now,
		}
		if err := s.requests.Upsert(ctx, tx, record); err != nil {
			return err
		}
	}

	var deleted []int64
	for id := range existing {
		if _, ok := current[id]; !ok {
			deleted = append(deleted, id)
		}
	}
	if err := s.requests.MarkDeleted(ctx, tx, deleted, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit request sync: %w", err)
	}

	log.Printf("[requestsync] %d requests upserted, %d soft-deleted", len(remote), len(deleted))
	return nil
}
