package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamlens/models"
)

func seedRequest(t *testing.T, db *DB, repo *RequestRepository, jellyseerrID int64, status models.RequestStatus) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := repo.Upsert(context.Background(), db, models.MediaRequest{
		JellyseerrID: jellyseerrID,
		TmdbID:       jellyseerrID * 100,
		MediaType:    models.MediaTypeMovie,
		Title:        "Request",
		RequestDate:  now,
		Status:       status,
		Requester:    "alice",
		Genres:       []string{"Action"},
		IsDeleted:    false,
		LastChecked:  now,
	})
	require.NoError(t, err)
}

func TestRequestUpsertRevivesSoftDeleted(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	seedRequest(t, db, repo, 7, models.RequestStatusPending)
	require.NoError(t, repo.MarkDeleted(ctx, db, []int64{7}, time.Now().UTC()))

	got, found, err := repo.Get(ctx, db, 7)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.IsDeleted)
	require.Equal(t, models.RequestStatusDeleted, got.Status)

	// The request showing up again in a later sync clears the tombstone.
	seedRequest(t, db, repo, 7, models.RequestStatusAvailable)
	got, found, err = repo.Get(ctx, db, 7)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, got.IsDeleted)
	require.Equal(t, models.RequestStatusAvailable, got.Status)
}

func TestRequestExistingIDsAndMarkDeleted(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	seedRequest(t, db, repo, 1, models.RequestStatusPending)
	seedRequest(t, db, repo, 2, models.RequestStatusApproved)
	seedRequest(t, db, repo, 3, models.RequestStatusAvailable)

	ids, err := repo.ExistingIDs(ctx, db)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Contains(t, ids, int64(2))

	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkDeleted(ctx, db, []int64{1, 3}, now))

	active, err := repo.List(ctx, db, 10, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, int64(2), active[0].JellyseerrID)

	all, err := repo.List(ctx, db, 10, true)
	require.NoError(t, err)
	require.Len(t, all, 3)

	got, found, err := repo.Get(ctx, db, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.IsDeleted)
	require.Equal(t, models.RequestStatusDeleted, got.Status)
	require.WithinDuration(t, now, got.LastChecked, time.Second)
}

func TestRequestMarkDeletedEmpty(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db)

	require.NoError(t, repo.MarkDeleted(context.Background(), db, nil, time.Now().UTC()))
}

func TestRequestMarkDeletedChunksLargeSets(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	total := markDeletedChunkSize + 5
	ids := make([]int64, 0, total)
	for i := 1; i <= total; i++ {
		seedRequest(t, db, repo, int64(i), models.RequestStatusPending)
		ids = append(ids, int64(i))
	}

	require.NoError(t, repo.MarkDeleted(ctx, db, ids, time.Now().UTC()))

	active, err := repo.List(ctx, db, total, false)
	require.NoError(t, err)
	require.Empty(t, active)

	counts, err := repo.StatusCounts(ctx, db)
	require.NoError(t, err)
	require.Equal(t, total, counts["deleted"])
}

func TestRequestStatusCounts(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	seedRequest(t, db, repo, 1, models.RequestStatusPending)
	seedRequest(t, db, repo, 2, models.RequestStatusPending)
	seedRequest(t, db, repo, 3, models.RequestStatusAvailable)

	counts, err := repo.StatusCounts(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 2, counts["pending"])
	require.Equal(t, 1, counts["available"])
}

func TestRequestGenreCountsSkipDeleted(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	seedRequest(t, db, repo, 1, models.RequestStatusPending)
	seedRequest(t, db, repo, 2, models.RequestStatusPending)
	require.NoError(t, repo.MarkDeleted(ctx, db, []int64{2}, time.Now().UTC()))

	counts, err := repo.GenreCounts(ctx, db)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, "Action", counts[0].Genre)
	require.Equal(t, 1, counts[0].Count)
}
