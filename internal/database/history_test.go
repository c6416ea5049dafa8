package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamlens/models"
)

func TestHistoryUpsertKeepsCreatedAt(t *testing.T) {
	db := openTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	created := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	tmdbID := int64(550)
	entry := models.WatchHistoryEntry{
		JellyfinUserID: "user-1",
		ItemID:         "item-1",
		ItemName:       "Fight Club",
		ItemType:       "Movie",
		TmdbID:         &tmdbID,
		Genres:         []string{"Drama"},
		PlayCount:      1,
		LastPlayedDate: created,
		IsPlayed:       true,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, repo.Upsert(ctx, db, entry))

	later := created.Add(48 * time.Hour)
	entry.PlayCount = 2
	entry.LastPlayedDate = later
	entry.CreatedAt = later
	entry.UpdatedAt = later
	require.NoError(t, repo.Upsert(ctx, db, entry))

	entries, err := repo.List(ctx, db, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 2, entries[0].PlayCount)
	require.WithinDuration(t, created, entries[0].CreatedAt, time.Second)
	require.WithinDuration(t, later, entries[0].UpdatedAt, time.Second)
	require.NotNil(t, entries[0].TmdbID)
	require.Equal(t, int64(550), *entries[0].TmdbID)
}

func TestHistoryListFiltersByUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, user := range []string{"user-a", "user-a", "user-b"} {
		entry := models.WatchHistoryEntry{
			JellyfinUserID: user,
			ItemID:         user + "-" + now.String(),
			ItemName:       "Episode",
			ItemType:       "Episode",
			LastPlayedDate: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, repo.Upsert(ctx, db, entry))
		now = now.Add(time.Minute)
	}

	forA, err := repo.List(ctx, db, "user-a", 10)
	require.NoError(t, err)
	require.Len(t, forA, 2)

	all, err := repo.List(ctx, db, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Most recently played first.
	require.Equal(t, "user-b", all[0].JellyfinUserID)
}

func TestHistoryGenreCounts(t *testing.T) {
	db := openTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	genres := [][]string{
		{"Drama", "Crime"},
		{"Drama"},
		nil,
	}
	for i, g := range genres {
		entry := models.WatchHistoryEntry{
			JellyfinUserID: "user-1",
			ItemID:         string(rune('a' + i)),
			ItemName:       "Item",
			ItemType:       "Movie",
			Genres:         g,
			LastPlayedDate: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, repo.Upsert(ctx, db, entry))
	}

	counts, err := repo.GenreCounts(ctx, db)
	require.NoError(t, err)
	require.Equal(t, []GenreCount{
		{Genre: "Drama", Count: 2},
		{Genre: "Crime", Count: 1},
	}, counts)
}
