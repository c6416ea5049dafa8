package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"streamlens/models"
)

// HistoryRepository persists watch-history rows.
type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Upsert writes an entry keyed on (jellyfin_user_id, item_id). On
// conflict every non-key column except created_at is overwritten with
// the freshly fetched values.
func (r *HistoryRepository) Upsert(ctx context.Context, q Querier, entry models.WatchHistoryEntry) error {
	genres, err := encodeGenres(entry.Genres)
	if err != nil {
		return err
	}

	query := r.db.rebind(`
		INSERT INTO watch_history (jellyfin_user_id, item_id, item_name, item_type, tmdb_id, imdb_id,
		                           genres, played_percentage, play_count, last_played_date, is_played,
		                           runtime_ticks, production_year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (jellyfin_user_id, item_id) DO UPDATE SET
			item_name = excluded.item_name,
			item_type = excluded.item_type,
			tmdb_id = excluded.tmdb_id,
			imdb_id = excluded.imdb_id,
			genres = excluded.genres,
			played_percentage = excluded.played_percentage,
			play_count = excluded.play_count,
			last_played_date = excluded.last_played_date,
			is_played = excluded.is_played,
			runtime_ticks = excluded.runtime_ticks,
			production_year = excluded.production_year,
			updated_at = excluded.updated_at`)

	_, err = q.ExecContext(ctx, query,
		entry.JellyfinUserID, entry.ItemID, entry.ItemName, entry.ItemType,
		entry.TmdbID, entry.ImdbID, genres, entry.PlayedPercentage, entry.PlayCount,
		entry.LastPlayedDate, entry.IsPlayed, entry.RuntimeTicks, entry.ProductionYear,
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert history %s/%s: %w", entry.JellyfinUserID, entry.ItemID, err)
	}
	return nil
}

// List returns entries ordered by most recently played. An empty
// jellyfinUserID returns entries for all users.
func (r *HistoryRepository) List(ctx context.Context, q Querier, jellyfinUserID string, limit int) ([]models.WatchHistoryEntry, error) {
	query := `
		SELECT id, jellyfin_user_id, item_id, item_name, item_type, tmdb_id, imdb_id,
		       genres, played_percentage, play_count, last_played_date, is_played,
		       runtime_ticks, production_year, created_at, updated_at
		FROM watch_history`
	args := []any{}
	if jellyfinUserID != "" {
		query += ` WHERE jellyfin_user_id = ?`
		args = append(args, jellyfinUserID)
	}
	query += ` ORDER BY last_played_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchHistoryEntry
	for rows.Next() {
		var (
			e      models.WatchHistoryEntry
			genres sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.JellyfinUserID, &e.ItemID, &e.ItemName, &e.ItemType,
			&e.TmdbID, &e.ImdbID, &genres, &e.PlayedPercentage, &e.PlayCount,
			&e.LastPlayedDate, &e.IsPlayed, &e.RuntimeTicks, &e.ProductionYear,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Genres = decodeGenres(genres)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GenreCount is one bucket of the genre aggregation.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// GenreCounts tallies the denormalized genre snapshots across all
// watch-history rows. The JSON columns are decoded in Go so the query
// stays portable across engines.
func (r *HistoryRepository) GenreCounts(ctx context.Context, q Querier) ([]GenreCount, error) {
	rows, err := q.QueryContext(ctx, `SELECT genres FROM watch_history`)
	if err != nil {
		return nil, fmt.Errorf("genre counts: %w", err)
	}
	defer rows.Close()
	return tallyGenres(rows)
}

func tallyGenres(rows *sql.Rows) ([]GenreCount, error) {
	counts := make(map[string]int)
	for rows.Next() {
		var genres sql.NullString
		if err := rows.Scan(&genres); err != nil {
			return nil, fmt.Errorf("scan genres: %w", err)
		}
		for _, g := range decodeGenres(genres) {
			counts[g]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]GenreCount, 0, len(counts))
	for genre, n := range counts {
		out = append(out, GenreCount{Genre: genre, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Genre < out[j].Genre
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}
