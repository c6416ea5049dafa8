package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"streamlens/models"
)

// MediaRepository persists cached TMDB records.
type MediaRepository struct {
	db *DB
}

func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Get returns the cached record for a TMDB id. The second return is
// false when no row exists.
func (r *MediaRepository) Get(ctx context.Context, q Querier, tmdbID int64) (models.MediaItem, bool, error) {
	query := r.db.rebind(`
		SELECT id, title, original_title, media_type, genres, overview,
		       release_date, poster_path, vote_average, last_updated
		FROM tmdb_media WHERE id = ?`)

	item, err := scanMediaItem(q.QueryRowContext(ctx, query, tmdbID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MediaItem{}, false, nil
	}
	if err != nil {
		return models.MediaItem{}, false, fmt.Errorf("get media %d: %w", tmdbID, err)
	}
	return item, true, nil
}

// Upsert writes a record keyed on the TMDB id, refreshing every
// mutable column in place. The id never changes across a refresh.
func (r *MediaRepository) Upsert(ctx context.Context, q Querier, item models.MediaItem) error {
	genres, err := encodeGenres(item.Genres)
	if err != nil {
		return err
	}

	query := r.db.rebind(`
		INSERT INTO tmdb_media (id, title, original_title, media_type, genres, overview,
		                        release_date, poster_path, vote_average, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			original_title = excluded.original_title,
			media_type = excluded.media_type,
			genres = excluded.genres,
			overview = excluded.overview,
			release_date = excluded.release_date,
			poster_path = excluded.poster_path,
			vote_average = excluded.vote_average,
			last_updated = excluded.last_updated`)

	_, err = q.ExecContext(ctx, query,
		item.ID, item.Title, item.OriginalTitle, string(item.MediaType), genres,
		item.Overview, item.ReleaseDate, item.PosterPath, item.VoteAverage, item.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert media %d: %w", item.ID, err)
	}
	return nil
}

// List returns cached records ordered by most recently refreshed.
func (r *MediaRepository) List(ctx context.Context, q Querier, limit int) ([]models.MediaItem, error) {
	query := r.db.rebind(`
		SELECT id, title, original_title, media_type, genres, overview,
		       release_date, poster_path, vote_average, last_updated
		FROM tmdb_media ORDER BY last_updated DESC LIMIT ?`)

	rows, err := q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// TypeCounts returns the number of cached records per media type.
func (r *MediaRepository) TypeCounts(ctx context.Context, q Querier) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT media_type, COUNT(*) FROM tmdb_media GROUP BY media_type`)
	if err != nil {
		return nil, fmt.Errorf("count media types: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mediaType string
		var n int
		if err := rows.Scan(&mediaType, &n); err != nil {
			return nil, fmt.Errorf("scan media type count: %w", err)
		}
		counts[mediaType] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaItem(row rowScanner) (models.MediaItem, error) {
	var (
		item      models.MediaItem
		mediaType string
		genres    sql.NullString
	)
	err := row.Scan(&item.ID, &item.Title, &item.OriginalTitle, &mediaType, &genres,
		&item.Overview, &item.ReleaseDate, &item.PosterPath, &item.VoteAverage, &item.LastUpdated)
	if err != nil {
		return models.MediaItem{}, err
	}
	item.MediaType = models.MediaType(mediaType)
	item.Genres = decodeGenres(genres)
	return item, nil
}
