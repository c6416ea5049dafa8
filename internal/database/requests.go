package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"streamlens/models"
)

// RequestRepository persists Jellyseerr requests.
type RequestRepository struct {
	db *DB
}

func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// ExistingIDs returns the set of all Jellyseerr ids currently in the
// store, including soft-deleted rows.
func (r *RequestRepository) ExistingIDs(ctx context.Context, q Querier) (map[int64]struct{}, error) {
	rows, err := q.QueryContext(ctx, `SELECT jellyseerr_id FROM media_requests`)
	if err != nil {
		return nil, fmt.Errorf("existing request ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan request id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Upsert writes a request keyed on jellyseerr_id, overwriting every
// column with the freshly fetched values. A previously soft-deleted
// request that reappears remotely is revived by the same statement.
func (r *RequestRepository) Upsert(ctx context.Context, q Querier, req models.MediaRequest) error {
	genres, err := encodeGenres(req.Genres)
	if err != nil {
		return err
	}

	query := r.db.rebind(`
		INSERT INTO media_requests (jellyseerr_id, tmdb_id, media_type, title, request_date,
		                            status, requester, genres, is_deleted, last_checked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (jellyseerr_id) DO UPDATE SET
			tmdb_id = excluded.tmdb_id,
			media_type = excluded.media_type,
			title = excluded.title,
			request_date = excluded.request_date,
			status = excluded.status,
			requester = excluded.requester,
			genres = excluded.genres,
			is_deleted = excluded.is_deleted,
			last_checked = excluded.last_checked`)

	_, err = q.ExecContext(ctx, query,
		req.JellyseerrID, req.TmdbID, string(req.MediaType), req.Title, req.RequestDate,
		string(req.Status), req.Requester, genres, req.IsDeleted, req.LastChecked)
	if err != nil {
		return fmt.Errorf("upsert request %d: %w", req.JellyseerrID, err)
	}
	return nil
}

// Postgres caps bind parameters at 65535 per statement, so large
// deletion sets are split.
const markDeletedChunkSize = 1000

// MarkDeleted soft-deletes the given Jellyseerr ids: status becomes
// deleted, is_deleted is set and last_checked advanced. The rows keep
// their metadata reference. Large id sets run as several statements
// inside the caller's transaction.
func (r *RequestRepository) MarkDeleted(ctx context.Context, q Querier, ids []int64, now time.Time) error {
	for start := 0; start < len(ids); start += markDeletedChunkSize {
		chunk := ids[start:min(start+markDeletedChunkSize, len(ids))]

		placeholders := strings.Repeat("?, ", len(chunk)-1) + "?"
		query := r.db.rebind(fmt.Sprintf(`
			UPDATE media_requests
			SET is_deleted = ?, status = ?, last_checked = ?
			WHERE jellyseerr_id IN (%s)`, placeholders))

		args := make([]any, 0, len(chunk)+3)
		args = append(args, true, string(models.RequestStatusDeleted), now)
		for _, id := range chunk {
			args = append(args, id)
		}

		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark requests deleted: %w", err)
		}
	}
	return nil
}

// List returns requests ordered by most recently requested.
func (r *RequestRepository) List(ctx context.Context, q Querier, limit int, includeDeleted bool) ([]models.MediaRequest, error) {
	query := `
		SELECT id, jellyseerr_id, tmdb_id, media_type, title, request_date,
		       status, requester, genres, is_deleted, last_checked
		FROM media_requests`
	if !includeDeleted {
		query += ` WHERE is_deleted = ?`
	}
	query += ` ORDER BY request_date DESC LIMIT ?`

	args := []any{}
	if !includeDeleted {
		args = append(args, false)
	}
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.MediaRequest
	for rows.Next() {
		var (
			req       models.MediaRequest
			mediaType string
			status    string
			genres    sql.NullString
		)
		if err := rows.Scan(&req.ID, &req.JellyseerrID, &req.TmdbID, &mediaType, &req.Title,
			&req.RequestDate, &status, &req.Requester, &genres, &req.IsDeleted, &req.LastChecked); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.MediaType = models.MediaType(mediaType)
		req.Status = models.RequestStatus(status)
		req.Genres = decodeGenres(genres)
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Get returns the request with the given Jellyseerr id.
func (r *RequestRepository) Get(ctx context.Context, q Querier, jellyseerrID int64) (models.MediaRequest, bool, error) {
	requests, err := r.listByID(ctx, q, jellyseerrID)
	if err != nil {
		return models.MediaRequest{}, false, err
	}
	if len(requests) == 0 {
		return models.MediaRequest{}, false, nil
	}
	return requests[0], true, nil
}

func (r *RequestRepository) listByID(ctx context.Context, q Querier, jellyseerrID int64) ([]models.MediaRequest, error) {
	query := r.db.rebind(`
		SELECT id, jellyseerr_id, tmdb_id, media_type, title, request_date,
		       status, requester, genres, is_deleted, last_checked
		FROM media_requests WHERE jellyseerr_id = ?`)

	rows, err := q.QueryContext(ctx, query, jellyseerrID)
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", jellyseerrID, err)
	}
	defer rows.Close()

	var requests []models.MediaRequest
	for rows.Next() {
		var (
			req       models.MediaRequest
			mediaType string
			status    string
			genres    sql.NullString
		)
		if err := rows.Scan(&req.ID, &req.JellyseerrID, &req.TmdbID, &mediaType, &req.Title,
			&req.RequestDate, &status, &req.Requester, &genres, &req.IsDeleted, &req.LastChecked); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.MediaType = models.MediaType(mediaType)
		req.Status = models.RequestStatus(status)
		req.Genres = decodeGenres(genres)
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// StatusCounts returns the number of requests per status.
func (r *RequestRepository) StatusCounts(ctx context.Context, q Querier) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT status, COUNT(*) FROM media_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count request statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// GenreCounts tallies genre snapshots across non-deleted requests.
func (r *RequestRepository) GenreCounts(ctx context.Context, q Querier) ([]GenreCount, error) {
	rows, err := q.QueryContext(ctx, r.db.rebind(`SELECT genres FROM media_requests WHERE is_deleted = ?`), false)
	if err != nil {
		return nil, fmt.Errorf("request genre counts: %w", err)
	}
	defer rows.Close()
	return tallyGenres(rows)
}
