package metadata

import (
	"context"
	"fmt"
	"time"

	"streamlens/internal/database"
	"streamlens/models"
	"streamlens/services/tmdb"
)

// DefaultTTL is how long a cached TMDB record stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

type detailsFetcher interface {
	GetMediaDetails(ctx context.Context, tmdbID int64, mediaType models.MediaType) (tmdb.MediaDetails, error)
}

var _ detailsFetcher = (*tmdb.Client)(nil)

// Service resolves (TMDB id, media type) pairs against the local
// cache, fetching from TMDB when the record is absent or stale.
type Service struct {
	db      *database.DB
	media   *database.MediaRepository
	fetcher detailsFetcher
	ttl     time.Duration
	now     func() time.Time
}

func NewService(db *database.DB, media *database.MediaRepository, fetcher detailsFetcher) *Service {
	return &Service{
		db:      db,
		media:   media,
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the cached record for the id, fetching and
// persisting it first when missing or older than the TTL. The upsert
// commits immediately so concurrent sync loops racing on the same id
// fall back on the store's conflict resolution rather than failing.
// Fetch errors propagate to the caller undecided: each sync service
// chooses between skipping the dependent item and aborting its pass.
func (s *Service) Resolve(ctx context.Context, tmdbID int64, mediaType models.MediaType) (models.MediaItem, error) {
	item, found, err := s.media.Get(ctx, s.db, tmdbID)
	if err != nil {
		return models.MediaItem{}, err
	}

	now := s.now()
	if found && now.Sub(item.LastUpdated) <= s.ttl {
		return item, nil
	}

	details, err := s.fetcher.GetMediaDetails(ctx, tmdbID, mediaType)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("resolve media %d: %w", tmdbID, err)
	}

	item = mapDetails(details, mediaType, now)
	if err := s.media.Upsert(ctx, s.db, item); err != nil {
		return models.MediaItem{}, err
	}
	return item, nil
}

// mapDetails flattens the raw TMDB payload onto a cache row. Movies
// and TV shows use different field names for the same concepts, so
// each field falls back to its sibling when the kind-appropriate one
// is empty.
func mapDetails(details tmdb.MediaDetails, mediaType models.MediaType, now time.Time) models.MediaItem {
	item := models.MediaItem{
		ID:            details.ID,
		Title:         firstNonEmpty(details.Title, details.Name),
		OriginalTitle: firstNonEmpty(details.OriginalTitle, details.OriginalName),
		MediaType:     mediaType,
		Genres:        details.GenreNames(),
		Overview:      details.Overview,
		VoteAverage:   details.VoteAverage,
		LastUpdated:   now,
	}

	if details.PosterPath != "" {
		poster := details.PosterPath
		item.PosterPath = &poster
	}

	if date := firstNonEmpty(details.ReleaseDate, details.FirstAirDate); date != "" {
		if t, err := time.ParseInLocation("2006-01-02", date, time.UTC); err == nil {
			item.ReleaseDate = &t
		}
	}

	return item
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
