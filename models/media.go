package models

import "time"

// MediaType mirrors the two TMDB detail endpoints.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// NormalizeMediaType maps an upstream kind onto a TMDB media type.
// Jellyfin and Jellyseerr both report "movie" for movies; everything
// else (Episode, Series, tv, ...) resolves against the TV endpoint.
func NormalizeMediaType(kind string) MediaType {
	if kind == "movie" || kind == "Movie" {
		return MediaTypeMovie
	}
	return MediaTypeTV
}

// MediaItem is a locally cached TMDB record. The primary key is the
// TMDB id itself; rows are refreshed in place once they outlive the
// resolution TTL and are never deleted.
type MediaItem struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	OriginalTitle string     `json:"originalTitle"`
	MediaType     MediaType  `json:"mediaType"`
	Genres        []string   `json:"genres"`
	Overview      string     `json:"overview"`
	ReleaseDate   *time.Time `json:"releaseDate,omitempty"`
	PosterPath    *string    `json:"posterPath,omitempty"`
	VoteAverage   float64    `json:"voteAverage"`
	LastUpdated   time.Time  `json:"lastUpdated"`
}
