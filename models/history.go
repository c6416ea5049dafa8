package models

import "time"

// WatchHistoryEntry is one playback row mirrored from Jellyfin.
// (JellyfinUserID, ItemID) is unique; re-syncs overwrite in place.
// Genres is a denormalized snapshot taken at sync time and does not
// track later changes to the referenced MediaItem.
type WatchHistoryEntry struct {
	ID               int64     `json:"id"`
	JellyfinUserID   string    `json:"jellyfinUserId"`
	ItemID           string    `json:"itemId"`
	ItemName         string    `json:"itemName"`
	ItemType         string    `json:"itemType"`
	TmdbID           *int64    `json:"tmdbId,omitempty"`
	ImdbID           *string   `json:"imdbId,omitempty"`
	Genres           []string  `json:"genres"`
	PlayedPercentage *float64  `json:"playedPercentage,omitempty"`
	PlayCount        int       `json:"playCount"`
	LastPlayedDate   time.Time `json:"lastPlayedDate"`
	IsPlayed         bool      `json:"isPlayed"`
	RuntimeTicks     *int64    `json:"runtimeTicks,omitempty"`
	ProductionYear   *int      `json:"productionYear,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
