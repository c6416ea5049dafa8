package models

import "time"

// User is a Jellyfin account mirrored into the local store.
type User struct {
	ID              int64     `json:"id"`
	JellyfinID      string    `json:"jellyfinId"`
	Username        string    `json:"username"`
	IsAdministrator bool      `json:"isAdministrator"`
	PrimaryImageTag *string   `json:"primaryImageTag,omitempty"`
	LastLogin       time.Time `json:"lastLogin"`
	LastSeen        time.Time `json:"lastSeen"`
}
