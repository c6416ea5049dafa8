package models

import "time"

// RequestStatus is the local status of a media request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusAvailable RequestStatus = "available"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusDeleted   RequestStatus = "deleted"
)

// Jellyseerr reports request status as a small integer.
const (
	jellyseerrStatusPending   = 1
	jellyseerrStatusApproved  = 2
	jellyseerrStatusAvailable = 3
	jellyseerrStatusDeclined  = 4
)

// MapRequestStatus converts a Jellyseerr status code to the local
// enum. The second return is false for codes outside the known set;
// callers log those as an anomaly and fall back to pending so the row
// stays visible for inspection.
func MapRequestStatus(code int) (RequestStatus, bool) {
	switch code {
	case jellyseerrStatusPending:
		return RequestStatusPending, true
	case jellyseerrStatusApproved:
		return RequestStatusApproved, true
	case jellyseerrStatusAvailable:
		return RequestStatusAvailable, true
	case jellyseerrStatusDeclined:
		return RequestStatusDeclined, true
	default:
		return RequestStatusPending, false
	}
}

// MediaRequest is a Jellyseerr request mirrored into the local store.
// JellyseerrID is unique; rows that disappear remotely are soft-deleted
// and keep their metadata reference.
type MediaRequest struct {
	ID           int64         `json:"id"`
	JellyseerrID int64         `json:"jellyseerrId"`
	TmdbID       int64         `json:"tmdbId"`
	MediaType    MediaType     `json:"mediaType"`
	Title        string        `json:"title"`
	RequestDate  time.Time     `json:"requestDate"`
	Status       RequestStatus `json:"status"`
	Requester    string        `json:"requester"`
	Genres       []string      `json:"genres"`
	IsDeleted    bool          `json:"isDeleted"`
	LastChecked  time.Time     `json:"lastChecked"`
}
