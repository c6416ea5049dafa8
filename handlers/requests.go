package handlers

import (
	"log"
	"net/http"

	"streamlens/internal/database"
)

// RequestsHandler exposes the synced request table.
type RequestsHandler struct {
	db       *database.DB
	requests *database.RequestRepository
}

func NewRequestsHandler(db *database.DB, requests *database.RequestRepository) *RequestsHandler {
	return &RequestsHandler{db: db, requests: requests}
}

// List returns recent requests. Soft-deleted rows are hidden unless
// ?include_deleted=true.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	requests, err := h.requests.List(r.Context(), h.db, queryLimit(r), includeDeleted)
	if err != nil {
		log.Printf("[api] list requests: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// StatusCounts aggregates requests by status.
func (h *RequestsHandler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.requests.StatusCounts(r.Context(), h.db)
	if err != nil {
		log.Printf("[api] request status counts: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate request statuses")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// GenreCounts aggregates genre snapshots across live requests.
func (h *RequestsHandler) GenreCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.requests.GenreCounts(r.Context(), h.db)
	if err != nil {
		log.Printf("[api] request genre counts: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate request genres")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
