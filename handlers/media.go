package handlers

import (
	"log"
	"net/http"

	"streamlens/internal/database"
)

// MediaHandler exposes the cached TMDB records.
type MediaHandler struct {
	db    *database.DB
	media *database.MediaRepository
}

func NewMediaHandler(db *database.DB, media *database.MediaRepository) *MediaHandler {
	return &MediaHandler{db: db, media: media}
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.media.List(r.Context(), h.db, queryLimit(r))
	if err != nil {
		log.Printf("[api] list media: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list media")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// TypeCounts aggregates cached records by media kind.
func (h *MediaHandler) TypeCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.media.TypeCounts(r.Context(), h.db)
	if err != nil {
		log.Printf("[api] media type counts: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate media types")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
