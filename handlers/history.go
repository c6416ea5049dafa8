package handlers

import (
	"log"
	"net/http"
	"strings"

	"streamlens/internal/database"
)

// HistoryHandler exposes the synced watch-history table.
type HistoryHandler struct {
	db      *database.DB
	history *database.HistoryRepository
}

func NewHistoryHandler(db *database.DB, history *database.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{db: db, history: history}
}

// List returns recent history, optionally filtered to one Jellyfin
// user via ?user=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))

	entries, err := h.history.List(r.Context(), h.db, user, queryLimit(r))
	if err != nil {
		log.Printf("[api] list history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list watch history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GenreCounts aggregates the denormalized genre snapshots.
func (h *HistoryHandler) GenreCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.history.GenreCounts(r.Context(), h.db)
	if err != nil {
		log.Printf("[api] history genre counts: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate genres")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
