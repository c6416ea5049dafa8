package handlers

import (
	"log"
	"net/http"

	"streamlens/internal/database"
)

// UsersHandler exposes the synced user table.
type UsersHandler struct {
	db    *database.DB
	users *database.UserRepository
}

func NewUsersHandler(db *database.DB, users *database.UserRepository) *UsersHandler {
	return &UsersHandler{db: db, users: users}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), h.db)
	if err != nil {
		log.Printf("[api] list users: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
