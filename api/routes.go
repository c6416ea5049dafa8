package api

import (
	"net/http"

	"streamlens/handlers"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every response with a correlation id.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	usersHandler *handlers.UsersHandler,
	mediaHandler *handlers.MediaHandler,
	historyHandler *handlers.HistoryHandler,
	requestsHandler *handlers.RequestsHandler,
	syncHandler *handlers.SyncHandler,
) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	api.Use(requestIDMiddleware)

	api.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/media", mediaHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/history", historyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/requests", requestsHandler.List).Methods(http.MethodGet)

	api.HandleFunc("/stats/genres", historyHandler.GenreCounts).Methods(http.MethodGet)
	api.HandleFunc("/stats/request-genres", requestsHandler.GenreCounts).Methods(http.MethodGet)
	api.HandleFunc("/stats/statuses", requestsHandler.StatusCounts).Methods(http.MethodGet)
	api.HandleFunc("/stats/types", mediaHandler.TypeCounts).Methods(http.MethodGet)

	api.HandleFunc("/sync/status", syncHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/sync/history", syncHandler.TriggerHistory).Methods(http.MethodPost)
}
