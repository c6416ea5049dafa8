package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"streamlens/config"
	"streamlens/handlers"
	"streamlens/internal/database"
	"streamlens/models"
	"streamlens/services/scheduler"
)

type stubRunner struct{}

func (stubRunner) RunNow(name string) error       { return nil }
func (stubRunner) Status() []scheduler.TaskStatus { return []scheduler.TaskStatus{} }

func newTestRouter(t *testing.T) (*mux.Router, *database.DB) {
	t.Helper()

	db, err := database.Open(config.DatabaseSettings{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := mux.NewRouter()
	Register(r,
		handlers.NewUsersHandler(db, database.NewUserRepository(db)),
		handlers.NewMediaHandler(db, database.NewMediaRepository(db)),
		handlers.NewHistoryHandler(db, database.NewHistoryRepository(db)),
		handlers.NewRequestsHandler(db, database.NewRequestRepository(db)),
		handlers.NewSyncHandler(stubRunner{}),
	)
	return r, db
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestListUsersEndpoint(t *testing.T) {
	r, db := newTestRouter(t)

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	err := database.NewUserRepository(db).Upsert(context.Background(), db, models.User{
		JellyfinID: "u1",
		Username:   "alice",
		LastLogin:  now,
		LastSeen:   now,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}

	var users []models.User
	if err := json.NewDecoder(rec.Body).Decode(&users); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("users = %+v", users)
	}
}

func TestRequestsEndpointHidesDeleted(t *testing.T) {
	r, db := newTestRouter(t)
	repo := database.NewRequestRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	for id := int64(1); id <= 2; id++ {
		err := repo.Upsert(ctx, db, models.MediaRequest{
			JellyseerrID: id,
			TmdbID:       id * 10,
			MediaType:    models.MediaTypeMovie,
			Title:        "Request",
			RequestDate:  now,
			Status:       models.RequestStatusPending,
			LastChecked:  now,
		})
		if err != nil {
			t.Fatalf("seed request: %v", err)
		}
	}
	if err := repo.MarkDeleted(ctx, db, []int64{2}, now); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var requests []models.MediaRequest
	if err := json.NewDecoder(rec.Body).Decode(&requests); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(requests) != 1 || requests[0].JellyseerrID != 1 {
		t.Errorf("requests = %+v, want only request 1", requests)
	}

	// include_deleted surfaces the tombstoned row too.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests?include_deleted=true", nil))
	if err := json.NewDecoder(rec.Body).Decode(&requests); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(requests) != 2 {
		t.Errorf("requests = %d, want 2 with includeDeleted", len(requests))
	}
}

func TestCORSHeaders(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q, want *", got)
	}
}

func TestSyncTriggerEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/history", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	// The trigger route only accepts POST.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/history", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
