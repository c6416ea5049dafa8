package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamlens/services/scheduler"
)

type fakeRunner struct {
	err       error
	triggered []string
}

func (f *fakeRunner) RunNow(name string) error {
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func (f *fakeRunner) Status() []scheduler.TaskStatus {
	ran := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return []scheduler.TaskStatus{
		{Name: "users", LastRunAt: &ran},
		{Name: TaskWatchHistory, Running: true},
	}
}

func TestTriggerHistory(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewSyncHandler(runner)

	rec := httptest.NewRecorder()
	handler.TriggerHistory(rec, httptest.NewRequest(http.MethodPost, "/api/sync/history", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(runner.triggered) != 1 || runner.triggered[0] != TaskWatchHistory {
		t.Errorf("triggered = %v, want [%s]", runner.triggered, TaskWatchHistory)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "triggered" {
		t.Errorf("body = %v", body)
	}
}

func TestTriggerHistoryConflict(t *testing.T) {
	runner := &fakeRunner{err: errors.New("scheduler is not running")}
	handler := NewSyncHandler(runner)

	rec := httptest.NewRecorder()
	handler.TriggerHistory(rec, httptest.NewRequest(http.MethodPost, "/api/sync/history", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSyncStatus(t *testing.T) {
	handler := NewSyncHandler(&fakeRunner{})

	rec := httptest.NewRecorder()
	handler.Status(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var statuses []scheduler.TaskStatus
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(statuses))
	}
	if statuses[1].Name != TaskWatchHistory || !statuses[1].Running {
		t.Errorf("statuses[1] = %+v", statuses[1])
	}
}

func TestQueryLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", defaultListLimit},
		{"25", 25},
		{"0", defaultListLimit},
		{"-5", defaultListLimit},
		{"abc", defaultListLimit},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/history?limit="+tc.raw, nil)
		if got := queryLimit(req); got != tc.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
