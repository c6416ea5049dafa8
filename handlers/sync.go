package handlers

import (
	"net/http"

	"streamlens/services/scheduler"
)

// TaskWatchHistory names the watch-history loop for out-of-band runs.
const TaskWatchHistory = "watch-history"

type syncRunner interface {
	RunNow(name string) error
	Status() []scheduler.TaskStatus
}

var _ syncRunner = (*scheduler.Service)(nil)

// SyncHandler exposes the maintenance surface of the task runner.
type SyncHandler struct {
	runner syncRunner
}

func NewSyncHandler(runner syncRunner) *SyncHandler {
	return &SyncHandler{runner: runner}
}

// TriggerHistory starts an immediate watch-history pass, bypassing the
// interval wait.
func (h *SyncHandler) TriggerHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.RunNow(TaskWatchHistory); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

// Status reports all sync loops and their last outcomes.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Status())
}
