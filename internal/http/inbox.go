package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/roots/internal/scheduler"
)

// InboxController exposes the scheduled inbox import.
type InboxController struct {
	runner InboxRunner
	status InboxStatusReader
}

func NewInboxController(runner InboxRunner, status InboxStatusReader) *InboxController {
	return &InboxController{runner: runner, status: status}
}

// InboxResponse reports the inbox import state.
type InboxResponse struct {
	Importing bool   `json:"importing"`
	NextRun   string `json:"next_run,omitempty"`
	LastRunAt string `json:"last_run_at,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

// GetStatus handles GET /api/inbox
func (ic *InboxController) GetStatus(c *gin.Context) {
	resp := InboxResponse{Importing: ic.runner.IsImporting()}
	if next := ic.runner.NextRun(); next != nil {
		resp.NextRun = next.Format(time.RFC3339)
	}
	if ic.status != nil {
		st := ic.status.GetInboxStatus()
		if st.LastRunAt != nil {
			resp.LastRunAt = st.LastRunAt.Format(time.RFC3339)
		}
		resp.Status = st.Status
		resp.Message = st.Message
	}
	c.IndentedJSON(http.StatusOK, resp)
}

// Run handles POST /api/inbox/run
// The import runs in the background; poll GET /api/inbox for the outcome.
func (ic *InboxController) Run(c *gin.Context) {
	switch err := ic.runner.Trigger(); {
	case errors.Is(err, scheduler.ErrAlreadyImporting):
		respondError(c, http.StatusConflict, "already_importing", err.Error())
		return
	case errors.Is(err, scheduler.ErrNotRunning):
		respondError(c, http.StatusServiceUnavailable, "not_running", err.Error())
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	c.IndentedJSON(http.StatusAccepted, SuccessResponse{Message: "inbox import started"})
}
