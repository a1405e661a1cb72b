package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/bobibobi02/whistle-connect-sub001/internal/api/middleware"
	"github.com/bobibobi02/whistle-connect-sub001/internal/worker"
)

// RunHandler exposes manual control and visibility over delivery runs.
type RunHandler struct {
	sched  *worker.Scheduler
	logger *zap.Logger
}

func NewRunHandler(sched *worker.Scheduler, logger *zap.Logger) *RunHandler {
	return &RunHandler{sched: sched, logger: logger}
}

type triggerRunRequest struct {
	// BatchSize overrides the configured claim limit for this run only.
	// Zero or absent means the configured default.
	BatchSize int `json:"batch_size,omitempty"`
}

// Trigger handles POST /api/v1/runs
//
// @Summary  Run the delivery pipeline once, immediately
// @Tags     runs
// @Accept   json
// @Produce  json
// @Param    body  body      triggerRunRequest  false  "Optional overrides"
// @Success  200   {object}  domain.RunSummary
// @Failure  409   {object}  map[string]string  "A run is already in progress"
// @Failure  500   {object}  map[string]string  "Queue store unreachable"
// @Router   /api/v1/runs [post]
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	summary, err := h.sched.RunNow(r.Context(), req.BatchSize)
	if err != nil {
		h.logger.Warn("manual delivery run failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Latest handles GET /api/v1/runs/latest
//
// @Summary  Summary of the most recent completed run
// @Tags     runs
// @Produce  json
// @Success  200  {object}  map[string]any
// @Failure  404  {object}  map[string]string  "No run has completed yet"
// @Router   /api/v1/runs/latest [get]
func (h *RunHandler) Latest(w http.ResponseWriter, r *http.Request) {
	summary, at, ok := h.sched.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "no completed runs yet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary":      summary,
		"completed_at": at.Format(time.RFC3339),
	})
}
