package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/bobibobi02/whistle-connect-sub001/internal/api/middleware"
	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/service"
)

// NotificationHandler handles the producer-facing queue endpoints.
type NotificationHandler struct {
	svc    *service.EnqueueService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.EnqueueService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Enqueue handles POST /api/v1/notifications
//
// @Summary     Enqueue a notification for push delivery
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      domain.EnqueueRequest  true  "Notification payload"
// @Success     201   {object}  domain.QueuedNotification
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/notifications [post]
func (h *NotificationHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		h.logger.Warn("enqueue notification failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, n)
}

// GetByID handles GET /api/v1/notifications/{id}
//
// @Summary  Get a queued notification by ID
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Notification UUID"
// @Success  200  {object}  domain.QueuedNotification
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}
