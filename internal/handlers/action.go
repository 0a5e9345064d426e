package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/requestdata"
	"github.com/classtrack/schoolsync-backend/internal/services"
)

type ActionHandler struct {
	log           *logger.Logger
	actionService services.ActionService
}

func NewActionHandler(log *logger.Logger, actionService services.ActionService) *ActionHandler {
	return &ActionHandler{
		log:           log.With("handler", "ActionHandler"),
		actionService: actionService,
	}
}

func (h *ActionHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var input services.CreateActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	record, err := h.actionService.Create(c.Request.Context(), rd.UserID, input)
	if err != nil {
		h.log.Error("Create action failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusBadRequest, "create_action_failed", err)
		return
	}
	RespondOK(c, record)
}

func (h *ActionHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	records, err := h.actionService.ListForStaff(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Error("List actions failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusInternalServerError, "load_actions_failed", err)
		return
	}
	RespondOK(c, gin.H{"actions": records})
}
