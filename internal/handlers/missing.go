package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/requestdata"
	"github.com/classtrack/schoolsync-backend/internal/services"
)

type MissingHandler struct {
	log          *logger.Logger
	deltaService services.DeltaService
}

func NewMissingHandler(log *logger.Logger, deltaService services.DeltaService) *MissingHandler {
	return &MissingHandler{
		log:          log.With("handler", "MissingHandler"),
		deltaService: deltaService,
	}
}

// ForGradebook serves GET /gradebooks/:id/missing.
func (h *MissingHandler) ForGradebook(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	gradebookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_gradebook_id", err)
		return
	}
	entries, err := h.deltaService.MissingForGradebook(c.Request.Context(), rd.UserID, gradebookID)
	if err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			RespondError(c, http.StatusForbidden, "not_owner", err)
			return
		}
		h.log.Error("MissingForGradebook failed", "error", err, "gradebook_id", gradebookID)
		RespondError(c, http.StatusInternalServerError, "load_missing_failed", err)
		return
	}
	RespondOK(c, gin.H{"missing": entries})
}

// ForMe serves GET /me/missing?grading_period_id=...
func (h *MissingHandler) ForMe(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var gradingPeriodID *uuid.UUID
	if raw := c.Query("grading_period_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_grading_period_id", err)
			return
		}
		gradingPeriodID = &id
	}
	grouped, err := h.deltaService.AllMissingForUser(c.Request.Context(), rd.UserID, gradingPeriodID)
	if err != nil {
		h.log.Error("AllMissingForUser failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusInternalServerError, "load_missing_failed", err)
		return
	}
	RespondOK(c, gin.H{"missing_by_student": grouped})
}
