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

type DeltaHandler struct {
	log          *logger.Logger
	deltaService services.DeltaService
}

func NewDeltaHandler(log *logger.Logger, deltaService services.DeltaService) *DeltaHandler {
	return &DeltaHandler{
		log:          log.With("handler", "DeltaHandler"),
		deltaService: deltaService,
	}
}

func (h *DeltaHandler) ListUnsettled(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	deltas, err := h.deltaService.ListUnsettled(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Error("ListUnsettled failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusInternalServerError, "load_deltas_failed", err)
		return
	}
	RespondOK(c, gin.H{"deltas": deltas})
}

func (h *DeltaHandler) Settle(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	deltaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_delta_id", err)
		return
	}
	if err := h.deltaService.Settle(c.Request.Context(), rd.UserID, deltaID); err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			RespondError(c, http.StatusForbidden, "not_owner", err)
			return
		}
		h.log.Error("Settle failed", "error", err, "delta_id", deltaID)
		RespondError(c, http.StatusInternalServerError, "settle_failed", err)
		return
	}
	RespondOK(c, gin.H{"settled": true})
}

func (h *DeltaHandler) Compute(c *gin.Context) {
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
	result, err := h.deltaService.ComputeMissing(c.Request.Context(), rd.UserID, gradingPeriodID)
	if err != nil {
		h.log.Error("ComputeMissing failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusInternalServerError, "compute_failed", err)
		return
	}
	RespondOK(c, result)
}
