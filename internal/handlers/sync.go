package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/requestdata"
	"github.com/classtrack/schoolsync-backend/internal/services"
)

type SyncHandler struct {
	log         *logger.Logger
	syncService services.SyncService
}

func NewSyncHandler(log *logger.Logger, syncService services.SyncService) *SyncHandler {
	return &SyncHandler{
		log:         log.With("handler", "SyncHandler"),
		syncService: syncService,
	}
}

// RunStaff serves POST /sync/staff/:source_id. The pipeline runs
// synchronously; large rosters belong in the batch CLI instead.
func (h *SyncHandler) RunStaff(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sourceID, err := strconv.ParseInt(c.Param("source_id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_source_id", err)
		return
	}
	outcomes, err := h.syncService.RunStaff(c.Request.Context(), sourceID)
	if err != nil {
		h.log.Error("Staff sync failed", "error", err, "staff_source_id", sourceID)
		RespondError(c, http.StatusInternalServerError, "sync_failed", err)
		return
	}
	RespondOK(c, gin.H{"outcomes": outcomes})
}

func (h *SyncHandler) ListRuns(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	runs, err := h.syncService.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("List sync runs failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "load_runs_failed", err)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}
