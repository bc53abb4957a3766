package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fitlink/fitlink-backend/internal/services"
)

type LogHandler struct {
	logService services.LogService
}

func NewLogHandler(logService services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

func (lh *LogHandler) ListByTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	logs, err := lh.logService.ListByTask(c.Request.Context(), taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"logs": logs})
}

func (lh *LogHandler) ListByStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	logs, err := lh.logService.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"logs": logs})
}
