package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/attendance"
	"tagattend/internal/logger"
)

// upload records one scan from a tag reader. The device only looks at the
// status: 204 recorded, 203 unknown tag.
func (s *Server) upload(c *gin.Context) {
	var req struct {
		ID *int64 `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := *req.ID
	res, err := s.Attendance.RecordScan(c.Request.Context(), id)
	if err != nil {
		s.Log.Error("scan failed", zap.Int64(logger.FieldTagID, id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan not recorded"})
		return
	}
	switch res.Outcome {
	case attendance.UnknownTag:
		c.Status(http.StatusNonAuthoritativeInfo)
	default:
		c.Status(http.StatusNoContent)
	}
}
