package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/accounts"
	"tagattend/internal/logger"
	"tagattend/internal/registration"
	"tagattend/internal/students"
	"tagattend/internal/tabular"
)

const tableError = "unable to load table data"

// tableHandler serves one list screen. Query failures still answer 200 with an
// empty page and an error field, which is what the list widget expects.
func tableHandler[T any](log *zap.Logger, table string, query func(context.Context, tabular.Request) (tabular.Result[T], error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := tabular.ParseRequest(c.Request.URL.Query())
		res, err := query(c.Request.Context(), req)
		if err != nil {
			log.Error("table query failed",
				zap.String(logger.FieldTable, table),
				zap.Error(err))
			c.JSON(http.StatusOK, tabular.ErrorEnvelope(req, tableError))
			return
		}
		c.JSON(http.StatusOK, tabular.NewEnvelope(req, res))
	}
}

// fail maps domain errors to a status. Anything unrecognised is logged and
// reported as a generic 500.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, students.ErrInvalid), errors.Is(err, accounts.ErrInvalid),
		errors.Is(err, registration.ErrInvalidTag):
		status = http.StatusBadRequest
	case errors.Is(err, students.ErrNotFound), errors.Is(err, accounts.ErrNotFound),
		errors.Is(err, registration.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, students.ErrExists), errors.Is(err, accounts.ErrExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.Log.Error("request failed", zap.String(logger.FieldOperation, op), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
