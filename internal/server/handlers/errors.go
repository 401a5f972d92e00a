package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/service/analysis"
	"github.com/mamadbah2/pondwatch/internal/view"
)

// errForbidden is returned when a farmer touches another farmer's pond.
var errForbidden = errors.New("pond belongs to another user")

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, view.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, errForbidden), errors.Is(err, view.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, analysis.ErrLLMDisabled), errors.Is(err, view.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its status. Only server errors are logged.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
