package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/view"
)

const readyTimeout = 10 * time.Second

// ViewMounter hands out mounted views.
type ViewMounter interface {
	Acquire(ctx context.Context, session models.Session, kind view.Kind) (*view.View, error)
}

// ViewHandler serves derived dashboard state, as a snapshot or a stream.
type ViewHandler struct {
	views  ViewMounter
	logger *zap.Logger
}

// NewViewHandler constructs the handler.
func NewViewHandler(views ViewMounter, logger *zap.Logger) *ViewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewHandler{views: views, logger: logger}
}

func (h *ViewHandler) mount(c *gin.Context) (*view.View, bool) {
	kind, err := view.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}

	v, err := h.views.Acquire(c.Request.Context(), sessionFrom(c), kind)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if err := v.WaitReady(ctx); err != nil {
		h.logger.Warn("view not ready", zap.String("kind", string(kind)), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "view is still loading"})
		return nil, false
	}
	return v, true
}

// Get returns the current snapshot. ?refresh=true re-fetches every
// collection in the background; the response is the snapshot as of now.
func (h *ViewHandler) Get(c *gin.Context) {
	v, ok := h.mount(c)
	if !ok {
		return
	}
	if c.Query("refresh") == "true" {
		v.Refresh()
	}
	c.JSON(http.StatusOK, v.Snapshot())
}

// Stream sends the current snapshot and every recomputed one as
// server-sent "snapshot" events until the client leaves or the view closes.
func (h *ViewHandler) Stream(c *gin.Context) {
	v, ok := h.mount(c)
	if !ok {
		return
	}

	updates, cancel := v.Watch()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", v.Snapshot())
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case snap, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-done:
			return false
		}
	})
}
