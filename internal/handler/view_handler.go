package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/service"
	"github.com/noah-isme/notevault-api/pkg/response"
)

const defaultHeartbeat = 25 * time.Second

type viewService interface {
	Open(ctx context.Context, owner string, name models.ViewName) (*service.MergedView, error)
	OpenItems(ctx context.Context, owner, collectionID string) (*service.MergedView, error)
}

type sweepService interface {
	Sweep(ctx context.Context, owner string) (models.SweepReport, error)
}

// ViewHandler streams live views as server-sent events.
type ViewHandler struct {
	views     viewService
	reaper    sweepService
	heartbeat time.Duration
}

// NewViewHandler constructs a view handler. heartbeat <= 0 uses 25s.
func NewViewHandler(views viewService, reaper sweepService, heartbeat time.Duration) *ViewHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &ViewHandler{views: views, reaper: reaper, heartbeat: heartbeat}
}

// Stream godoc
// @Summary Stream a live view
// @Description Emits a "snapshot" event with the full merged result set on every change.
// @Tags Views
// @Produce text/event-stream
// @Security BearerAuth
// @Param view path string true "active, hidden or recycle-bin"
// @Success 200 {object} models.ViewSnapshot
// @Failure 400 {object} response.Envelope
// @Router /views/{view} [get]
func (h *ViewHandler) Stream(c *gin.Context) {
	view, err := h.views.Open(c.Request.Context(), ownerFromContext(c), models.ViewName(c.Param("view")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, view)
}

// StreamItems godoc
// @Summary Stream the active items of one collection
// @Tags Views
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Success 200 {object} models.ViewSnapshot
// @Router /collections/{id}/items/stream [get]
func (h *ViewHandler) StreamItems(c *gin.Context) {
	view, err := h.views.OpenItems(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, view)
}

// Sweep godoc
// @Summary Purge recycle bin entries past the retention window
// @Tags Views
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /recycle-bin/sweep [post]
func (h *ViewHandler) Sweep(c *gin.Context) {
	report, err := h.reaper.Sweep(c.Request.Context(), ownerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

func (h *ViewHandler) stream(c *gin.Context, view *service.MergedView) {
	defer view.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case snap, ok := <-view.Snapshots():
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		}
	})
}
