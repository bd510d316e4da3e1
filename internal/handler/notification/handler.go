package notification

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	notificationService "github.com/jwalitptl/dogfinder/internal/service/notification"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
)

// HeaderCount carries the badge count alongside the HTML fragment.
const HeaderCount = "X-Notification-Count"

type Handler struct {
	service *notificationService.Service
}

func NewHandler(service *notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/html", h.Fragment)
		notifications.GET("/stream", h.Stream)
	}
}

func viewer(c *gin.Context) *session.Viewer {
	v, err := session.FromContext(c.Request.Context())
	if err != nil {
		return nil
	}
	return v
}

// List returns the feed as JSON. Load failures are part of the feed, so this never errors.
func (h *Handler) List(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Load(c.Request.Context(), viewer(c)))
}

// Fragment returns the rendered list for pages that swap it in directly.
func (h *Handler) Fragment(c *gin.Context) {
	feed := h.service.Load(c.Request.Context(), viewer(c))

	var buf bytes.Buffer
	if err := notificationService.RenderList(&buf, feed); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Header(HeaderCount, feed.CountText())
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Stream keeps a notification view open for as long as the client stays
// connected and forwards its updates as server-sent events named after the
// update kind.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	view := h.service.NewView(viewer(c))
	go view.Run(ctx)
	defer view.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case u := <-view.Updates():
			c.SSEvent(u.Kind, u)
			return true
		case <-view.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

