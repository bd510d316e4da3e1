package dashboard

import (
	"github.com/gin-gonic/gin"

	dashboardService "github.com/jwalitptl/dogfinder/internal/service/dashboard"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
)

type Handler struct {
	service dashboardService.DashboardServicer
}

func NewHandler(service dashboardService.DashboardServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.Stats)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}
