package adoption

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dogfinder/internal/handler"
	"github.com/jwalitptl/dogfinder/internal/model"
	adoptionService "github.com/jwalitptl/dogfinder/internal/service/adoption"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
)

type Handler struct {
	service adoptionService.AdoptionServicer
}

func NewHandler(service adoptionService.AdoptionServicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public adoption form.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/adoptions", h.Submit)
}

// RegisterAdminRoutes mounts the staff adoption table.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	adoptions := r.Group("/adoptions")
	{
		adoptions.GET("", h.ListAdoptions)
		adoptions.POST("/:id/approve", h.Approve)
		adoptions.POST("/:id/reject", h.Reject)
	}
}

// Submit accepts the form as JSON or as a urlencoded/multipart post.
func (h *Handler) Submit(c *gin.Context) {
	var form model.AdoptionForm
	if err := c.ShouldBind(&form); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}
	adoption, err := h.service.Submit(c.Request.Context(), form)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.Created(c, "Adoption application submitted — thank you!", adoption)
}

func (h *Handler) ListAdoptions(c *gin.Context) {
	adoptions, err := h.service.ListAdoptions(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, adoptions)
}

func (h *Handler) Approve(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "adoption")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	adoption, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithResult(c, http.StatusOK, "Adoption Approved!", adoption)
}

func (h *Handler) Reject(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "adoption")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	adoption, err := h.service.Reject(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithResult(c, http.StatusOK, "Adoption Rejected.", adoption)
}
