package dog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dogfinder/internal/handler"
	"github.com/jwalitptl/dogfinder/internal/model"
	dogService "github.com/jwalitptl/dogfinder/internal/service/dog"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
)

type Handler struct {
	service dogService.DogServicer
}

func NewHandler(service dogService.DogServicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public gallery.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	dogs := r.Group("/dogs")
	{
		dogs.GET("", h.ListDogs)
		dogs.GET("/:id", h.GetDog)
	}
}

// RegisterAdminRoutes mounts the staff dog table actions.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	dogs := r.Group("/dogs")
	{
		dogs.GET("", h.ListDogs)
		dogs.POST("", h.CreateDog)
		dogs.GET("/:id", h.GetDog)
		dogs.PUT("/:id", h.UpdateDog)
		dogs.DELETE("/:id", h.DeleteDog)
		dogs.POST("/:id/toggle-status", h.ToggleStatus)
	}
}

func (h *Handler) ListDogs(c *gin.Context) {
	dogs, err := h.service.ListDogs(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dogs)
}

func (h *Handler) GetDog(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "dog")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	dog, err := h.service.GetDog(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dog)
}

func (h *Handler) CreateDog(c *gin.Context) {
	var req model.CreateDogRequest
	if err := c.ShouldBind(&req); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}
	dog, err := h.service.CreateDog(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.Created(c, "Dog added successfully!", dog)
}

func (h *Handler) UpdateDog(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "dog")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateDogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}
	dog, err := h.service.UpdateDog(c.Request.Context(), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithResult(c, http.StatusOK, "Dog updated successfully!", dog)
}

// DeleteDog passes the raw id through so an unparsable one is reported verbatim.
func (h *Handler) DeleteDog(c *gin.Context) {
	if err := h.service.DeleteDog(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Dog deleted successfully!")
}

type toggleRequest struct {
	// Status is the value the table currently shows; when absent the dog is read first.
	Status *string `json:"status"`
}

func (h *Handler) ToggleStatus(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "dog")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req toggleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, handler.BindError(err))
			return
		}
	}
	status, err := h.service.ToggleStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithResult(c, http.StatusOK, "Dog status changed to "+status+"!", gin.H{"id": id, "status": status})
}
