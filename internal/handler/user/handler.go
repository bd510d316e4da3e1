package user

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dogfinder/internal/handler"
	userService "github.com/jwalitptl/dogfinder/internal/service/user"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
)

type Handler struct {
	service userService.UserServicer
}

func NewHandler(service userService.UserServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.PUT("/:id", h.EditUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, users)
}

func (h *Handler) EditUser(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "user")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithError(c, h.service.EditUser(c.Request.Context(), id))
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := handler.ParseID(c, "id", "user")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "User deleted.")
}
