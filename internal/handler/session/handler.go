package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/handler"
	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/session"
	apperrors "github.com/jwalitptl/dogfinder/pkg/errors"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
	"github.com/jwalitptl/dogfinder/pkg/logger"
)

const signOutTimeout = 5 * time.Second

// Resolver names the viewer's notification recipient.
type Resolver interface {
	Resolve(ctx context.Context, viewer *session.Viewer) string
}

// Handler manages the viewer's locally persisted identity.
type Handler struct {
	auth     datastore.Authenticator
	resolver Resolver
	logger   *logger.Logger
}

// NewHandler accepts a nil auth; sign-out at the data service is then skipped.
func NewHandler(auth datastore.Authenticator, resolver Resolver, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{auth: auth, resolver: resolver, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/session")
	{
		s.GET("", h.Get)
		s.POST("", h.Login)
		s.DELETE("", h.Logout)
	}
}

func currentViewer(c *gin.Context) (*session.Viewer, error) {
	v, err := session.FromContext(c.Request.Context())
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return v, nil
}

// Get reports the address notifications are resolved for, "" when unknown.
func (h *Handler) Get(c *gin.Context) {
	v, err := currentViewer(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{
		"session_id": v.SessionID,
		"recipient":  h.resolver.Resolve(c.Request.Context(), v),
	})
}

// Login stores the loggedUser record the login page produced.
func (h *Handler) Login(c *gin.Context) {
	v, err := currentViewer(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var user model.LoggedUser
	if err := c.ShouldBindJSON(&user); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	if err := v.Store.Set(c.Request.Context(), session.KeyLoggedUser, string(raw)); err != nil {
		httputil.RespondWithError(c, apperrors.Unavailable("Could not save session", err))
		return
	}
	httputil.RespondWithSuccess(c, user)
}

// Logout signs out at the data service best-effort and forgets loggedUser.
func (h *Handler) Logout(c *gin.Context) {
	v, err := currentViewer(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	if h.auth != nil && v.AccessToken != "" {
		signOutCtx, cancel := context.WithTimeout(ctx, signOutTimeout)
		if err := h.auth.SignOut(signOutCtx, v.AccessToken); err != nil {
			log.Warn(err, "data service sign out failed")
		}
		cancel()
	}
	if err := v.Store.Remove(ctx, session.KeyLoggedUser); err != nil {
		log.Warn(err, "could not clear loggedUser")
	}
	httputil.RespondWithMessage(c, "Signed out.")
}
