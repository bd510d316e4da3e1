package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/session"
)

// AccessTokenCookie is where the portal keeps the data service access token
// when it does not send an Authorization header.
const AccessTokenCookie = "sb-access-token"

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session attaches the viewer behind the request: the session cookie is
// issued on first visit, the access token travels to the data service so
// row level security applies to the caller.
func Session(manager session.Manager, config SessionConfig) gin.HandlerFunc {
	if config.CookieName == "" {
		config.CookieName = "dogfinder_session"
	}
	return func(c *gin.Context) {
		sid, err := c.Cookie(config.CookieName)
		if err != nil || !validSessionID(sid) {
			sid = uuid.New().String()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     config.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(config.TTL.Seconds()),
				HttpOnly: true,
				Secure:   config.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		viewer := &session.Viewer{
			SessionID:   sid,
			AccessToken: bearerToken(c),
			Store:       manager.Open(sid),
		}

		ctx := session.WithViewer(c.Request.Context(), viewer)
		if viewer.AccessToken != "" {
			ctx = datastore.WithAccessToken(ctx, viewer.AccessToken)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if tok, err := c.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(tok)
	}
	return ""
}

func validSessionID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}
