package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/logger"
)

// Resolver works out which email address the viewer's notifications are addressed to.
type Resolver struct {
	auth     datastore.Authenticator
	verifier *session.TokenVerifier
	logger   *logger.Logger
}

// NewResolver accepts nil auth or verifier; the matching source is then skipped.
func NewResolver(auth datastore.Authenticator, verifier *session.TokenVerifier, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{auth: auth, verifier: verifier, logger: log}
}

// Resolve tries the signed-in session, then the loggedUser, userEmail and email
// session keys. It returns "" when none of them yields an address; failures
// along the way are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, viewer *session.Viewer) string {
	if viewer == nil {
		return ""
	}

	if email := r.fromSession(ctx, viewer.AccessToken); email != "" {
		return email
	}

	if viewer.Store == nil {
		return ""
	}
	if raw := r.get(ctx, viewer.Store, session.KeyLoggedUser); raw != "" {
		if email := parseLoggedUser(raw); email != "" {
			return email
		}
	}
	for _, key := range []string{session.KeyUserEmail, session.KeyEmail} {
		if v := r.get(ctx, viewer.Store, key); v != "" {
			return v
		}
	}
	return ""
}

func (r *Resolver) fromSession(ctx context.Context, token string) string {
	if token == "" {
		return ""
	}
	if r.verifier != nil {
		claims, err := r.verifier.Verify(token)
		if err == nil && claims.Email != "" {
			return claims.Email
		}
		if err != nil {
			r.logger.Debug("access token rejected locally", "error", err.Error())
		}
	}
	if r.auth == nil {
		return ""
	}
	user, err := r.auth.GetUser(ctx, token)
	if err != nil {
		r.logger.Debug("session lookup failed", "error", err.Error())
		return ""
	}
	return user.Email
}

func (r *Resolver) get(ctx context.Context, store session.Store, key string) string {
	v, ok, err := store.Get(ctx, key)
	if err != nil {
		r.logger.Debug("session key unreadable", "key", key, "error", err.Error())
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// parseLoggedUser reads the email field of a JSON blob, or accepts the raw
// value when it looks like an address.
func parseLoggedUser(raw string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		switch email := obj["email"].(type) {
		case string:
			if email != "" {
				return email
			}
		case nil, bool:
		default:
			return fmt.Sprint(email)
		}
	}
	if strings.Contains(raw, "@") {
		return raw
	}
	return ""
}
