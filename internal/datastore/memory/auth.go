package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

// Auth is an in-process datastore.Authenticator keyed by access token.
type Auth struct {
	mu     sync.RWMutex
	tokens map[string]datastore.AuthUser
}

var _ datastore.Authenticator = (*Auth)(nil)

func NewAuth() *Auth {
	return &Auth{tokens: make(map[string]datastore.AuthUser)}
}

// Register makes token resolve to user.
func (a *Auth) Register(token string, user datastore.AuthUser) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = user
}

func (a *Auth) GetUser(ctx context.Context, accessToken string) (*datastore.AuthUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	user, ok := a.tokens[accessToken]
	if !ok {
		return nil, &datastore.Error{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT"}
	}
	return &user, nil
}

func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, accessToken)
	return nil
}
