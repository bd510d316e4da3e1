// Package session keeps the small per-viewer key-value state that identifies
// who is looking at the portal: the loggedUser blob and plain email keys.
package session

import (
	"context"
	"errors"
)

// Keys read by recipient resolution.
const (
	KeyLoggedUser = "loggedUser"
	KeyUserEmail  = "userEmail"
	KeyEmail      = "email"
)

var ErrNoViewer = errors.New("no viewer session")

// Store is one session's key-value state.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Manager opens the store of a session id.
type Manager interface {
	Open(sessionID string) Store
}

// Viewer is the browser behind a request.
type Viewer struct {
	SessionID   string
	AccessToken string
	Store       Store
}

type viewerKey struct{}

func WithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// FromContext returns the viewer attached by the session middleware.
func FromContext(ctx context.Context) (*Viewer, error) {
	v, ok := ctx.Value(viewerKey{}).(*Viewer)
	if !ok || v == nil {
		return nil, ErrNoViewer
	}
	return v, nil
}
