package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/datastore/memory"
	"github.com/jwalitptl/dogfinder/internal/session"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}
func (failingStore) Set(context.Context, string, string) error { return nil }
func (failingStore) Remove(context.Context, string) error { return nil }

func newViewer(t *testing.T, values map[string]string) *session.Viewer {
	t.Helper()
	store := session.NewMemoryManager(time.Hour, time.Hour).Open("s")
	for k, v := range values {
		require.NoError(t, store.Set(context.Background(), k, v))
	}
	return &session.Viewer{SessionID: "s", Store: store}
}

func TestResolveUnknownNeverFails(t *testing.T) {
	r := NewResolver(memory.NewAuth(), nil, nil)
	ctx := context.Background()

	assert.Empty(t, r.Resolve(ctx, nil))
	assert.Empty(t, r.Resolve(ctx, &session.Viewer{}))
	assert.Empty(t, r.Resolve(ctx, newViewer(t, nil)))
	assert.Empty(t, r.Resolve(ctx, &session.Viewer{AccessToken: "bogus", Store: failingStore{}}))
	assert.Empty(t, r.Resolve(ctx, newViewer(t, map[string]string{session.KeyLoggedUser: `{"name":"Sam"}`})))
}

func TestResolveOrder(t *testing.T) {
	auth := memory.NewAuth()
	auth.Register("tok", datastore.AuthUser{Email: "session@x.io"})
	r := NewResolver(auth, nil, nil)
	ctx := context.Background()

	all := map[string]string{
		session.KeyLoggedUser: `{"email":"logged@x.io"}`,
		session.KeyUserEmail:  "user@x.io",
		session.KeyEmail:      "plain@x.io",
	}

	v := newViewer(t, all)
	v.AccessToken = "tok"
	assert.Equal(t, "session@x.io", r.Resolve(ctx, v))

	v.AccessToken = "expired"
	assert.Equal(t, "logged@x.io", r.Resolve(ctx, v))

	assert.Equal(t, "user@x.io", r.Resolve(ctx, newViewer(t, map[string]string{
		session.KeyLoggedUser: `{"name":"no email"}`,
		session.KeyUserEmail:  "user@x.io",
		session.KeyEmail:      "plain@x.io",
	})))
	assert.Equal(t, "plain@x.io", r.Resolve(ctx, newViewer(t, map[string]string{session.KeyEmail: "plain@x.io"})))
}

func TestResolveLoggedUserForms(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"email":"a@b.c","name":"A"}`, "a@b.c"},
		{"a@b.c", "a@b.c"},
		{`"a@b.c"`, `"a@b.c"`},
		{`{"email":""}`, ""},
		{"not json", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLoggedUser(tt.raw), tt.raw)
	}
}

func TestResolveVerifiesTokenLocally(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Email:            "jwt@x.io",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	auth := memory.NewAuth()
	r := NewResolver(auth, session.NewTokenVerifier("secret"), nil)
	assert.Equal(t, "jwt@x.io", r.Resolve(context.Background(), &session.Viewer{AccessToken: token}))

	auth.Register("opaque", datastore.AuthUser{Email: "remote@x.io"})
	assert.Equal(t, "remote@x.io", r.Resolve(context.Background(), &session.Viewer{AccessToken: "opaque"}))
}
