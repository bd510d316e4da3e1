package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, AnonKey: "anon"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{AnonKey: "anon"})
	assert.Error(t, err)
	_, err = New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)
}

func TestSelectEncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/adoptions", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.a@b.c", q.Get("contact"))
		assert.Equal(t, `in.(1,"x,y")`, q.Get("dog_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Prefer"))
		_, _ = io.WriteString(w, `[{"id":1,"contact":"a@b.c"}]`)
	})

	rows, err := c.Select(context.Background(), datastore.From("adoptions").
		Eq("contact", "a@b.c").In("dog_id", 1, "x,y").Order("created_at", false).Limit(50))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["id"])
}

func TestAccessTokenFromContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	})

	ctx := datastore.WithAccessToken(context.Background(), "user-jwt")
	rows, err := c.Select(ctx, datastore.From("notifications"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMutationsReturnRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		switch r.Method {
		case http.MethodPost:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Rex", body["name"])
			_, _ = io.WriteString(w, `[{"id":7,"name":"Rex"}]`)
		case http.MethodPatch:
			assert.Equal(t, "eq.7", r.URL.Query().Get("id"))
			_, _ = io.WriteString(w, `[{"id":7,"status":"Adopted"}]`)
		case http.MethodDelete:
			assert.Equal(t, "eq.7", r.URL.Query().Get("id"))
			_, _ = io.WriteString(w, `[{"id":7}]`)
		}
	})
	ctx := context.Background()

	rows, err := c.Insert(ctx, "dogs", datastore.Row{"name": "Rex"})
	require.NoError(t, err)
	assert.Equal(t, "Rex", rows[0]["name"])

	rows, err = c.Update(ctx, "dogs", datastore.Row{"status": "Adopted"}, datastore.Eq("id", 7))
	require.NoError(t, err)
	assert.Equal(t, "Adopted", rows[0]["status"])

	rows, err = c.Delete(ctx, "dogs", datastore.Eq("id", 7))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMultiRowInsertSetsColumns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "age,name", r.URL.Query().Get("columns"))
		_, _ = io.WriteString(w, `[{"id":1},{"id":2}]`)
	})

	rows, err := c.Insert(context.Background(), "dogs", datastore.Row{"name": "a"}, datastore.Row{"age": 2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestErrorBodyIsDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"42703","message":"column adoptions.email does not exist","details":null,"hint":null}`)
	})

	_, err := c.Select(context.Background(), datastore.From("adoptions").Eq("email", "a@b.c"))
	var dsErr *datastore.Error
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, http.StatusBadRequest, dsErr.Status)
	assert.Equal(t, "42703", dsErr.Code)

	column, ok := datastore.MissingColumn(err)
	assert.True(t, ok)
	assert.Equal(t, "email", column)
}

func TestNonJSONErrorKeepsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "nope")
	})

	_, err := c.Select(context.Background(), datastore.From("dogs"))
	assert.True(t, datastore.IsPermissionDenied(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestAuthEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = io.WriteString(w, `{"id":"u1","email":"a@b.c","role":"authenticated"}`)
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	user, err := c.GetUser(ctx, "user-jwt")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", user.Email)
	assert.NoError(t, c.SignOut(ctx, "user-jwt"))
}
