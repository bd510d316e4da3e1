package router

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/datastore/memory"
	"github.com/jwalitptl/dogfinder/internal/email"
	adoptionHandler "github.com/jwalitptl/dogfinder/internal/handler/adoption"
	dashboardHandler "github.com/jwalitptl/dogfinder/internal/handler/dashboard"
	dogHandler "github.com/jwalitptl/dogfinder/internal/handler/dog"
	healthHandler "github.com/jwalitptl/dogfinder/internal/handler/health"
	notificationHandler "github.com/jwalitptl/dogfinder/internal/handler/notification"
	sessionHandler "github.com/jwalitptl/dogfinder/internal/handler/session"
	userHandler "github.com/jwalitptl/dogfinder/internal/handler/user"
	"github.com/jwalitptl/dogfinder/internal/middleware"
	"github.com/jwalitptl/dogfinder/internal/realtime"
	"github.com/jwalitptl/dogfinder/internal/repository/hosted"
	adoptionService "github.com/jwalitptl/dogfinder/internal/service/adoption"
	dashboardService "github.com/jwalitptl/dogfinder/internal/service/dashboard"
	dogService "github.com/jwalitptl/dogfinder/internal/service/dog"
	notificationService "github.com/jwalitptl/dogfinder/internal/service/notification"
	userService "github.com/jwalitptl/dogfinder/internal/service/user"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/logger"
	"github.com/jwalitptl/dogfinder/pkg/metrics"
	brokermem "github.com/jwalitptl/dogfinder/pkg/messaging/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stack struct {
	server        *httptest.Server
	client        *http.Client
	store         *memory.Store
	notifications *notificationService.Service
	metrics       *metrics.Metrics
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.Nop()
	m := metrics.Nop()

	store := memory.NewWithSchema()
	broker := brokermem.NewBroker()
	t.Cleanup(func() { broker.Close() })
	feed := realtime.NewFeed(broker, log)
	db := realtime.Publishing(datastore.Instrument(store, m), feed)

	dogs := hosted.NewDogRepository(db)
	adoptions := hosted.NewAdoptionRepository(db)
	auth := memory.NewAuth()
	resolver := notificationService.NewResolver(auth, nil, log)

	notifications := notificationService.NewService(notificationService.Dependencies{
		Notifications: hosted.NewNotificationRepository(db),
		Adoptions:     adoptions,
		Dogs:          dogs,
		Resolver:      resolver,
		Feed:          feed,
		Mailer:        email.NewNoopSender(log),
		Logger:        log,
		Metrics:       m,
	}, notificationService.Config{PollInterval: time.Hour, Debounce: 20 * time.Millisecond})
	t.Cleanup(notifications.Wait)

	sessions := session.NewMemoryManager(time.Hour, time.Hour)
	r := NewRouter(Handlers{
		Health:       healthHandler.NewHandler(store, prometheus.NewRegistry()),
		Session:      sessionHandler.NewHandler(auth, resolver, log),
		Notification: notificationHandler.NewHandler(notifications),
		Dog:          dogHandler.NewHandler(dogService.NewService(dogs, log)),
		Adoption:     adoptionHandler.NewHandler(adoptionService.NewService(adoptions, dogs, notifications, log, m)),
		User:         userHandler.NewHandler(userService.NewService(hosted.NewUserRepository(db), log)),
		Dashboard:    dashboardHandler.NewHandler(dashboardService.NewService(dogs, adoptions)),
	}, sessions, log, RouterConfig{
		RequestTimeout: 5 * time.Second,
		CORSConfig:     middleware.DefaultCORSConfig(nil),
		Session:        middleware.SessionConfig{TTL: time.Hour},
		Registerer:     prometheus.NewRegistry(),
	})
	r.Setup()

	srv := httptest.NewServer(r.Engine())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &stack{
		server:        srv,
		client:        &http.Client{Jar: jar, Timeout: 5 * time.Second},
		store:         store,
		notifications: notifications,
		metrics:       m,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *stack) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func TestAdoptionFlow(t *testing.T) {
	s := newStack(t)
	s.store.Seed("dogs", datastore.Row{"id": int64(7), "name": "Rex", "breed": "Lab", "age": 3, "status": "Available"})

	code, env := s.do(t, http.MethodGet, "/api/v1/dogs", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"Rex"`)

	code, _ = s.do(t, http.MethodPost, "/api/v1/session", `{"email":"alex@example.com","name":"Alex"}`)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/adoptions", `{"dog_id":7,"name":"Alex","age":"30","contact":"alex@example.com"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Adoption application submitted — thank you!", env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total_dogs":1,"adopted_dogs":1,"available_dogs":0,"total_applications":1,"approved_applications":0,"rejected_applications":0}`, string(env.Data))

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/adoptions/1/approve", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Adoption Approved!", env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, code)
	var feed notificationService.Feed
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	assert.Equal(t, notificationService.SourceNotifications, feed.Source)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Your adoption request (dog #7) has been Approved.", feed.Items[0].Title)

	resp, err := s.client.Get(s.server.URL + "/api/v1/notifications/html")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "1", resp.Header.Get(notificationHandler.HeaderCount))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	code, env = s.do(t, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"recipient":"alex@example.com"`)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, code)
	_, env = s.do(t, http.MethodGet, "/api/v1/session", "")
	assert.Contains(t, string(env.Data), `"recipient":""`)
}

func TestAdminErrors(t *testing.T) {
	s := newStack(t)

	code, env := s.do(t, http.MethodDelete, "/api/v1/admin/dogs/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Invalid dog id: abc", env.Error.Message)
	assert.Empty(t, s.store.Log())

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/dogs", `{"name":"Rex"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Please fill all required fields", env.Error.Message)

	code, env = s.do(t, http.MethodPut, "/api/v1/admin/users/3", `{}`)
	assert.Equal(t, http.StatusNotImplemented, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Edit user: 3 (edit UI not implemented)", env.Error.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/adoptions/x/reject", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDogAdminActions(t *testing.T) {
	s := newStack(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/admin/dogs", `{"name":"Rex","breed":"Lab","age":3,"status":"Available"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Dog added successfully!", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/dogs/1/toggle-status", `{"status":"Available"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Dog status changed to Adopted!", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/dogs/1/toggle-status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Dog status changed to Available!", env.Message)

	code, env = s.do(t, http.MethodPut, "/api/v1/admin/dogs/1", `{"breed":"Beagle"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"Beagle"`)

	code, env = s.do(t, http.MethodDelete, "/api/v1/admin/dogs/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Dog deleted successfully!", env.Message)

	code, _ = s.do(t, http.MethodGet, "/api/v1/dogs/1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealth(t *testing.T) {
	s := newStack(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, code)

	resp, err := s.client.Get(s.server.URL + "/api/v1/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "1.0", resp.Header.Get("X-API-Version"))
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderXRequestID))
}

// readEvent returns the name of the next server-sent event.
func readEvent(t *testing.T, lines <-chan string) string {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended")
			if name, found := strings.CutPrefix(line, "event:"); found {
				return strings.TrimSpace(name)
			}
		case <-timeout:
			t.Fatal("no event received")
		}
	}
}

func TestNotificationStream(t *testing.T) {
	s := newStack(t)
	s.store.Seed("dogs", datastore.Row{"id": int64(7), "name": "Rex", "breed": "Lab", "age": 3, "status": "Available"})
	s.store.Seed("adoptions", datastore.Row{"dog_id": int64(7), "applicant_name": "Alex", "contact": "alex@example.com"})

	code, _ := s.do(t, http.MethodPost, "/api/v1/session", `{"email":"alex@example.com"}`)
	require.Equal(t, http.StatusOK, code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/api/v1/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Jar: s.client.Jar}
	resp, err := streamClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	assert.Equal(t, notificationService.UpdateFeed, readEvent(t, lines))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.ActiveViews) == 1
	}, 2*time.Second, 10*time.Millisecond)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/adoptions/1/approve", "")
	require.Equal(t, http.StatusOK, code)

	seen := map[string]bool{}
	for !(seen[notificationService.UpdatePrepend] && seen[notificationService.UpdateFeed]) {
		seen[readEvent(t, lines)] = true
	}
}
