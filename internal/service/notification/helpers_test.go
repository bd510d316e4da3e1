package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore/memory"
	"github.com/jwalitptl/dogfinder/internal/email"
	"github.com/jwalitptl/dogfinder/internal/realtime"
	"github.com/jwalitptl/dogfinder/internal/repository/hosted"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/metrics"
	brokermem "github.com/jwalitptl/dogfinder/pkg/messaging/memory"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *fakeMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	broker  *brokermem.Broker
	feed    *realtime.Feed
	auth    *memory.Auth
	mailer  *fakeMailer
	metrics *metrics.Metrics
	session session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, Config{})
}

func newFixtureWithConfig(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.NewWithSchema()
	broker := brokermem.NewBroker()
	t.Cleanup(func() { broker.Close() })

	f := &fixture{
		store:   store,
		broker:  broker,
		feed:    realtime.NewFeed(broker, nil),
		auth:    memory.NewAuth(),
		mailer:  &fakeMailer{},
		metrics: metrics.Nop(),
		session: session.NewMemoryManager(time.Hour, time.Hour),
	}
	f.svc = NewService(Dependencies{
		Notifications: hosted.NewNotificationRepository(store),
		Adoptions:     hosted.NewAdoptionRepository(store),
		Dogs:          hosted.NewDogRepository(store),
		Resolver:      NewResolver(f.auth, nil, nil),
		Feed:          f.feed,
		Mailer:        f.mailer,
		Metrics:       f.metrics,
	}, cfg)
	return f
}

// viewer returns a session whose loggedUser is email ("" for anonymous).
func (f *fixture) viewer(t *testing.T, id, emailAddr string) *session.Viewer {
	t.Helper()
	store := f.session.Open(id)
	if emailAddr != "" {
		if err := store.Set(context.Background(), session.KeyLoggedUser, `{"email":"`+emailAddr+`"}`); err != nil {
			t.Fatal(err)
		}
	}
	return &session.Viewer{SessionID: id, Store: store}
}
