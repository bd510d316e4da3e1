package notification

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/realtime"
)

func nextUpdate(t *testing.T, v *View) Update {
	t.Helper()
	select {
	case u := <-v.Updates():
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
		return Update{}
	}
}

func drain(v *View, wait time.Duration) []Update {
	var out []Update
	deadline := time.After(wait)
	for {
		select {
		case u := <-v.Updates():
			out = append(out, u)
		case <-deadline:
			return out
		}
	}
}

func publish(t *testing.T, f *fixture, typ realtime.EventType, table string, record datastore.Row) {
	t.Helper()
	require.NoError(t, f.feed.Publish(context.Background(), realtime.Event{Type: typ, Table: table, Record: record}))
}

func TestActivateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	v := f.svc.NewView(f.viewer(t, "s1", "a@b.c"))
	defer v.Close()

	ctx := context.Background()
	require.NoError(t, v.Activate(ctx))
	require.NoError(t, v.Activate(ctx))

	assert.True(t, v.Active())
	assert.Equal(t, 1, f.broker.Subscribers(realtime.Topic("", "notifications")))
	assert.Equal(t, 1, f.broker.Subscribers(realtime.Topic("", "adoptions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveViews))

	other := f.svc.NewView(f.viewer(t, "s2", ""))
	require.NoError(t, other.Activate(ctx))
	assert.Equal(t, 2, f.broker.Subscribers(realtime.Topic("", "notifications")))
	other.Close()

	assert.Eventually(t, func() bool {
		return f.broker.Subscribers(realtime.Topic("", "notifications")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClosedViewDoesNotActivate(t *testing.T) {
	f := newFixture(t)
	v := f.svc.NewView(nil)
	v.Close()
	v.Close()

	require.NoError(t, v.Activate(context.Background()))
	assert.False(t, v.Active())
	assert.Equal(t, 0, f.broker.Subscribers(realtime.Topic("", "notifications")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveViews))
}

func TestAdoptionUpdatesAreDebounced(t *testing.T) {
	f := newFixture(t)
	v := f.svc.NewView(f.viewer(t, "s1", "a@b.c"))
	defer v.Close()
	require.NoError(t, v.Activate(context.Background()))

	for i := 0; i < 3; i++ {
		publish(t, f, realtime.Update, "adoptions", datastore.Row{"id": 1, "status": "Approved"})
		time.Sleep(15 * time.Millisecond)
	}

	updates := drain(v, DefaultDebounce+400*time.Millisecond)
	require.Len(t, updates, 1)
	assert.Equal(t, UpdateFeed, updates[0].Kind)
	assert.Contains(t, updates[0].HTML, MessageEmpty)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DebouncedReloads))
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.RealtimeEvents.WithLabelValues("adoptions", "UPDATE", "scheduled")))
}

func TestInsertedNotificationsArePrepended(t *testing.T) {
	f := newFixture(t)
	v := f.svc.NewView(f.viewer(t, "s1", "a@b.c"))
	defer v.Close()
	require.NoError(t, v.Activate(context.Background()))

	publish(t, f, realtime.Insert, "notifications", datastore.Row{"recipient": "a@b.c", "message": "<b>Approved</b>"})
	u := nextUpdate(t, v)
	assert.Equal(t, UpdatePrepend, u.Kind)
	assert.Equal(t, "1", u.Count)
	assert.Contains(t, u.HTML, "&lt;b&gt;Approved&lt;/b&gt;")

	publish(t, f, realtime.Insert, "notifications", datastore.Row{"recipient": "someone@else.io", "message": "Not yours"})
	publish(t, f, realtime.Insert, "notifications", datastore.Row{"type": "adoption"})

	u = nextUpdate(t, v)
	assert.Equal(t, "2", u.Count)
	assert.Contains(t, u.HTML, ">Notification<")
	assert.Equal(t, "2", v.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RealtimeEvents.WithLabelValues("notifications", "INSERT", "ignored")))
}

func TestNotificationDeletesAreIgnored(t *testing.T) {
	f := newFixture(t)
	v := f.svc.NewView(nil)
	defer v.Close()
	require.NoError(t, v.Activate(context.Background()))

	require.NoError(t, f.feed.Publish(context.Background(), realtime.Event{
		Type: realtime.Delete, Table: "notifications", OldRecord: datastore.Row{"id": 1},
	}))
	assert.Empty(t, drain(v, 100*time.Millisecond))
}

func TestRunLoadsThenClosesOnCancel(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("notifications", datastore.Row{"message": "Welcome"})
	v := f.svc.NewView(nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		v.Run(ctx)
		close(stopped)
	}()

	u := nextUpdate(t, v)
	assert.Equal(t, UpdateFeed, u.Kind)
	assert.Equal(t, "1", u.Count)
	assert.Contains(t, u.HTML, "Welcome")
	assert.Eventually(t, v.Active, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	select {
	case <-v.Done():
	default:
		t.Fatal("view not closed")
	}
	assert.False(t, v.Active())
}

func TestRunReloadsEveryPollInterval(t *testing.T) {
	f := newFixtureWithConfig(t, Config{PollInterval: 20 * time.Millisecond})
	v := f.svc.NewView(f.viewer(t, "s1", "a@b.c"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go v.Run(ctx)

	first := nextUpdate(t, v)
	assert.Equal(t, UpdateFeed, first.Kind)
	assert.Equal(t, "0", first.Count)

	// written straight to the store, so no change event is published
	f.store.Seed("notifications", datastore.Row{"recipient": "a@b.c", "message": "Approved!"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-v.Updates():
			require.Equal(t, UpdateFeed, u.Kind)
			if u.Count == "1" {
				assert.Contains(t, u.HTML, "Approved!")
				return
			}
		case <-deadline:
			t.Fatal("poll did not pick up the new notification")
		}
	}
}

func TestIncrementCount(t *testing.T) {
	tests := map[string]string{
		"":     "1",
		"  ":   "1",
		"0":    "1",
		"4":    "5",
		" 9 ":  "10",
		"2.5":  "3.5",
		"many": "1",
		"NaN":  "1",
		"Inf":  "1",
		"-Inf": "1",
	}
	for in, want := range tests {
		assert.Equal(t, want, incrementCount(in), "incrementCount(%q)", in)
	}
}
