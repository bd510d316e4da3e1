package notification

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/realtime"
	"github.com/jwalitptl/dogfinder/internal/session"
)

// ChannelName is the change feed channel every view listens on.
const ChannelName = "public:notifications-and-adoptions"

// Update kinds pushed to a view's consumer.
const (
	UpdateFeed    = "feed"
	UpdatePrepend = "prepend"
)

// Update is a change to the rendered list. For UpdateFeed, HTML replaces the
// list; for UpdatePrepend it is one card to insert at the top.
type Update struct {
	Kind  string `json:"kind"`
	HTML  string `json:"html"`
	Count string `json:"count"`
}

// View is one open notification list: it reloads on a timer, listens for
// changes while active and publishes what changed on Updates.
type View struct {
	svc     *Service
	viewer  *session.Viewer
	updates chan Update
	done    chan struct{}

	mu        sync.Mutex
	ctx       context.Context
	channel   *realtime.Channel
	recipient string
	count     string
	debounce  *time.Timer
	closed    bool
	closeOnce sync.Once
}

func (s *Service) NewView(viewer *session.Viewer) *View {
	return &View{
		svc:     s,
		viewer:  viewer,
		updates: make(chan Update, 16),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		count:   "0",
	}
}

// Updates delivers list changes. It is never closed; watch Done.
func (v *View) Updates() <-chan Update {
	return v.updates
}

// Done is closed when the view closes; Updates stops delivering then.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Count is the current badge text.
func (v *View) Count() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}

// Active reports whether the change feed subscription is live.
func (v *View) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channel != nil
}

// Activate subscribes to new notifications and adoption updates. Calling it
// again while a subscription is live does nothing.
func (v *View) Activate(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.channel != nil || v.closed {
		return nil
	}
	if v.svc.feed == nil {
		return nil
	}

	v.ctx = ctx
	v.recipient = v.svc.Resolve(ctx, v.viewer)
	ch := v.svc.feed.Channel(ChannelName).
		On(realtime.Insert, "notifications", v.onNotification).
		On(realtime.Update, "adoptions", v.onAdoptionUpdate)
	if err := ch.Subscribe(ctx); err != nil {
		return err
	}
	v.channel = ch
	v.svc.metrics.ActiveViews.Inc()
	return nil
}

// Reload replaces the whole list.
func (v *View) Reload(ctx context.Context) {
	f := v.svc.Load(ctx, v.viewer)
	html, err := renderString(func(w io.Writer) error { return RenderList(w, f) })
	if err != nil {
		v.svc.logger.WithContext(ctx).Error(err, "failed to render notifications")
		return
	}

	v.mu.Lock()
	v.count = f.CountText()
	count := v.count
	v.mu.Unlock()

	v.emit(Update{Kind: UpdateFeed, HTML: html, Count: count})
}

// Run loads the list, activates the listener and reloads every poll interval
// until ctx ends. A failed subscription leaves polling in place.
func (v *View) Run(ctx context.Context) {
	defer v.Close()

	v.Reload(ctx)
	if err := v.Activate(ctx); err != nil {
		v.svc.logger.WithContext(ctx).Warn(err, "could not subscribe to realtime notifications")
	}

	ticker := time.NewTicker(v.svc.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Reload(ctx)
		}
	}
}

// Close ends the subscription and cancels a pending debounced reload. Done is closed once it returns.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		ch := v.channel
		v.channel = nil
		if v.debounce != nil {
			v.debounce.Stop()
		}
		v.mu.Unlock()

		close(v.done)
		if ch != nil {
			ch.Unsubscribe()
			v.svc.metrics.ActiveViews.Dec()
		}
	})
}

func (v *View) onNotification(e realtime.Event) {
	if e.Record == nil {
		return
	}
	n := model.NotificationFromRow(e.Record)

	v.mu.Lock()
	recipient := v.recipient
	v.mu.Unlock()
	if !n.AddressedTo(recipient) {
		v.svc.metrics.RealtimeEvents.WithLabelValues(e.Table, string(e.Type), "ignored").Inc()
		return
	}

	it := NotificationItem(n)
	it.Title = model.Deref(n.Message)
	if it.Title == "" {
		it.Title = "Notification"
	}
	html, err := renderString(func(w io.Writer) error { return RenderItem(w, it) })
	if err != nil {
		v.svc.logger.Error(err, "failed to render notification")
		return
	}

	v.mu.Lock()
	v.count = incrementCount(v.count)
	count := v.count
	v.mu.Unlock()

	v.svc.metrics.RealtimeEvents.WithLabelValues(e.Table, string(e.Type), "applied").Inc()
	v.emit(Update{Kind: UpdatePrepend, HTML: html, Count: count})
}

func (v *View) onAdoptionUpdate(e realtime.Event) {
	if e.Record == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if v.debounce != nil {
		v.debounce.Stop()
	}
	ctx := v.ctx
	v.debounce = time.AfterFunc(v.svc.cfg.Debounce, func() {
		v.svc.metrics.DebouncedReloads.Inc()
		v.Reload(ctx)
	})
	v.svc.metrics.RealtimeEvents.WithLabelValues(e.Table, string(e.Type), "scheduled").Inc()
}

func (v *View) emit(u Update) {
	select {
	case <-v.done:
		return
	default:
	}
	select {
	case v.updates <- u:
	case <-v.done:
	}
}

// incrementCount adds one to a numeric badge; blank counts as zero and
// anything else unparsable restarts at "1".
func incrementCount(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "1"
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return "1"
	}
	return strconv.FormatFloat(n+1, 'f', -1, 64)
}
