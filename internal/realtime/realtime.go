// Package realtime is the change feed: row level INSERT/UPDATE/DELETE events
// fanned out per table over a message broker.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/pkg/logger"
	"github.com/jwalitptl/dogfinder/pkg/messaging"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	// All matches every event type in a binding.
	All EventType = "*"
)

const DefaultSchema = "public"

// Event is one row change.
type Event struct {
	Type            EventType     `json:"type"`
	Schema          string        `json:"schema"`
	Table           string        `json:"table"`
	Record          datastore.Row `json:"record,omitempty"`
	OldRecord       datastore.Row `json:"old_record,omitempty"`
	CommitTimestamp time.Time     `json:"commit_timestamp"`
}

type Handler func(Event)

var ErrAlreadySubscribed = errors.New("channel already subscribed")

// Feed publishes and subscribes to change events.
type Feed struct {
	broker messaging.Broker
	logger *logger.Logger
}

func NewFeed(broker messaging.Broker, log *logger.Logger) *Feed {
	if log == nil {
		log = logger.Nop()
	}
	return &Feed{broker: broker, logger: log}
}

// Topic is the broker channel carrying changes to schema.table.
func Topic(schema, table string) string {
	if schema == "" {
		schema = DefaultSchema
	}
	return fmt.Sprintf("realtime:%s:%s", schema, table)
}

func (f *Feed) Publish(ctx context.Context, e Event) error {
	if e.Schema == "" {
		e.Schema = DefaultSchema
	}
	if e.CommitTimestamp.IsZero() {
		e.CommitTimestamp = time.Now().UTC()
	}
	if err := f.broker.Publish(ctx, Topic(e.Schema, e.Table), e); err != nil {
		return fmt.Errorf("failed to publish %s on %s: %w", e.Type, e.Table, err)
	}
	return nil
}

// Channel starts a named, multiplexed subscription. Add bindings with On, then Subscribe.
func (f *Feed) Channel(name string) *Channel {
	return &Channel{feed: f, name: name}
}

type binding struct {
	eventType EventType
	schema    string
	table     string
	handler   Handler
}

// Channel delivers the events of all its bindings to their handlers one at a
// time, in arrival order.
type Channel struct {
	feed     *Feed
	name     string
	bindings []binding

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// On binds handler to eventType changes of a public table.
func (c *Channel) On(eventType EventType, table string, handler Handler) *Channel {
	return c.OnSchema(eventType, DefaultSchema, table, handler)
}

func (c *Channel) OnSchema(eventType EventType, schema, table string, handler Handler) *Channel {
	c.bindings = append(c.bindings, binding{eventType: eventType, schema: schema, table: table, handler: handler})
	return c
}

func (c *Channel) Name() string {
	return c.name
}

// Subscribe opens one broker subscription per bound table. It returns once
// every subscription is live; events flow until ctx ends or Unsubscribe.
func (c *Channel) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrAlreadySubscribed
	}

	subCtx, cancel := context.WithCancel(ctx)
	topics := make(map[string]bool)
	events := make(chan Event)
	var wg sync.WaitGroup

	for _, b := range c.bindings {
		topic := Topic(b.schema, b.table)
		if topics[topic] {
			continue
		}
		topics[topic] = true

		msgs, err := c.feed.broker.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		wg.Add(1)
		go func(topic string, msgs <-chan []byte) {
			defer wg.Done()
			c.forward(subCtx, topic, msgs, events)
		}(topic, msgs)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(events)
	}()
	go func() {
		defer close(done)
		for e := range events {
			c.dispatch(e)
		}
	}()

	c.cancel = cancel
	c.done = done
	c.feed.logger.Debug("realtime channel subscribed", "channel", c.name, "topics", len(topics))
	return nil
}

// Unsubscribe stops delivery and waits for any running handler to return.
func (c *Channel) Unsubscribe() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	c.mu.Lock()
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
}

func (c *Channel) forward(ctx context.Context, topic string, msgs <-chan []byte, events chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal(raw, &e); err != nil {
				c.feed.logger.Warn(err, "dropping malformed change event", "topic", topic)
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Channel) dispatch(e Event) {
	for _, b := range c.bindings {
		if b.table != e.Table || (b.schema != e.Schema && e.Schema != "") {
			continue
		}
		if b.eventType != All && b.eventType != e.Type {
			continue
		}
		c.safeCall(b.handler, e)
	}
}

func (c *Channel) safeCall(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			c.feed.logger.Error(fmt.Errorf("%v", r), "realtime handler panicked", "channel", c.name, "table", e.Table)
		}
	}()
	h(e)
}
