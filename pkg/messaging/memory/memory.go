// Package memory is an in-process messaging.Broker for single-node deployments and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwalitptl/dogfinder/pkg/messaging"
)

const bufferSize = 100

type subscriber struct {
	ch  chan []byte
	ctx context.Context
}

// Broker fans published payloads out to every live subscriber of a channel.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscriber]struct{})}
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return messaging.ErrClosed
	}

	for sub := range b.subs[channel] {
		select {
		case sub.ch <- payload:
		case <-sub.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, messaging.ErrClosed
	}

	sub := &subscriber{ch: make(chan []byte, bufferSize), ctx: ctx}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscriber]struct{})
	}
	b.subs[channel][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if set, ok := b.subs[channel]; ok {
			if _, live := set[sub]; live {
				delete(set, sub)
				close(sub.ch)
			}
		}
		b.mu.Unlock()
	}()

	return sub.ch, nil
}

// Subscribers reports how many live subscriptions a channel has.
func (b *Broker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for sub := range set {
			close(sub.ch)
		}
	}
	b.subs = make(map[string]map[*subscriber]struct{})
	return nil
}

var _ messaging.Broker = (*Broker)(nil)
