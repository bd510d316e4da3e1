package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by brokers that have been closed.
var ErrClosed = errors.New("messaging: broker closed")

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers raw payloads published on channel until ctx is done,
	// then closes the returned channel.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
