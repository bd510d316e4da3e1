package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/pkg/messaging"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx, "realtime:public:adoptions")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "realtime:public:adoptions")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "realtime:public:adoptions", map[string]string{"type": "UPDATE"}))

	for _, ch := range []<-chan []byte{first, second} {
		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"type":"UPDATE"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("topic"))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return b.Subscribers("topic") == 0 }, time.Second, 10*time.Millisecond)
}

func TestClosedBrokerRejectsCalls(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Close())

	_, err := b.Subscribe(context.Background(), "topic")
	assert.ErrorIs(t, err, messaging.ErrClosed)
	assert.ErrorIs(t, b.Publish(context.Background(), "topic", "x"), messaging.ErrClosed)
}
