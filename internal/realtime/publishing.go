package realtime

import (
	"context"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

type publishingClient struct {
	datastore.Client
	feed *Feed
}

// Publishing makes every successful mutation through client emit change
// events on feed. A failed publish is logged and never fails the mutation.
func Publishing(client datastore.Client, feed *Feed) datastore.Client {
	return &publishingClient{Client: client, feed: feed}
}

func (c *publishingClient) Insert(ctx context.Context, table string, rows ...datastore.Row) ([]datastore.Row, error) {
	out, err := c.Client.Insert(ctx, table, rows...)
	if err == nil {
		for _, r := range out {
			c.publish(ctx, Event{Type: Insert, Table: table, Record: r})
		}
	}
	return out, err
}

func (c *publishingClient) Update(ctx context.Context, table string, values datastore.Row, filters ...datastore.Filter) ([]datastore.Row, error) {
	out, err := c.Client.Update(ctx, table, values, filters...)
	if err == nil {
		for _, r := range out {
			c.publish(ctx, Event{Type: Update, Table: table, Record: r})
		}
	}
	return out, err
}

func (c *publishingClient) Delete(ctx context.Context, table string, filters ...datastore.Filter) ([]datastore.Row, error) {
	out, err := c.Client.Delete(ctx, table, filters...)
	if err == nil {
		for _, r := range out {
			c.publish(ctx, Event{Type: Delete, Table: table, OldRecord: r})
		}
	}
	return out, err
}

func (c *publishingClient) publish(ctx context.Context, e Event) {
	if err := c.feed.Publish(context.WithoutCancel(ctx), e); err != nil {
		c.feed.logger.Warn(err, "change event not published", "table", e.Table, "type", string(e.Type))
	}
}
