package datastore

import (
	"context"
	"time"

	"github.com/jwalitptl/dogfinder/pkg/metrics"
)

type instrumented struct {
	next    Client
	metrics *metrics.Metrics
}

// Instrument records operation counts and latency for every call through next.
func Instrument(next Client, m *metrics.Metrics) Client {
	if m == nil {
		return next
	}
	return &instrumented{next: next, metrics: m}
}

func (c *instrumented) observe(op, table string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case IsPermissionDenied(err):
		status = "denied"
	default:
		if _, ok := MissingColumn(err); ok || IsMissingTable(err) {
			status = "missing"
		} else {
			status = "error"
		}
	}
	c.metrics.DatastoreOperations.WithLabelValues(op, table, status).Inc()
	c.metrics.DatastoreLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
}

func (c *instrumented) Select(ctx context.Context, q *Query) ([]Row, error) {
	start := time.Now()
	rows, err := c.next.Select(ctx, q)
	c.observe("select", q.Table, start, err)
	return rows, err
}

func (c *instrumented) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	start := time.Now()
	out, err := c.next.Insert(ctx, table, rows...)
	c.observe("insert", table, start, err)
	return out, err
}

func (c *instrumented) Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error) {
	start := time.Now()
	out, err := c.next.Update(ctx, table, values, filters...)
	c.observe("update", table, start, err)
	return out, err
}

func (c *instrumented) Delete(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	start := time.Now()
	out, err := c.next.Delete(ctx, table, filters...)
	c.observe("delete", table, start, err)
	return out, err
}

func (c *instrumented) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}
