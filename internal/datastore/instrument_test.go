package datastore

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/dogfinder/pkg/metrics"
)

type stubClient struct {
	err error
}

func (s stubClient) Select(context.Context, *Query) ([]Row, error) { return nil, s.err }
func (s stubClient) Insert(context.Context, string, ...Row) ([]Row, error) { return nil, s.err }
func (s stubClient) Update(context.Context, string, Row, ...Filter) ([]Row, error) {
	return nil, s.err
}
func (s stubClient) Delete(context.Context, string, ...Filter) ([]Row, error) { return nil, s.err }
func (s stubClient) Ping(context.Context) error { return s.err }

func TestInstrumentCountsByOutcome(t *testing.T) {
	m := metrics.Nop()
	ctx := context.Background()

	_, _ = Instrument(stubClient{}, m).Select(ctx, From("dogs"))
	_, _ = Instrument(stubClient{err: &Error{Message: "column adoptions.email does not exist"}}, m).Select(ctx, From("adoptions"))
	_, _ = Instrument(stubClient{err: errors.New("timeout")}, m).Insert(ctx, "notifications", Row{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatastoreOperations.WithLabelValues("select", "dogs", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatastoreOperations.WithLabelValues("select", "adoptions", "missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatastoreOperations.WithLabelValues("insert", "notifications", "error")))
}

func TestInstrumentNilMetricsIsPassthrough(t *testing.T) {
	c := stubClient{}
	assert.Equal(t, Client(c), Instrument(c, nil))
}
