package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jwalitptl/dogfinder/pkg/circuitbreaker"
	"github.com/jwalitptl/dogfinder/pkg/httpclient"
)

type FunctionConfig struct {
	Endpoint string
	Timeout  time.Duration
	// MaxFailures consecutive failures open the breaker for BreakerTimeout.
	MaxFailures    int
	BreakerTimeout time.Duration
}

// FunctionSender posts messages to a serverless email function.
type FunctionSender struct {
	endpoint string
	client   *httpclient.Client
	breaker  *circuitbreaker.CircuitBreaker
}

func NewFunctionSender(cfg FunctionConfig) *FunctionSender {
	return &FunctionSender{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		client:   httpclient.New(cfg.Timeout),
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "email-function",
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}),
	}
}

func (s *FunctionSender) Send(ctx context.Context, msg Message) error {
	if s.endpoint == "" {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return errors.New("email recipient is required")
	}
	err := s.breaker.Execute(func() error {
		return s.client.DoJSON(ctx, http.MethodPost, s.endpoint, nil, msg, nil)
	})
	if err != nil {
		return fmt.Errorf("email function: %w", err)
	}
	return nil
}

// State reports the breaker state, for health output.
func (s *FunctionSender) State() string {
	return s.breaker.State()
}
