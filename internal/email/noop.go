package email

import (
	"context"

	"github.com/jwalitptl/dogfinder/pkg/logger"
)

// NoopSender logs what would have been sent.
type NoopSender struct {
	logger *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	if log == nil {
		log = logger.Nop()
	}
	return &NoopSender{logger: log}
}

func (s *NoopSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("email delivery disabled, skipping", "to", msg.To, "subject", msg.Subject)
	return ErrNotConfigured
}
