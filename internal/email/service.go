// Package email sends applicant notices. Delivery is always best-effort for callers.
package email

import (
	"context"
	"errors"
)

// ErrNotConfigured means no delivery endpoint is set; callers treat it as "not sent".
var ErrNotConfigured = errors.New("email delivery not configured")

// Message mirrors the JSON body the email function accepts.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type Service interface {
	Send(ctx context.Context, msg Message) error
}
