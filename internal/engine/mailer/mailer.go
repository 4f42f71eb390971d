// Package mailer sends transactional email to a tenant's contacts.
package mailer

import (
	"context"

	"github.com/rs/zerolog"

	"invostock/internal/platform/config"
)

type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewSender picks Resend when an API key is configured and log-only
// delivery otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if cfg.ResendAPIKey == "" {
		return LogSender{}
	}
	return NewResendSender(cfg)
}

// LogSender writes messages to the request logger instead of sending them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) (string, error) {
	zerolog.Ctx(ctx).Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email not sent, no provider configured")
	return "", nil
}
