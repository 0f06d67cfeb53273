// Package mail delivers transactional email for the verification and
// password-reset flows.
package mail

import (
	"context"
	"log"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer is the outbound email boundary. Send returns a non-nil error for
// any delivery failure; callers decide whether that is fatal for the flow.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer is the development fallback: it logs the message instead of
// delivering it, so local flows work without an SMTP server.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Printf("[Mail] (dev, not delivered) to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Text)
	return nil
}
