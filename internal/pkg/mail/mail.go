package mail

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrNoRecipients = errors.New("no recipients provided")
	// ErrNoSender is returned when both Message.From and the configured default From are empty.
	ErrNoSender = errors.New("no sender provided")
)

// Message represents an email payload.
//
// Fields are provider-agnostic so they can be sent using SMTP or an HTTP API.
type Message struct {
	// From is an optional explicit sender; fallback depends on implementation.
	From string
	// To lists required recipients.
	To []string
	// Cc lists carbon copy recipients.
	Cc []string
	// Bcc lists blind carbon copy recipients.
	Bcc []string
	// Subject is the email subject line.
	Subject string
	// TextBody is the plain-text body; preferred when HTMLBody is empty.
	TextBody string
	// HTMLBody is the optional HTML body.
	HTMLBody string
	// Tag groups messages in provider analytics. Ignored by SMTP.
	Tag string
}

func (m Message) recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Mail abstracts an email provider (SMTP, third-party API, etc).
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}
