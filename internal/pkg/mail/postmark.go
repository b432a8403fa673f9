package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

// ErrPostmarkTokenRequired is returned when the server token is missing.
var ErrPostmarkTokenRequired = errors.New("postmark server token is required")

// PostmarkConfig configures the Postmark implementation.
type PostmarkConfig struct {
	// ServerToken authenticates message sends.
	ServerToken string
	// AccountToken is optional and only needed for account-level API calls.
	AccountToken string
	// From is the default sender when Message.From is empty.
	From string
	// ReplyTo is set on every message when non-empty.
	ReplyTo string
	// TrackOpens enables Postmark open tracking.
	TrackOpens bool
}

// Postmark is a Mail implementation backed by the Postmark transactional API.
type Postmark struct {
	client *postmark.Client
	cfg    PostmarkConfig
}

// NewPostmark constructs a Postmark mail sender.
func NewPostmark(cfg PostmarkConfig) (*Postmark, error) {
	if cfg.ServerToken == "" {
		return nil, ErrPostmarkTokenRequired
	}

	return &Postmark{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

// Send delivers a message through the Postmark API.
func (p *Postmark) Send(ctx context.Context, msg Message) error {
	if len(msg.recipients()) == 0 {
		return ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = p.cfg.From
	}
	if from == "" {
		return ErrNoSender
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       from,
		ReplyTo:    p.cfg.ReplyTo,
		To:         strings.Join(msg.To, ","),
		Cc:         strings.Join(msg.Cc, ","),
		Bcc:        strings.Join(msg.Bcc, ","),
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TextBody:   msg.TextBody,
		TrackOpens: p.cfg.TrackOpens,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}

	return nil
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (p *Postmark) Close() error {
	return nil
}
