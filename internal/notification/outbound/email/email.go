package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const layout = `<!doctype html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <p>Hi {{.Name}},</p>
  <h2 style="margin: 0 0 12px;">{{.Title}}</h2>
  {{if .Message}}<p>{{.Message}}</p>{{end}}
  {{if .TicketID}}<p style="color: #666;">Ticket {{.TicketID}}</p>{{end}}
  <hr>
  <p style="font-size: 12px; color: #999;">{{.Company}} &middot; {{.Year}}</p>
</body>
</html>`

var tmpl = template.Must(template.New("notification").Option("missingkey=zero").Parse(layout))

type contactStore interface {
	GetContact(ctx context.Context, userID string) (*entity.Contact, error)
}

type Config struct {
	From    string
	Company string
}

// Mail delivers notifications to the recipient's stored email contact.
type Mail struct {
	client   mail.Mail
	contacts contactStore
	limiter  *rate.Limiter
	cfg      Config
	clock    clock.Clocker
	ins      instrument.Instrumentation
}

// New builds an email sender. A nil limiter disables throttling.
func New(client mail.Mail, contacts contactStore, limiter *rate.Limiter, cfg Config, clk clock.Clocker, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, contacts: contacts, limiter: limiter, cfg: cfg, clock: clk, ins: ins}
}

func (m *Mail) Send(ctx context.Context, recipientID string, n entity.NotificationPayload) (err error) {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "Send")
	defer func() {
		if err != nil && !errors.Is(err, entity.ErrNoRecipientAddress) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	contact, err := m.contacts.GetContact(ctx, recipientID)
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.ErrNoRecipientAddress
	}
	if err != nil {
		return fmt.Errorf("email: get contact: %w", err)
	}
	if contact.Email == "" {
		return entity.ErrNoRecipientAddress
	}

	html, err := m.render(contact, n)
	if err != nil {
		return fmt.Errorf("email: render: %w", err)
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("email: throttle: %w", err)
		}
	}

	if err := m.client.Send(ctx, mail.Message{
		From:     m.cfg.From,
		To:       []string{contact.Email},
		Subject:  n.Title,
		TextBody: n.Message,
		HTMLBody: html,
		Tag:      n.Type.String(),
	}); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}

	return nil
}

func (m *Mail) render(c *entity.Contact, n entity.NotificationPayload) (string, error) {
	name := c.FullName
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, map[string]any{
		"Name":     name,
		"Title":    n.Title,
		"Message":  n.Message,
		"TicketID": n.TicketID,
		"Company":  m.cfg.Company,
		"Year":     m.clock.Now().Year(),
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
