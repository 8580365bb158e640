package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridTransport posts messages to the SendGrid v3 mail send API
type SendGridTransport struct {
	api  sendgridAPI
	from *mail.Email
}

func NewSendGridTransport(cfg config.EmailConfig) *SendGridTransport {
	return &SendGridTransport{
		api:  sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from: mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) Send(ctx context.Context, job models.EmailJob) (string, error) {
	msg := mail.NewSingleEmail(t.from, job.Subject, mail.NewEmail("", job.To), job.Text, job.HTML)

	resp, err := t.api.SendWithContext(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Notification(fmt.Sprintf("sendgrid returned %d", resp.StatusCode), errors.New(resp.Body))
	}

	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
