package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/salespipehq/salespipe/pkg/dispatch"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// SendGridProvider delivers transactional email through SendGrid. A provider
// is built per dispatch call with freshly resolved credentials.
type SendGridProvider struct {
	key  string
	from *sgmail.Email
}

var _ dispatch.EmailProvider = (*SendGridProvider)(nil)

// NewProvider creates a SendGrid-backed email provider
func NewProvider(creds dispatch.EmailCredentials) dispatch.EmailProvider {
	return &SendGridProvider{
		key:  creds.APIKey,
		from: sgmail.NewEmail(creds.FromName, creds.FromEmail),
	}
}

// Send delivers one email
func (p *SendGridProvider) Send(ctx context.Context, msg dispatch.EmailMessage) error {
	req := sendgrid.GetRequest(p.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(p.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return fmt.Errorf("sendgrid status %d: %w", res.StatusCode, dispatch.ErrAuthFailure)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (p *SendGridProvider) prepare(msg dispatch.EmailMessage) *sgmail.SGMailV3 {
	personalization := sgmail.NewPersonalization()
	personalization.Subject = msg.Subject
	personalization.AddTos(sgmail.NewEmail("", msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(p.from)
	m.AddPersonalizations(personalization)

	text := msg.TextBody
	if text == "" {
		text = msg.Subject
	}
	m.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}

	return m
}
