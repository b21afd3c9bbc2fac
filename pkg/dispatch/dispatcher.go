package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/logger"
	"github.com/salespipehq/salespipe/pkg/phone"
	"github.com/salespipehq/salespipe/pkg/secrets"
)

// ErrAuthFailure marks a provider rejection caused by bad credentials.
// Providers wrap 401/403 responses with it so the dispatcher can drop the
// cached credentials before the next call.
var ErrAuthFailure = errors.New("provider rejected credentials")

// EmailMessage is one outbound transactional email
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailProvider delivers a single email
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// MessageResult holds the provider acknowledgment for an SMS/WhatsApp send
type MessageResult struct {
	ID     string
	Status string
}

// MessageProvider delivers a single SMS or WhatsApp message
type MessageProvider interface {
	Send(ctx context.Context, to, from, body string) (*MessageResult, error)
}

// EmailCredentials are fetched from the secrets manager per dispatch call
type EmailCredentials struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// MessageCredentials are fetched from the secrets manager per dispatch call
type MessageCredentials struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// EmailProviderFactory builds a provider bound to fresh credentials
type EmailProviderFactory func(creds EmailCredentials) EmailProvider

// MessageProviderFactory builds a provider bound to fresh credentials
type MessageProviderFactory func(creds MessageCredentials) MessageProvider

// Recorder counts dispatched notifications per channel
type Recorder interface {
	RecordNotifications(channel string, sent, failed int)
}

// Config holds dispatcher tuning
type Config struct {
	BatchSize    int
	EmailDelay   time.Duration
	MessageDelay time.Duration
	FromName     string
}

// Dispatcher fans messages out to recipients in rate-limited batches,
// accounting success and failure per recipient.
type Dispatcher struct {
	cfg        Config
	secrets    secrets.Manager
	normalizer *phone.Normalizer
	email      EmailProviderFactory
	message    MessageProviderFactory
	log        logger.Logger
	recorder   Recorder
}

// New creates a dispatcher
func New(cfg Config, sm secrets.Manager, normalizer *phone.Normalizer, email EmailProviderFactory, message MessageProviderFactory, log logger.Logger, recorder Recorder) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.EmailDelay <= 0 {
		cfg.EmailDelay = 100 * time.Millisecond
	}
	if cfg.MessageDelay <= 0 {
		cfg.MessageDelay = 200 * time.Millisecond
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Dispatcher{
		cfg:        cfg,
		secrets:    sm,
		normalizer: normalizer,
		email:      email,
		message:    message,
		log:        log,
		recorder:   recorder,
	}
}

func (d *Dispatcher) record(channel string, sent, failed int) {
	if d.recorder != nil {
		d.recorder.RecordNotifications(channel, sent, failed)
	}
}

// refreshOnAuthFailure drops cached credentials when any outcome carries an
// auth failure, so the next dispatch fetches fresh ones.
func (d *Dispatcher) refreshOnAuthFailure(ctx context.Context, outcomes []Outcome) {
	for _, o := range outcomes {
		if o.Err != nil && errors.Is(o.Err, ErrAuthFailure) {
			if err := d.secrets.RefreshCache(ctx); err != nil {
				d.log.Warn("failed to refresh credential cache", "error", err)
			}
			return
		}
	}
}

func (d *Dispatcher) emailCredentials(ctx context.Context) (EmailCredentials, error) {
	apiKey, err := d.secrets.GetSecret(ctx, "SENDGRID_API_KEY")
	if err != nil {
		return EmailCredentials{}, domain.NewConfigurationError(fmt.Sprintf("email credentials unavailable: %v", err))
	}
	fromEmail, err := d.secrets.GetSecret(ctx, "SENDGRID_FROM_EMAIL")
	if err != nil {
		return EmailCredentials{}, domain.NewConfigurationError(fmt.Sprintf("email sender address unavailable: %v", err))
	}
	return EmailCredentials{APIKey: apiKey, FromEmail: fromEmail, FromName: d.cfg.FromName}, nil
}

func (d *Dispatcher) messageCredentials(ctx context.Context, fromKey string) (MessageCredentials, error) {
	sid, err := d.secrets.GetSecret(ctx, "TWILIO_ACCOUNT_SID")
	if err != nil {
		return MessageCredentials{}, domain.NewConfigurationError(fmt.Sprintf("messaging credentials unavailable: %v", err))
	}
	token, err := d.secrets.GetSecret(ctx, "TWILIO_AUTH_TOKEN")
	if err != nil {
		return MessageCredentials{}, domain.NewConfigurationError(fmt.Sprintf("messaging credentials unavailable: %v", err))
	}
	from, err := d.secrets.GetSecret(ctx, fromKey)
	if err != nil {
		return MessageCredentials{}, domain.NewConfigurationError(fmt.Sprintf("messaging sender number unavailable: %v", err))
	}
	return MessageCredentials{AccountSID: sid, AuthToken: token, FromNumber: from}, nil
}
