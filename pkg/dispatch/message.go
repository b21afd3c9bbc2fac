package dispatch

import (
	"context"
	"fmt"

	"github.com/salespipehq/salespipe/pkg/models"
)

// RecipientResult is the per-recipient record kept for SMS and WhatsApp
// dispatches: a provider message id and status on success, or the error.
type RecipientResult struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MessageReport aggregates a bulk SMS or WhatsApp dispatch
type MessageReport struct {
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Errors  []string          `json:"errors"`
	Results []RecipientResult `json:"results"`
}

type addressFunc func(raw string) (string, error)

// SendBulkSMS delivers per-recipient SMS messages in rate-limited batches.
func (d *Dispatcher) SendBulkSMS(ctx context.Context, recipients []models.PhoneMessage) (*MessageReport, error) {
	creds, err := d.messageCredentials(ctx, "TWILIO_PHONE_NUMBER")
	if err != nil {
		return nil, err
	}
	from, err := d.normalizer.Normalize(creds.FromNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid sender number: %w", err)
	}
	return d.sendBulkMessages(ctx, recipients, creds, from, d.normalizer.Normalize, "sms")
}

// SendBulkWhatsApp delivers per-recipient WhatsApp messages in rate-limited
// batches using whatsapp: addressing on both ends.
func (d *Dispatcher) SendBulkWhatsApp(ctx context.Context, recipients []models.PhoneMessage) (*MessageReport, error) {
	creds, err := d.messageCredentials(ctx, "TWILIO_WHATSAPP_NUMBER")
	if err != nil {
		return nil, err
	}
	from, err := d.normalizer.NormalizeWhatsApp(creds.FromNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid sender number: %w", err)
	}
	return d.sendBulkMessages(ctx, recipients, creds, from, d.normalizer.NormalizeWhatsApp, "whatsapp")
}

func (d *Dispatcher) sendBulkMessages(ctx context.Context, recipients []models.PhoneMessage, creds MessageCredentials, from string, address addressFunc, channel string) (*MessageReport, error) {
	provider := d.message(creds)

	outcomes := runBatches(ctx, len(recipients), d.cfg.BatchSize, d.cfg.MessageDelay, func(ctx context.Context, i int) Outcome {
		r := recipients[i]

		to, err := address(r.Phone)
		if err != nil {
			return Outcome{Recipient: r.Phone, Err: err}
		}

		res, err := provider.Send(ctx, to, from, r.Message)
		if err != nil {
			return Outcome{Recipient: r.Phone, Err: err}
		}
		return Outcome{Recipient: r.Phone, MessageID: res.ID, Status: res.Status}
	})
	d.refreshOnAuthFailure(ctx, outcomes)

	report := &MessageReport{Errors: []string{}, Results: make([]RecipientResult, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", o.Recipient, o.Err))
			report.Results = append(report.Results, RecipientResult{Recipient: o.Recipient, Error: o.Err.Error()})
			continue
		}
		report.Sent++
		report.Results = append(report.Results, RecipientResult{
			Recipient: o.Recipient,
			MessageID: o.MessageID,
			Status:    o.Status,
		})
	}

	d.record(channel, report.Sent, report.Failed)
	d.log.Info("bulk messages dispatched", "channel", channel,
		"recipients", len(recipients), "sent", report.Sent, "failed", report.Failed)

	return report, nil
}

// SendSMS normalizes one number and issues a single provider call,
// propagating the provider error directly.
func (d *Dispatcher) SendSMS(ctx context.Context, phoneNumber, message string) (*MessageResult, error) {
	creds, err := d.messageCredentials(ctx, "TWILIO_PHONE_NUMBER")
	if err != nil {
		return nil, err
	}
	return d.sendMessage(ctx, creds, phoneNumber, message, d.normalizer.Normalize, "sms")
}

// SendWhatsApp normalizes one number and issues a single provider call,
// propagating the provider error directly.
func (d *Dispatcher) SendWhatsApp(ctx context.Context, phoneNumber, message string) (*MessageResult, error) {
	creds, err := d.messageCredentials(ctx, "TWILIO_WHATSAPP_NUMBER")
	if err != nil {
		return nil, err
	}
	return d.sendMessage(ctx, creds, phoneNumber, message, d.normalizer.NormalizeWhatsApp, "whatsapp")
}

func (d *Dispatcher) sendMessage(ctx context.Context, creds MessageCredentials, phoneNumber, message string, address addressFunc, channel string) (*MessageResult, error) {
	from, err := address(creds.FromNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid sender number: %w", err)
	}
	to, err := address(phoneNumber)
	if err != nil {
		return nil, err
	}

	res, err := d.message(creds).Send(ctx, to, from, message)
	if err != nil {
		d.record(channel, 0, 1)
		return nil, err
	}
	d.record(channel, 1, 0)
	return res, nil
}
