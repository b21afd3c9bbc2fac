package dispatch

import (
	"context"
	"fmt"
)

// EmailReport aggregates a bulk email dispatch. Success is true iff no
// recipient failed; configuration errors surface before any counter exists.
type EmailReport struct {
	Success bool     `json:"success"`
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// SendBulkEmail delivers one message to every recipient in rate-limited
// batches. Credentials are resolved at call time; a missing or incomplete
// configuration aborts before any send is attempted.
func (d *Dispatcher) SendBulkEmail(ctx context.Context, recipients []string, subject, htmlBody, textBody string) (*EmailReport, error) {
	creds, err := d.emailCredentials(ctx)
	if err != nil {
		return nil, err
	}
	provider := d.email(creds)

	outcomes := runBatches(ctx, len(recipients), d.cfg.BatchSize, d.cfg.EmailDelay, func(ctx context.Context, i int) Outcome {
		sendErr := provider.Send(ctx, EmailMessage{
			To:       recipients[i],
			Subject:  subject,
			HTMLBody: htmlBody,
			TextBody: textBody,
		})
		return Outcome{Recipient: recipients[i], Err: sendErr}
	})
	d.refreshOnAuthFailure(ctx, outcomes)

	report := &EmailReport{Errors: []string{}}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", o.Recipient, o.Err))
			continue
		}
		report.Sent++
	}
	report.Success = report.Failed == 0

	d.record("email", report.Sent, report.Failed)
	d.log.Info("bulk email dispatched",
		"recipients", len(recipients), "sent", report.Sent, "failed", report.Failed)

	return report, nil
}

// SendEmail delivers a single transactional email with the same credential
// acquisition as the bulk path.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	creds, err := d.emailCredentials(ctx)
	if err != nil {
		return err
	}

	if err := d.email(creds).Send(ctx, EmailMessage{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: textBody}); err != nil {
		d.record("email", 0, 1)
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	d.record("email", 1, 0)
	return nil
}
