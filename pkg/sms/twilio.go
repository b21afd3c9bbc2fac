package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salespipehq/salespipe/pkg/dispatch"
)

const apiBase = "https://api.twilio.com/2010-04-01"

// TwilioProvider delivers SMS and WhatsApp messages through Twilio's
// Messages API. WhatsApp traffic uses the same endpoint with whatsapp:
// addressed numbers on both ends.
type TwilioProvider struct {
	accountSID string
	authToken  string
	baseURL    string
	client     *http.Client
}

var _ dispatch.MessageProvider = (*TwilioProvider)(nil)

// NewProvider creates a Twilio-backed message provider bound to freshly
// resolved credentials.
func NewProvider(creds dispatch.MessageCredentials) dispatch.MessageProvider {
	return &TwilioProvider{
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		baseURL:    apiBase,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// NewProviderWithBaseURL is used by tests to point at a stub server
func NewProviderWithBaseURL(creds dispatch.MessageCredentials, baseURL string, client *http.Client) *TwilioProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &TwilioProvider{
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		baseURL:    baseURL,
		client:     client,
	}
}

type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send issues one message and returns the provider message id and status
func (p *TwilioProvider) Send(ctx context.Context, to, from, body string) (*dispatch.MessageResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", p.baseURL, url.PathEscape(p.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read twilio response: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("twilio status %d: %w", res.StatusCode, dispatch.ErrAuthFailure)
	}

	var parsed messageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode twilio response (status %d): %w", res.StatusCode, err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("twilio error %d: %s", parsed.Code, parsed.Message)
	}

	return &dispatch.MessageResult{ID: parsed.SID, Status: parsed.Status}, nil
}
