package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalizer converts raw phone input into provider-ready addresses.
// The country code applied to local numbers comes from configuration; the
// dial rules themselves (strip non-digits, leading zero means local) are
// shared by every deployment.
type Normalizer struct {
	countryCode string
}

// NewNormalizer creates a normalizer for the given default country calling
// code, e.g. "91" or "1".
func NewNormalizer(countryCode string) (*Normalizer, error) {
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if countryCode == "" {
		return nil, fmt.Errorf("default country code cannot be empty")
	}
	for _, r := range countryCode {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid country code %q", countryCode)
		}
	}
	return &Normalizer{countryCode: countryCode}, nil
}

// Normalize returns the E.164-style number for SMS delivery:
// non-digits stripped, a leading "0" replaced by the default country code,
// a bare 10-digit number prefixed with it, then a "+" prepended.
func (n *Normalizer) Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return "", fmt.Errorf("phone number %q contains no digits", raw)
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		digits = n.countryCode + strings.TrimPrefix(digits, "0")
	case len(digits) == 10:
		digits = n.countryCode + digits
	}

	return "+" + digits, nil
}

// NormalizeWhatsApp returns the WhatsApp address form of the number.
func (n *Normalizer) NormalizeWhatsApp(raw string) (string, error) {
	e164, err := n.Normalize(raw)
	if err != nil {
		return "", err
	}
	return "whatsapp:" + e164, nil
}

// Validate checks the normalized number against libphonenumber metadata.
// Normalization is lenient on purpose; callers that want strict delivery
// guarantees run this before dispatch.
func (n *Normalizer) Validate(raw string) error {
	e164, err := n.Normalize(raw)
	if err != nil {
		return err
	}

	parsed, err := phonenumbers.Parse(e164, "ZZ")
	if err != nil {
		return fmt.Errorf("failed to parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("invalid phone number %q", e164)
	}
	return nil
}

// Region returns the ISO region for a normalized number, when determinable.
func (n *Normalizer) Region(raw string) (string, error) {
	e164, err := n.Normalize(raw)
	if err != nil {
		return "", err
	}

	parsed, err := phonenumbers.Parse(e164, "ZZ")
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}

	region := phonenumbers.GetRegionCodeForNumber(parsed)
	if region == "ZZ" || region == "" {
		return "", fmt.Errorf("unable to determine region for %q", e164)
	}
	return region, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
