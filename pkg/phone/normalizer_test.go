package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizer(t *testing.T) {
	t.Run("Accepts plus prefix", func(t *testing.T) {
		n, err := NewNormalizer("+91")
		require.NoError(t, err)

		got, err := n.Normalize("9876543210")
		require.NoError(t, err)
		assert.Equal(t, "+919876543210", got)
	})

	t.Run("Error - empty", func(t *testing.T) {
		_, err := NewNormalizer("")
		assert.Error(t, err)
	})

	t.Run("Error - non-numeric", func(t *testing.T) {
		_, err := NewNormalizer("IN")
		assert.Error(t, err)
	})
}

func TestNormalize(t *testing.T) {
	n, err := NewNormalizer("91")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Bare 10-digit gets country code", "9876543210", "+919876543210"},
		{"Leading zero replaced by country code", "09876543210", "+919876543210"},
		{"Formatting stripped", "098-765 432(10)", "+919876543210"},
		{"Already international", "+91 98765 43210", "+919876543210"},
		{"Other country untouched", "+1 415 555 2671", "+14155552671"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("Error - no digits", func(t *testing.T) {
		_, err := n.Normalize("call me")
		assert.Error(t, err)
	})
}

func TestNormalizeWhatsApp(t *testing.T) {
	n, err := NewNormalizer("91")
	require.NoError(t, err)

	got, err := n.NormalizeWhatsApp("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+919876543210", got)

	got, err = n.NormalizeWhatsApp("09876543210")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+919876543210", got)
}

func TestValidate(t *testing.T) {
	n, err := NewNormalizer("91")
	require.NoError(t, err)

	assert.NoError(t, n.Validate("9876543210"))
	assert.Error(t, n.Validate("12345"))
}

func TestRegion(t *testing.T) {
	n, err := NewNormalizer("91")
	require.NoError(t, err)

	region, err := n.Region("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "IN", region)
}
