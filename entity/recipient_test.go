package entity

import (
	"regexp"
	"testing"

	"certhub/pkg/goutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUniqueCode(t *testing.T) {
	codeRegex := regexp.MustCompile(`^[0-9A-F]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := NewUniqueCode()
		require.NoError(t, err)
		assert.Regexp(t, codeRegex, code)
		seen[code] = struct{}{}
	}

	// collisions over 100 draws from a 2^32 space would be remarkable
	assert.Greater(t, len(seen), 95)
}

func TestNormalizeUniqueCode(t *testing.T) {
	assert.Equal(t, "ABCD1234", NormalizeUniqueCode("  abcd1234 "))
	assert.Equal(t, "ABCD1234", NormalizeUniqueCode("AbCd1234"))
	assert.Equal(t, "", NormalizeUniqueCode("   "))
}

func TestRecipientStates(t *testing.T) {
	recipient := NewRecipient("Alice", "alice@test.com", "ABCD1234")

	assert.True(t, recipient.IsPending())
	assert.False(t, recipient.IsClaimed())

	recipient.EmailStatus = EmailStatusSent
	assert.False(t, recipient.IsPending())

	recipient.CertificateURL = goutil.String("https://files.test/cert.png")
	assert.True(t, recipient.IsClaimed())
}

func TestEmailStatusString(t *testing.T) {
	assert.Equal(t, "PENDING", EmailStatusPending.String())
	assert.Equal(t, "SENT", EmailStatusSent.String())
	assert.Equal(t, "FAILED", EmailStatusFailed.String())
	assert.Equal(t, "UNKNOWN", EmailStatusUnknown.String())
}
