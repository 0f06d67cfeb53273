package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLang(t *testing.T) {
	assert.Equal(t, "pl", NormalizeLang("pl"))
	assert.Equal(t, "pl", NormalizeLang(" PL "))
	assert.Equal(t, "en", NormalizeLang("en"))
	assert.Equal(t, "en", NormalizeLang(""))
	assert.Equal(t, "en", NormalizeLang("de"))
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("en", "a@example.com", "alice", "123456")
	assert.Equal(t, "a@example.com", msg.To)
	assert.Contains(t, msg.Text, "alice")
	assert.Contains(t, msg.Text, "123456")
	assert.Contains(t, msg.HTML, "123456")
	assert.NotContains(t, msg.Text, "{{")

	pl := VerificationMessage("pl", "a@example.com", "alice", "123456")
	assert.NotEqual(t, msg.Subject, pl.Subject)
	assert.Contains(t, pl.Text, "123456")
}

func TestResetMessage(t *testing.T) {
	link := "http://localhost:4321/reset-password?token=abc&email=a@example.com"
	msg := ResetMessage("en", "a@example.com", "alice", link)
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.HTML, link)
	assert.NotContains(t, msg.HTML, "{{")
}
