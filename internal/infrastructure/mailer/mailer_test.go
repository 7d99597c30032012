package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

func testMessage() ports.InvitationEmail {
	return ports.InvitationEmail{
		To:          "new@example.com",
		ProjectName: "Flow <Beta>",
		InviterName: "Jane",
		InviteURL:   "http://app.test/invite/abc",
		ExpiresAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderInvitation(t *testing.T) {
	msg := testMessage()

	assert.Equal(t, "Join Flow <Beta> on Flow", Subject(msg))

	body, err := RenderInvitation(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Flow &lt;Beta&gt;")
	assert.NotContains(t, body, "<Beta>")
	assert.Contains(t, body, `href="http://app.test/invite/abc"`)
	assert.Contains(t, body, "Jun 1, 2024 12:00 UTC")

	text := plainText(msg)
	assert.Contains(t, text, "Jane invited you to join Flow <Beta> on Flow.")
	assert.Contains(t, text, msg.InviteURL)
}

func TestNewPicksTransport(t *testing.T) {
	log := logger.NewNop()

	assert.IsType(t, &ConsoleMailer{}, New(config.SMTPConfig{Host: "smtp.example.com"}, log))
	assert.IsType(t, &SMTPMailer{}, New(config.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u", Password: "p"}, log))
}

func TestConsoleMailerLogsLink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := New(config.SMTPConfig{}, logger.FromZap(zap.New(core)))

	require.NoError(t, m.SendInvitation(context.Background(), testMessage()))

	entries := logs.FilterMessage("Invitation email (not sent)").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "new@example.com", fields["to"])
	assert.Equal(t, "http://app.test/invite/abc", fields["invite_url"])
	assert.Equal(t, "mailer", fields["component"])
}

func TestSMTPMailerRejectsBadRecipient(t *testing.T) {
	m := New(config.SMTPConfig{Host: "127.0.0.1", Port: 1, User: "u@example.com", Password: "p"}, logger.NewNop())

	msg := testMessage()
	msg.To = "not an address"
	err := m.SendInvitation(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set recipient")
}
