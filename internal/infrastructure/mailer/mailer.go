// Package mailer delivers invitation emails over SMTP, or writes them to the
// log when no SMTP credentials are configured.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>You're invited to join {{.ProjectName}}</h2>
  <p><strong>{{.InviterName}}</strong> invited you to collaborate on <strong>{{.ProjectName}}</strong> in Flow.</p>
  <p>
    <a href="{{.InviteURL}}" style="display: inline-block; padding: 10px 18px; background: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px;">Accept invitation</a>
  </p>
  <p style="color: #6b7280; font-size: 13px;">This invitation expires on {{.ExpiresAt.Format "Jan 2, 2006 15:04 MST"}}.</p>
</body>
</html>`))

// Subject is the subject line of an invitation email.
func Subject(msg ports.InvitationEmail) string {
	return fmt.Sprintf("Join %s on Flow", msg.ProjectName)
}

// RenderInvitation renders the HTML body of an invitation email.
func RenderInvitation(msg ports.InvitationEmail) (string, error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render invitation email: %w", err)
	}
	return buf.String(), nil
}

func plainText(msg ports.InvitationEmail) string {
	return fmt.Sprintf("%s invited you to join %s on Flow.\n\nAccept the invitation: %s\nIt expires on %s.\n",
		msg.InviterName, msg.ProjectName, msg.InviteURL, msg.ExpiresAt.Format("Jan 2, 2006 15:04 MST"))
}

// New returns an SMTP mailer when credentials are configured and a
// logging mailer otherwise.
func New(cfg config.SMTPConfig, log *logger.Logger) ports.Mailer {
	log = log.WithComponent("mailer")
	if !cfg.Enabled() {
		log.Warn("SMTP credentials not configured, invitation emails will be logged")
		return &ConsoleMailer{logger: log}
	}
	return &SMTPMailer{cfg: cfg, logger: log}
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
}

func (m *SMTPMailer) SendInvitation(ctx context.Context, msg ports.InvitationEmail) error {
	body, err := RenderInvitation(msg)
	if err != nil {
		return err
	}

	message := mail.NewMsg()
	if err := message.FromFormat(m.cfg.FromName, m.cfg.User); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	message.Subject(Subject(msg))
	message.SetBodyString(mail.TypeTextPlain, plainText(msg))
	message.AddAlternativeString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}

	m.logger.Infow("Invitation email sent", "to", msg.To, "project", msg.ProjectName)
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	return opts
}

// ConsoleMailer logs the invitation link instead of sending it.
type ConsoleMailer struct {
	logger *logger.Logger
}

func (m *ConsoleMailer) SendInvitation(ctx context.Context, msg ports.InvitationEmail) error {
	m.logger.Infow("Invitation email (not sent)",
		"to", msg.To,
		"subject", Subject(msg),
		"invite_url", msg.InviteURL,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}
