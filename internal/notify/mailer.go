package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/addrbook/addrbook/pkg/slogx"

	"github.com/wneessen/go-mail"
)

// MailerConfig carries the SMTP settings for the outgoing mailer.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address stamped on every message.
	From string
}

// Mailer sends account mail over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
}

// NewMailer builds an SMTP-backed Notifier. The connection is dialed per
// message, not held open.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From}, nil
}

func (m *Mailer) SendConfirmation(ctx context.Context, email, username, link string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome! Please confirm your email address by opening the link below:\n\n%s\n\nThe link is valid for 7 days. If you did not sign up, ignore this mail.\n",
		username, link)
	m.send(ctx, email, "Confirm your email", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, username, link string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nThe link expires in a few minutes. If you did not request this, ignore this mail.\n",
		username, link)
	m.send(ctx, email, "Reset your password", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) {
	l := slogx.FromContext(ctx)

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		l.Error("mail from address", slog.String("error", err.Error()))
		return
	}
	if err := msg.To(to); err != nil {
		l.Error("mail to address", slog.String("error", err.Error()))
		return
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		l.Error("mail delivery failed",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return
	}

	l.Info("mail sent", slog.String("to", to), slog.String("subject", subject))
}
