package notify

import (
	"context"
	"log/slog"

	"github.com/addrbook/addrbook/pkg/slogx"
)

// LogNotifier writes the links to the log instead of sending mail. Used in
// dev when no SMTP host is configured.
type LogNotifier struct{}

func (LogNotifier) SendConfirmation(ctx context.Context, email, username, link string) {
	slogx.FromContext(ctx).Info("confirmation mail suppressed, no smtp configured",
		slog.String("to", email),
		slog.String("username", username),
		slog.String("link", link))
}

func (LogNotifier) SendPasswordReset(ctx context.Context, email, username, link string) {
	slogx.FromContext(ctx).Info("reset mail suppressed, no smtp configured",
		slog.String("to", email),
		slog.String("username", username),
		slog.String("link", link))
}
