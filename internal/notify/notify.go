// Package notify delivers account mail (confirmation links, password
// resets). Delivery is best effort: the auth flows fire these off in the
// background and never block a request on SMTP.
package notify

import "context"

// Notifier sends account mail. Implementations log failures instead of
// returning them; callers have already answered the HTTP request by the
// time delivery runs.
type Notifier interface {
	// SendConfirmation mails the email-confirmation link to a new or
	// still-unconfirmed account.
	SendConfirmation(ctx context.Context, email, username, link string)

	// SendPasswordReset mails a short-lived password reset link.
	SendPasswordReset(ctx context.Context, email, username, link string)
}
