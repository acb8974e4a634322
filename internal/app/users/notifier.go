package users

import (
	"context"

	"songbook/internal/logging"
	"songbook/internal/store"
)

// LogNotifier writes tokens to the log. It stands in for a mail sender.
type LogNotifier struct{}

// PasswordReset logs the reset token for u.
func (LogNotifier) PasswordReset(ctx context.Context, u store.User, token string) {
	logging.WithContext(ctx).Info().
		Int64("target_user_id", u.ID).
		Str("reset_token", token).
		Msg("user has forgot their password")
}

// VerificationRequested logs the verification token for u.
func (LogNotifier) VerificationRequested(ctx context.Context, u store.User, token string) {
	logging.WithContext(ctx).Info().
		Int64("target_user_id", u.ID).
		Str("verification_token", token).
		Msg("verification requested")
}
