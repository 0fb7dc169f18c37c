package mailer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogMailer implements the services.EmailSender collaborator by
// logging the dispatch. Production swaps in the transactional email
// service; callers treat dispatch as fire-and-forget either way.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendWelcome(ctx context.Context, email, username string) error {
	log.Info().Str("email", email).Str("username", username).Msg("welcome email dispatched")
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	log.Info().Str("email", email).Msg("password reset email dispatched")
	return nil
}
