package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/laundryhub/laundryhub-auth/domain"
)

// RelayResult is the payload a callback deposits for the opening page
// to collect. It is stored serialized so the mailbox never needs to
// understand its shape.
type RelayResult struct {
	Success              bool                  `json:"success"`
	Message              string                `json:"message,omitempty"`
	IsNewUser            bool                  `json:"isNewUser,omitempty"`
	PreRegistrationToken string                `json:"preRegistrationToken,omitempty"`
	Profile              *RelayProfile         `json:"profile,omitempty"`
	Conflict             *domain.PublicProfile `json:"conflictAccount,omitempty"`
	ConflictRole         string                `json:"conflictRole,omitempty"`
	Token                string                `json:"token,omitempty"`
	RefreshToken         string                `json:"refreshToken,omitempty"`
	Account              *domain.PublicProfile `json:"account,omitempty"`
}

// RelayProfile is the provider-profile subset shown on the
// registration completion form.
type RelayProfile struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// RelayService carries one OAuth handshake result from the provider
// callback to the page that opened the popup. Each session delivers at
// most once.
type RelayService struct {
	mailbox domain.MailboxRepository
}

func NewRelayService(mailbox domain.MailboxRepository) *RelayService {
	return &RelayService{mailbox: mailbox}
}

// NewSessionID mints the session half of the OAuth state parameter.
func (s *RelayService) NewSessionID() string {
	return uuid.NewString()
}

// EncodeState packs the role and session id into the state parameter.
func EncodeState(role domain.Role, sessionID string) string {
	return fmt.Sprintf("%s:%s", role, sessionID)
}

// ParseState splits a state parameter back into role and session id.
func ParseState(state string) (domain.Role, string, error) {
	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed state parameter")
	}
	role, ok := domain.ParseRole(parts[0])
	if !ok {
		return "", "", fmt.Errorf("unknown role %q in state parameter", parts[0])
	}
	return role, parts[1], nil
}

// Deposit stores the handshake result under its session id. A second
// deposit for the same session is an error, not an overwrite.
func (s *RelayService) Deposit(ctx context.Context, sessionID string, result *RelayResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding relay result: %w", err)
	}
	return s.mailbox.Create(ctx, &domain.MailboxEntry{
		SessionID: sessionID,
		Result:    payload,
	})
}

// Collect removes and returns the result for a session. A second
// collect, or a collect after the entry expired, reports not found.
func (s *RelayService) Collect(ctx context.Context, sessionID string) (json.RawMessage, error) {
	entry, err := s.mailbox.Consume(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(entry.Result), nil
}
