package federation

import "errors"

var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrExchangeCodeFailed    = errors.New("failed to exchange authorization code for token")
	ErrFetchProfileFailed    = errors.New("failed to fetch user profile from provider")
)
