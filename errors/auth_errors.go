package errors

import (
	"fmt"
	"net/http"
)

// AuthError is the client-facing error taxonomy. Message is the only
// field that reaches a response body; fine-grained internal reasons
// stay in logs and audit events.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Taxonomy codes.
const (
	CodeAuthenticationFailed = "authentication_failed"
	CodeAccountLocked        = "account_locked"
	CodeTokenInvalid         = "token_invalid"
	CodeFederationConflict   = "federation_conflict"
	CodeValidationFailed     = "validation_failed"
	CodeServerError          = "server_error"
)

// Credential failures never reveal which field was wrong.
func NewAuthenticationFailed() *AuthError {
	return &AuthError{
		Code:    CodeAuthenticationFailed,
		Message: "Invalid username or password",
		Status:  http.StatusUnauthorized,
	}
}

func NewAccountLocked(message string) *AuthError {
	return &AuthError{
		Code:    CodeAccountLocked,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NewTokenInvalid covers expired, blacklisted, malformed and
// already-rotated tokens alike. Rotation conflicts are deliberately
// indistinguishable from any other invalid token so an attacker gains
// no replay oracle.
func NewTokenInvalid() *AuthError {
	return &AuthError{
		Code:    CodeTokenInvalid,
		Message: "Invalid or expired token",
		Status:  http.StatusUnauthorized,
	}
}

// NewRefreshTokenInvalid is the rotation-path variant of
// NewTokenInvalid; one undifferentiated message for "already used",
// "never existed" and "expired".
func NewRefreshTokenInvalid() *AuthError {
	return &AuthError{
		Code:    CodeTokenInvalid,
		Message: "invalid or expired refresh token",
		Status:  http.StatusUnauthorized,
	}
}

// NewFederationConflict is the one descriptive case in the taxonomy:
// it drives an interactive user choice, so it may name the other role.
func NewFederationConflict(message string) *AuthError {
	return &AuthError{
		Code:    CodeFederationConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

func NewValidationFailed(message string) *AuthError {
	return &AuthError{
		Code:    CodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewServerError is the surfaced form of a Fatal: full detail goes to
// the log, the client sees only this.
func NewServerError() *AuthError {
	return &AuthError{
		Code:    CodeServerError,
		Message: "An unexpected error occurred",
		Status:  http.StatusInternalServerError,
	}
}
