package services

import "context"

// PasswordHasher is the password hashing collaborator. The default
// implementation lives in internal/auth.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil when the plaintext matches the hash.
	Verify(hashedPassword, password string) error
}

// Encryptor is the symmetric encryption collaborator used for at-rest
// secrets (stored provider tokens). The default implementation lives
// in internal/crypto.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// EmailSender is the email dispatch collaborator. Dispatch is
// fire-and-forget: a failure never rolls back the flow that asked for
// the email.
type EmailSender interface {
	SendWelcome(ctx context.Context, email, username string) error
	SendPasswordReset(ctx context.Context, email, resetToken string) error
}
