package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return hex.EncodeToString(make([]byte, 32))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("provider-access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "provider-access-token", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "provider-access-token", plaintext)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	enc, err := NewAESEncryptor(testKey())
	require.NoError(t, err)

	a, err := enc.Encrypt("same input")
	require.NoError(t, err)
	b, err := enc.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a fresh nonce must be used per encryption")
}

func TestDecryptRejectsTampering(t *testing.T) {
	enc, err := NewAESEncryptor(testKey())
	require.NoError(t, err)

	_, err = enc.Decrypt("not-base64!!!")
	assert.Error(t, err)

	ciphertext, err := enc.Encrypt("secret")
	require.NoError(t, err)
	_, err = enc.Decrypt(ciphertext[:len(ciphertext)-4] + "AAAA")
	assert.Error(t, err)
}

func TestNewAESEncryptorRejectsBadKeys(t *testing.T) {
	_, err := NewAESEncryptor("not-hex")
	assert.Error(t, err)

	_, err = NewAESEncryptor(hex.EncodeToString(make([]byte, 16)))
	assert.Error(t, err, "only 32-byte keys are accepted")
}
