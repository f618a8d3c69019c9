package keysession

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// tokenLength is the number of random bytes per token: 256 bits of entropy,
// base64url-encoded to 43 characters.
const tokenLength = 32

// Session is the decrypted view of a stored credential, returned by Get.
// The secret exists in plaintext only in this value; at rest it is encrypted.
type Session struct {
	// Token is the opaque identifier handed to collaborators in place of the
	// secret. Only a truncated prefix of it is safe to log.
	Token string

	// Provider the credential belongs to.
	Provider Provider

	// Secret is the provider credential (API key).
	Secret string

	// ProjectID is an optional provider-specific extra (e.g. a Vertex AI
	// project for Veo).
	ProjectID string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session is past its expiry.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// record is the internal at-rest representation: the secret stays encrypted
// until a successful Get.
type record struct {
	provider        Provider
	encryptedSecret string
	projectID       string
	createdAt       time.Time
	expiresAt       time.Time
}

func generateToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
