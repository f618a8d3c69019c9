package secrets

import "errors"

var (
	// ErrInvalidAppKey is returned when the application key is not 32 bytes.
	ErrInvalidAppKey = errors.New("application key must be 32 bytes")
	// ErrInvalidScopeKey is returned when the scope key is not 32 bytes.
	ErrInvalidScopeKey = errors.New("scope key must be 32 bytes")
	// ErrKeyDerivationFailed is returned when HKDF key derivation fails.
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	// ErrEncryptionFailed is returned when AES-GCM encryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrDecryptionFailed is returned when AES-GCM decryption fails, including tampered ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrInvalidCiphertext is returned when the ciphertext is malformed or truncated.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)
