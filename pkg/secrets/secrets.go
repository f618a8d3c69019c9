package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the required length in bytes for both the application key and
// the scope key (AES-256).
const KeySize = 32

// hkdfInfo binds derived keys to this package's encryption format so the
// same key material cannot be reused for a different purpose.
var hkdfInfo = []byte("renderkit/secrets:aes-256-gcm:v1")

// GenerateKey returns a new cryptographically secure 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// EncryptString encrypts plaintext with a key derived from the application
// and scope keys, returning a base64-encoded ciphertext safe for storage.
func EncryptString(appKey, scopeKey []byte, plaintext string) (string, error) {
	ciphertext, err := EncryptBytes(appKey, scopeKey, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString. It fails with ErrDecryptionFailed if
// the ciphertext was tampered with or encrypted under different keys.
func DecryptString(appKey, scopeKey []byte, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plaintext, err := DecryptBytes(appKey, scopeKey, raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes encrypts data using AES-256-GCM with a unique random nonce.
// The nonce is prepended to the returned ciphertext.
func EncryptBytes(appKey, scopeKey, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(appKey, scopeKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBytes reverses EncryptBytes, authenticating the ciphertext in the
// process.
func DecryptBytes(appKey, scopeKey, data []byte) ([]byte, error) {
	gcm, err := newGCM(appKey, scopeKey)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// newGCM validates both keys, derives the compound encryption key and wraps
// it in an AEAD. The derived key is wiped once the cipher holds its own copy
// of the expanded schedule.
func newGCM(appKey, scopeKey []byte) (cipher.AEAD, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	if len(scopeKey) != KeySize {
		return nil, ErrInvalidScopeKey
	}

	derived, err := deriveKey(appKey, scopeKey)
	if err != nil {
		return nil, err
	}
	defer wipe(derived)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return gcm, nil
}

// deriveKey combines the application and scope keys through HKDF-SHA256 so
// that neither key alone can decrypt stored data.
func deriveKey(appKey, scopeKey []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(appKey)+len(scopeKey))
	ikm = append(ikm, appKey...)
	ikm = append(ikm, scopeKey...)
	defer wipe(ikm)

	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, hkdfInfo), derived); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return derived, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
