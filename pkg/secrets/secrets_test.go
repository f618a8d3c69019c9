package secrets_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renderkit/pkg/secrets"
)

func testKeys(t *testing.T) (appKey, scopeKey []byte) {
	t.Helper()

	appKey, err := secrets.GenerateKey()
	require.NoError(t, err)
	scopeKey, err = secrets.GenerateKey()
	require.NoError(t, err)
	return appKey, scopeKey
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	t.Run("returns 32 byte key", func(t *testing.T) {
		t.Parallel()

		key, err := secrets.GenerateKey()
		require.NoError(t, err)
		assert.Len(t, key, secrets.KeySize)
	})

	t.Run("keys are unique", func(t *testing.T) {
		t.Parallel()

		k1, err := secrets.GenerateKey()
		require.NoError(t, err)
		k2, err := secrets.GenerateKey()
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)
	})
}

func TestEncryptDecryptString(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		ciphertext, err := secrets.EncryptString(appKey, scopeKey, "sk-provider-credential")
		require.NoError(t, err)
		assert.NotEqual(t, "sk-provider-credential", ciphertext)

		plaintext, err := secrets.DecryptString(appKey, scopeKey, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "sk-provider-credential", plaintext)
	})

	t.Run("empty plaintext round trip", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		ciphertext, err := secrets.EncryptString(appKey, scopeKey, "")
		require.NoError(t, err)

		plaintext, err := secrets.DecryptString(appKey, scopeKey, ciphertext)
		require.NoError(t, err)
		assert.Empty(t, plaintext)
	})

	t.Run("unique nonce per encryption", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		c1, err := secrets.EncryptString(appKey, scopeKey, "same input")
		require.NoError(t, err)
		c2, err := secrets.EncryptString(appKey, scopeKey, "same input")
		require.NoError(t, err)
		assert.NotEqual(t, c1, c2)
	})

	t.Run("wrong scope key fails", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)
		otherScope, err := secrets.GenerateKey()
		require.NoError(t, err)

		ciphertext, err := secrets.EncryptString(appKey, scopeKey, "payload")
		require.NoError(t, err)

		_, err = secrets.DecryptString(appKey, otherScope, ciphertext)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("wrong app key fails", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)
		otherApp, err := secrets.GenerateKey()
		require.NoError(t, err)

		ciphertext, err := secrets.EncryptString(appKey, scopeKey, "payload")
		require.NoError(t, err)

		_, err = secrets.DecryptString(otherApp, scopeKey, ciphertext)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("invalid base64 ciphertext", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		_, err := secrets.DecryptString(appKey, scopeKey, "not-base64!!!")
		assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
	})
}

func TestEncryptDecryptBytes(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)
		data := []byte{0x00, 0x01, 0xff, 0x7f, 0x80}

		encrypted, err := secrets.EncryptBytes(appKey, scopeKey, data)
		require.NoError(t, err)

		decrypted, err := secrets.DecryptBytes(appKey, scopeKey, encrypted)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, decrypted))
	})

	t.Run("tampered ciphertext detected", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		encrypted, err := secrets.EncryptBytes(appKey, scopeKey, []byte("authentic"))
		require.NoError(t, err)

		encrypted[len(encrypted)-1] ^= 0x01

		_, err = secrets.DecryptBytes(appKey, scopeKey, encrypted)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		_, err := secrets.DecryptBytes(appKey, scopeKey, []byte{0x01, 0x02, 0x03})
		assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
	})
}

func TestKeyValidation(t *testing.T) {
	t.Parallel()

	t.Run("short app key", func(t *testing.T) {
		t.Parallel()

		_, scopeKey := testKeys(t)

		_, err := secrets.EncryptString([]byte("short"), scopeKey, "data")
		assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)
	})

	t.Run("nil app key", func(t *testing.T) {
		t.Parallel()

		_, scopeKey := testKeys(t)

		_, err := secrets.EncryptString(nil, scopeKey, "data")
		assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)
	})

	t.Run("short scope key", func(t *testing.T) {
		t.Parallel()

		appKey, _ := testKeys(t)

		_, err := secrets.EncryptString(appKey, []byte("short"), "data")
		assert.ErrorIs(t, err, secrets.ErrInvalidScopeKey)
	})

	t.Run("validation applies to decrypt", func(t *testing.T) {
		t.Parallel()

		appKey, scopeKey := testKeys(t)

		ciphertext, err := secrets.EncryptString(appKey, scopeKey, "data")
		require.NoError(t, err)

		_, err = secrets.DecryptString(appKey[:16], scopeKey, ciphertext)
		assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)
	})
}
