// Package secrets provides AES-256-GCM encryption with compound key
// derivation for storing credentials at rest.
//
// Encryption keys are never used directly: the application key (global
// secret) and a scope key (component- or tenant-specific secret) are combined
// through HKDF-SHA256 into the actual cipher key. Leaking either key alone is
// not sufficient to decrypt stored data.
//
// # Usage
//
//	appKey, err := secrets.GenerateKey()
//	if err != nil {
//		log.Fatal(err)
//	}
//	scopeKey, err := secrets.GenerateKey()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ciphertext, err := secrets.EncryptString(appKey, scopeKey, "provider api key")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plaintext, err := secrets.DecryptString(appKey, scopeKey, ciphertext)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// EncryptBytes and DecryptBytes provide the same operations for binary
// payloads without the base64 round trip.
//
// # Properties
//
//   - AES-256-GCM authenticated encryption: tampering is detected on decrypt.
//   - A fresh random nonce per encryption, prepended to the ciphertext.
//   - Both keys must be exactly 32 bytes; generate them with GenerateKey and
//     store them hex-encoded in configuration.
//   - Derived key material is wiped after each operation.
package secrets
