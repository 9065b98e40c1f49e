// internal/crypto/crypto.go (ChaCha20-Poly1305 at-rest encryption)
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the size of the symmetric key in bytes (256 bits).
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the size of the per-message nonce in bytes (96 bits).
	NonceSize = chacha20poly1305.NonceSize

	idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrDecryptionFailed covers both tampered ciphertext and a wrong key or
// nonce; callers never get partial plaintext.
var ErrDecryptionFailed = errors.New("decryption failed")

// Cipher performs authenticated encryption of secret payloads under a single
// process-wide key. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// ciphertext (including the 16-byte tag) and the nonce separately. The nonce
// is never caller-supplied; reuse under the same key breaks confidentiality.
func (c *Cipher) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce generation failed: %w", err)
	}
	ciphertext = c.aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext produced by Encrypt. Any authentication or
// framing failure is reported as ErrDecryptionFailed.
func (c *Cipher) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return key, nil
}

// EncodeKey renders a key for operator capture (base64, standard encoding).
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// ParseKey decodes a base64 key and checks its length.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key encoding: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// HashPassword returns a hex SHA-256 digest of the access password. The
// digest is used only for equality comparison, never for key derivation.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares a candidate password against a stored digest in
// constant time.
func VerifyPassword(digest, candidate string) bool {
	h := HashPassword(candidate)
	return subtle.ConstantTimeCompare([]byte(h), []byte(digest)) == 1
}

// GenerateID produces an unguessable identifier of n alphanumeric symbols
// drawn uniformly from a 62-character alphabet using crypto/rand. Eight
// symbols give a ~2.2e14 space; uniqueness is still enforced by the store.
func GenerateID(n int) (string, error) {
	id := make([]byte, n)
	// Rejection sampling keeps the distribution uniform: 62*4 = 248 is the
	// largest multiple of 62 below 256.
	const limit = 248
	buf := make([]byte, n)
	filled := 0
	for filled < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("id generation failed: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			id[filled] = idAlphabet[int(b)%len(idAlphabet)]
			filled++
			if filled == n {
				break
			}
		}
	}
	return string(id), nil
}
