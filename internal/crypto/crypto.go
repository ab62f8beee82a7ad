package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/sirupsen/logrus"
)

// Cipher encrypts group credentials at rest. Failures never propagate to
// callers: both Encrypt and Decrypt return "" on any error, so a corrupted
// or foreign ciphertext behaves like a missing credential.
type Cipher struct {
	aead   cipher.AEAD
	logger *logrus.Logger
}

// NewCipher derives a 256-bit AES-GCM key from the configured secret.
func NewCipher(secret string, logger *logrus.Logger) (*Cipher, error) {
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead, logger: logger}, nil
}

// Encrypt returns the base64 ciphertext of plaintext, or "" if plaintext is
// empty or sealing fails.
func (c *Cipher) Encrypt(plaintext string) string {
	if plaintext == "" {
		return ""
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		c.logger.WithError(err).Error("Failed to generate nonce")
		return ""
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Returns "" for empty input, malformed base64,
// or an authentication failure.
func (c *Cipher) Decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}

	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		c.logger.WithError(err).Error("Failed to decode ciphertext")
		return ""
	}
	if len(raw) < c.aead.NonceSize() {
		c.logger.Error("Ciphertext shorter than nonce")
		return ""
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		c.logger.WithError(err).Error("Failed to decrypt credential")
		return ""
	}
	return string(plaintext)
}
