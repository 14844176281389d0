package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Cipher encrypts individual record fields with AES-GCM. The nonce is
// prepended to the ciphertext.
type Cipher struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

// NewCipher builds a field cipher from a 16 or 32 byte key.
func NewCipher(key []byte, baseLogger zerolog.Logger) (*Cipher, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, errors.New("encryption key must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Cipher{gcm: gcm, log: baseLogger.With().Str("component", "field_cipher").Logger()}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		c.log.Error().Err(err).Msg("failed to generate nonce")
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext is too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to decrypt field")
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString encrypts s and returns base64 text suitable for a text column.
// The empty string stays empty.
func (c *Cipher) EncryptString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	sealed, err := c.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode field: %w", err)
	}
	plain, err := c.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
