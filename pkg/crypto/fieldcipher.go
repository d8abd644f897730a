package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// FieldCipher encrypts confidential string columns at rest and derives a
// deterministic blind index so equality search works without decryption.
type FieldCipher struct {
	aead      cipher.AEAD
	indexKey  []byte
	keyLoaded bool
}

// NewFieldCipher derives the AES-GCM key and blind index secret from config.
// An empty key yields a disabled cipher that stores plaintext; this keeps
// development setups working but must never be used in production.
func NewFieldCipher(encryptionKey, blindIndexSecret string) (*FieldCipher, error) {
	fc := &FieldCipher{}
	if encryptionKey == "" {
		return fc, nil
	}

	key := sha256.Sum256([]byte(encryptionKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init field cipher gcm: %w", err)
	}

	fc.aead = aead
	fc.keyLoaded = true
	if blindIndexSecret == "" {
		blindIndexSecret = encryptionKey
	}
	fc.indexKey = []byte(blindIndexSecret)
	return fc, nil
}

// Enabled reports whether real encryption is configured.
func (fc *FieldCipher) Enabled() bool {
	return fc != nil && fc.keyLoaded
}

// Encrypt returns a base64 ciphertext with a random nonce prefix.
func (fc *FieldCipher) Encrypt(plaintext string) (string, error) {
	if !fc.Enabled() {
		return plaintext, nil
	}
	nonce := make([]byte, fc.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("field cipher nonce: %w", err)
	}
	sealed := fc.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (fc *FieldCipher) Decrypt(ciphertext string) (string, error) {
	if !fc.Enabled() || ciphertext == "" {
		return ciphertext, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("field cipher decode: %w", err)
	}
	nonceSize := fc.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("field cipher ciphertext too short")
	}
	plain, err := fc.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("field cipher open: %w", err)
	}
	return string(plain), nil
}

// BlindIndex derives a deterministic HMAC of the normalised value. Values are
// lowercased and trimmed so "Jane Doe" and " jane doe " collide on purpose.
func (fc *FieldCipher) BlindIndex(value string) string {
	if value == "" {
		return ""
	}
	normalised := strings.ToLower(strings.TrimSpace(value))
	key := fc.indexKey
	if len(key) == 0 {
		key = []byte("dev_blind_index")
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(normalised))
	return hex.EncodeToString(mac.Sum(nil))
}
