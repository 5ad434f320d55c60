// Package crypto seals secrets kept in the local store with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// MinPassphraseLength is the shortest secret accepted in place of a key.
const MinPassphraseLength = 16

// passphraseSalt is fixed so that the same passphrase opens values sealed by
// earlier runs.
var passphraseSalt = []byte("foxtales/token-key/v1")

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes for AES-256")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
	ErrWeakPassphrase     = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
)

// Encryptor seals and opens base64 strings. The nonce is prepended to the
// sealed bytes.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a raw 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// NewEncryptorFromBase64 creates an Encryptor from a base64 key. Surrounding
// whitespace, as left by editors in key files, is ignored.
func NewEncryptorFromBase64(encodedKey string) (*Encryptor, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	return NewEncryptor(key)
}

// NewEncryptorFromSecret accepts either a base64 32-byte key or a
// passphrase. Passphrases are stretched with Argon2id.
func NewEncryptorFromSecret(secret string) (*Encryptor, error) {
	secret = strings.TrimSpace(secret)
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) == KeySize {
		return NewEncryptor(key)
	}
	if len(secret) < MinPassphraseLength {
		return nil, ErrWeakPassphrase
	}
	return NewEncryptor(DeriveKey(secret))
}

// DeriveKey stretches a passphrase into an AES-256 key.
func DeriveKey(passphrase string) []byte {
	return argon2.IDKey([]byte(passphrase), passphraseSalt, 1, 64*1024, 4, KeySize)
}

// Encrypt seals plaintext. The empty string stays empty.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *Encryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	size := e.aead.NonceSize()
	if len(sealed) < size {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := e.aead.Open(nil, sealed[:size], sealed[size:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey returns a new random key, base64 encoded.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// LoadOrCreateKeyFile reads the base64 key stored at path. When the file
// does not exist a new key is generated and written with mode 0600.
// The second return value reports whether the key was created.
func LoadOrCreateKeyFile(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("failed to read key file %s: %w", path, err)
	}

	key, err := GenerateKey()
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", false, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		return "", false, fmt.Errorf("failed to save encryption key to %s: %w", path, err)
	}
	return key, true, nil
}
