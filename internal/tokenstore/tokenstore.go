// Package tokenstore keeps the bearer token for the books server in the
// local_storage database, sealed with AES-256-GCM.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/mrlokans/foxtales/internal/crypto"
	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/entities"
)

const (
	// EnvEncryptionKey is the environment variable for the encryption key
	EnvEncryptionKey = "TOKEN_ENCRYPTION_KEY"

	// DefaultKeyFileName is the key file created inside the data directory
	DefaultKeyFileName = ".token-key"
)

var ErrEmptyToken = errors.New("token must not be empty")

// Config holds configuration for the token store
type Config struct {
	// EncryptionKey is a base64-encoded 32-byte key or a passphrase.
	// If empty, the environment and then the key file are tried.
	EncryptionKey string

	// KeyFilePath defaults to DefaultKeyFileName inside the data directory
	KeyFilePath string
}

// TokenStore reads and writes the auth token.
type TokenStore struct {
	items     *database.Table
	encryptor *crypto.Encryptor
}

// TokenInfo describes the stored token without revealing it.
type TokenInfo struct {
	Present   bool       `json:"present"`
	Opaque    bool       `json:"opaque"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

// New creates a token store backed by the local_storage database of store.
func New(store *database.Store, cfg Config) (*TokenStore, error) {
	key, err := resolveEncryptionKey(store.Dir(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	encryptor, err := crypto.NewEncryptorFromSecret(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	return &TokenStore{
		items:     store.Table(entities.LocalStorageDatabase, entities.LocalStorageTable),
		encryptor: encryptor,
	}, nil
}

func resolveEncryptionKey(dataDir string, cfg Config) (string, error) {
	if cfg.EncryptionKey != "" {
		return cfg.EncryptionKey, nil
	}

	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return envKey, nil
	}

	path := KeyFilePath(dataDir, cfg.KeyFilePath)
	key, created, err := crypto.LoadOrCreateKeyFile(path)
	if err != nil {
		return "", err
	}
	if created {
		log.Printf("Generated new token encryption key at %s", path)
	}
	return key, nil
}

// KeyFilePath returns the key file used when no key is configured.
func KeyFilePath(dataDir, customPath string) string {
	if customPath != "" {
		return customPath
	}
	return filepath.Join(dataDir, DefaultKeyFileName)
}

// Token returns the stored token, or "" when none is stored.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	sealed, err := database.LoadOr(ctx, s.items, entities.SettingKeyAuthToken, "")
	if err != nil {
		return "", fmt.Errorf("failed to load auth token: %w", err)
	}

	token, err := s.encryptor.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt auth token: %w", err)
	}
	return token, nil
}

// SetToken replaces the stored token.
func (s *TokenStore) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return ErrEmptyToken
	}

	sealed, err := s.encryptor.Encrypt(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt auth token: %w", err)
	}
	if err := s.items.Put(ctx, entities.SettingKeyAuthToken, sealed); err != nil {
		return fmt.Errorf("failed to save auth token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Later requests go out unauthenticated.
func (s *TokenStore) ClearToken(ctx context.Context) error {
	if err := s.items.Delete(ctx, entities.SettingKeyAuthToken); err != nil {
		return fmt.Errorf("failed to clear auth token: %w", err)
	}
	return nil
}

// Describe reports whether a token is stored and, for JWTs, its subject and
// expiry. The signature is not verified; only the server can do that.
func (s *TokenStore) Describe(ctx context.Context, now time.Time) (*TokenInfo, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return &TokenInfo{}, nil
	}
	return describe(token, now), nil
}

func describe(token string, now time.Time) *TokenInfo {
	info := &TokenInfo{Present: true}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		info.Opaque = true
		return info
	}

	info.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		expires := claims.ExpiresAt.Time.UTC()
		info.ExpiresAt = &expires
		info.Expired = !now.Before(expires)
	}
	return info
}
