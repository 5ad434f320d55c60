package crypto

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	enc, err := NewEncryptorFromBase64(key)
	require.NoError(t, err)
	return enc
}

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{name: "valid key size", size: 32},
		{name: "too short", size: 16, wantErr: ErrInvalidKeySize},
		{name: "too long", size: 64, wantErr: ErrInvalidKeySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(make([]byte, tt.size))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, enc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, enc)
		})
	}
}

func TestNewEncryptorFromBase64(t *testing.T) {
	t.Run("trailing newline is ignored", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(make([]byte, 32)) + "\n"
		enc, err := NewEncryptorFromBase64(encoded)
		require.NoError(t, err)
		assert.NotNil(t, enc)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := NewEncryptorFromBase64("not-valid-base64!!!")
		assert.Error(t, err)
	})
}

func TestNewEncryptorFromSecret(t *testing.T) {
	t.Run("base64 key is used as is", func(t *testing.T) {
		key := make([]byte, KeySize)
		key[0] = 7
		fromKey, err := NewEncryptor(key)
		require.NoError(t, err)
		fromSecret, err := NewEncryptorFromSecret(base64.StdEncoding.EncodeToString(key))
		require.NoError(t, err)

		sealed, err := fromKey.Encrypt("hello")
		require.NoError(t, err)
		opened, err := fromSecret.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "hello", opened)
	})

	t.Run("passphrase derives a stable key", func(t *testing.T) {
		first, err := NewEncryptorFromSecret("correct horse battery staple")
		require.NoError(t, err)
		second, err := NewEncryptorFromSecret("correct horse battery staple")
		require.NoError(t, err)

		sealed, err := first.Encrypt("hello")
		require.NoError(t, err)
		opened, err := second.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "hello", opened)

		other, err := NewEncryptorFromSecret("another long passphrase")
		require.NoError(t, err)
		_, err = other.Decrypt(sealed)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("short passphrase is rejected", func(t *testing.T) {
		_, err := NewEncryptorFromSecret("invalid-key")
		assert.ErrorIs(t, err, ErrWeakPassphrase)
	})

	t.Run("derived key has key size", func(t *testing.T) {
		assert.Len(t, DeriveKey("correct horse battery staple"), KeySize)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	enc := newTestEncryptor(t)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := enc.Encrypt("eyJhbGciOiJIUzI1NiJ9.token")
		require.NoError(t, err)
		assert.NotContains(t, sealed, "token")

		plain, err := enc.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.token", plain)
	})

	t.Run("nonce differs per call", func(t *testing.T) {
		a, err := enc.Encrypt("same")
		require.NoError(t, err)
		b, err := enc.Encrypt("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty string", func(t *testing.T) {
		sealed, err := enc.Encrypt("")
		require.NoError(t, err)
		assert.Empty(t, sealed)

		plain, err := enc.Decrypt("")
		require.NoError(t, err)
		assert.Empty(t, plain)
	})

	t.Run("wrong key", func(t *testing.T) {
		sealed, err := enc.Encrypt("secret")
		require.NoError(t, err)

		_, err = newTestEncryptor(t).Decrypt(sealed)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("short ciphertext", func(t *testing.T) {
		_, err := enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("abc")))
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})
}

func TestLoadOrCreateKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "token.key")

	key, created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, key, again)

	_, err = NewEncryptorFromBase64(again)
	assert.NoError(t, err)
}
