// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides conversation persistence for parley.
//
// This file contains tests for history encryption at rest:
// - Key derivation (PBKDF2-SHA-256)
// - AES-256-GCM encryption/decryption
// - Nonce uniqueness
// - The ENC: on-disk format
package store

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testKey returns a random 256-bit key.
func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

// =============================================================================
// KEY DERIVATION TESTS
// =============================================================================

// TestCrypt_KeyDerivation tests that PBKDF2 key derivation is deterministic
// and sensitive to both password and salt.
func TestCrypt_KeyDerivation(t *testing.T) {
	password := "testpassword123"
	salt := []byte("test_salt_value!")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)
	require.True(t, bytes.Equal(key1, key2), "Same password/salt should derive same key")
	require.Equal(t, KeySize, len(key1), "Derived key should be %d bytes", KeySize)

	key3 := DeriveKey(password, []byte("different_salt!!"))
	require.False(t, bytes.Equal(key1, key3), "Different salt should derive different key")

	key4 := DeriveKey("differentpassword", salt)
	require.False(t, bytes.Equal(key1, key4), "Different password should derive different key")
}

// TestCrypt_GenerateSalt tests salt generation.
func TestCrypt_GenerateSalt(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	require.Equal(t, SaltSize, len(salt), "Salt should be %d bytes", SaltSize)

	// Generate multiple salts and ensure they're unique
	salts := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := GenerateSalt()
		require.NoError(t, err)
		require.False(t, salts[string(s)], "Duplicate salt generated")
		salts[string(s)] = true
	}
}

// =============================================================================
// CRYPTER TESTS
// =============================================================================

// TestCrypt_NewCrypterRejectsBadKeySize tests key length validation.
func TestCrypt_NewCrypterRejectsBadKeySize(t *testing.T) {
	_, err := NewCrypter([]byte("too short"))
	require.Error(t, err, "Short key should be rejected")

	_, err = NewCrypter(make([]byte, 64))
	require.Error(t, err, "Long key should be rejected")

	_, err = NewCrypter(testKey(t))
	require.NoError(t, err)
}

// TestCrypt_RoundTrip tests basic encryption and decryption.
func TestCrypt_RoundTrip(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	plaintext := []byte("sensitive conversation that needs protection")

	ciphertext, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext, "Ciphertext should differ from plaintext")
	require.Greater(t, len(ciphertext), len(plaintext), "Ciphertext carries nonce and tag overhead")

	decrypted, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted, "Decrypted data should match original")
}

// TestCrypt_NonceUniqueness tests that each encryption uses a fresh nonce.
func TestCrypt_NonceUniqueness(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	plaintext := []byte("same input")

	ct1, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	ct2, err := c.Encrypt(plaintext)
	require.NoError(t, err)

	require.False(t, bytes.Equal(ct1, ct2), "Same plaintext must not produce same ciphertext")
	require.False(t, bytes.Equal(ct1[:NonceSize], ct2[:NonceSize]), "Nonces must be unique")
}

// TestCrypt_TamperDetection tests that GCM rejects modified ciphertext.
func TestCrypt_TamperDetection(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	ciphertext, err := c.Encrypt([]byte("protect me"))
	require.NoError(t, err)

	// Flip one bit in the body
	ciphertext[len(ciphertext)-1] ^= 0x01

	_, err = c.Decrypt(ciphertext)
	require.ErrorIs(t, err, ErrDecryptionFailed, "Tampered ciphertext should fail authentication")
}

// TestCrypt_ShortCiphertext tests rejection of truncated input.
func TestCrypt_ShortCiphertext(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	_, err = c.Decrypt([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}

// TestCrypt_WrongKey tests that decryption fails with a different key.
func TestCrypt_WrongKey(t *testing.T) {
	c1, err := NewCrypter(testKey(t))
	require.NoError(t, err)
	c2, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	ciphertext, err := c1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = c2.Decrypt(ciphertext)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

// =============================================================================
// STRING FORMAT TESTS
// =============================================================================

// TestCrypt_StringFormat tests the ENC: prefixed string encoding.
func TestCrypt_StringFormat(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	enc, err := c.EncryptString(`{"title":"hello"}`)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(enc, EncryptedPrefix), "Encrypted string should carry the ENC: prefix")
	require.True(t, IsEncrypted(enc))
	require.NotContains(t, enc, "hello", "Plaintext must not appear in the encoded form")

	dec, err := c.DecryptString(enc)
	require.NoError(t, err)
	require.Equal(t, `{"title":"hello"}`, dec)
}

// TestCrypt_DecryptStringPassthrough tests that unencrypted strings pass through.
func TestCrypt_DecryptStringPassthrough(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	plain := `{"not":"encrypted"}`
	require.False(t, IsEncrypted(plain))

	out, err := c.DecryptString(plain)
	require.NoError(t, err)
	require.Equal(t, plain, out)
}

// TestCrypt_DecryptStringBadBase64 tests malformed encoded payloads.
func TestCrypt_DecryptStringBadBase64(t *testing.T) {
	c, err := NewCrypter(testKey(t))
	require.NoError(t, err)

	_, err = c.DecryptString(EncryptedPrefix + "!!not base64!!")
	require.Error(t, err)
}

// =============================================================================
// ENVIRONMENT KEY TESTS
// =============================================================================

// TestCrypt_FromEnvNoKey tests that an unset passphrase yields ErrNoKey.
func TestCrypt_FromEnvNoKey(t *testing.T) {
	t.Setenv(HistoryKeyEnv, "")

	_, err := FromEnv(t.TempDir())
	require.ErrorIs(t, err, ErrNoKey)
}

// TestCrypt_FromEnvCreatesAndReusesSalt tests that the salt file persists
// across runs so the same passphrase keeps decrypting old history.
func TestCrypt_FromEnvCreatesAndReusesSalt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HistoryKeyEnv, "correct horse battery staple")

	c1, err := FromEnv(dir)
	require.NoError(t, err)

	saltPath := filepath.Join(dir, saltFileName)
	info, err := os.Stat(saltPath)
	require.NoError(t, err, "FromEnv should create the salt file")
	require.Equal(t, int64(SaltSize), info.Size())

	enc, err := c1.EncryptString("carried across runs")
	require.NoError(t, err)

	// A second crypter from the same env and dir must reuse the salt
	c2, err := FromEnv(dir)
	require.NoError(t, err)

	dec, err := c2.DecryptString(enc)
	require.NoError(t, err)
	require.Equal(t, "carried across runs", dec)
}

// TestCrypt_ZeroBytes tests the key wiping helper.
func TestCrypt_ZeroBytes(t *testing.T) {
	b := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	ZeroBytes(b)
	require.Equal(t, []byte{0, 0, 0, 0}, b)
}
