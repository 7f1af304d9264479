package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestAESEncryptionService_NewInvalidKey(t *testing.T) {
	_, err := NewAESEncryptionService("shortkey")
	assert.Error(t, err)

	_, err = NewAESEncryptionService("0123456789abcdef")
	assert.ErrorContains(t, err, "32 bytes")
}

func TestAESEncryptionService_EncryptDecrypt(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	accountNumber := "000123456789"
	ciphertext, err := svc.Encrypt(accountNumber)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, accountNumber)

	decrypted, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, accountNumber, decrypted)
}

func TestAESEncryptionService_DifferentNonces(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	c1, err := svc.Encrypt("DE89370400440532013000")
	require.NoError(t, err)
	c2, err := svc.Encrypt("DE89370400440532013000")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "same plaintext should produce different ciphertext due to random nonce")
}

func TestAESEncryptionService_TamperedCiphertext(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("secret")
	require.NoError(t, err)

	last := ciphertext[len(ciphertext)-2:]
	replacement := "ff"
	if last == "ff" {
		replacement = "00"
	}
	_, err = svc.Decrypt(ciphertext[:len(ciphertext)-2] + replacement)
	assert.Error(t, err)
}

func TestAESEncryptionService_WrongKey(t *testing.T) {
	svc1, _ := NewAESEncryptionService(testAESKey)
	svc2, _ := NewAESEncryptionService("abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")

	ciphertext, err := svc1.Encrypt("1234567890")
	require.NoError(t, err)

	_, err = svc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestAESEncryptionService_InvalidCiphertext(t *testing.T) {
	svc, _ := NewAESEncryptionService(testAESKey)

	_, err := svc.Decrypt("not-hex-at-all!!!")
	assert.Error(t, err)

	_, err = svc.Decrypt("abcdef")
	assert.Error(t, err)
}
