package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	fc, err := NewFieldCipher("test-key", "test-index")
	require.NoError(t, err)
	require.True(t, fc.Enabled())

	ciphertext, err := fc.Encrypt("Jane Doe")
	require.NoError(t, err)
	assert.NotEqual(t, "Jane Doe", ciphertext)

	plain, err := fc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", plain)
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	fc, err := NewFieldCipher("test-key", "test-index")
	require.NoError(t, err)

	first, err := fc.Encrypt("Jane Doe")
	require.NoError(t, err)
	second, err := fc.Encrypt("Jane Doe")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestBlindIndexDeterministicAndNormalised(t *testing.T) {
	fc, err := NewFieldCipher("test-key", "test-index")
	require.NoError(t, err)

	assert.Equal(t, fc.BlindIndex("Jane Doe"), fc.BlindIndex("  jane doe "))
	assert.NotEqual(t, fc.BlindIndex("Jane Doe"), fc.BlindIndex("John Doe"))
	assert.Empty(t, fc.BlindIndex(""))
}

func TestDisabledCipherPassesThrough(t *testing.T) {
	fc, err := NewFieldCipher("", "")
	require.NoError(t, err)
	require.False(t, fc.Enabled())

	ciphertext, err := fc.Encrypt("plaintext")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", ciphertext)

	plain, err := fc.Decrypt("plaintext")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", plain)
}
