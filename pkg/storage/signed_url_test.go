package storage

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedTokenRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("packet-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "tenant-1/case-1/job-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "tenant-1/case-1/job-1.pdf", relPath)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedTokenExpiry(t *testing.T) {
	signer := NewSignedURLSigner("packet-secret", 10*time.Millisecond)

	token, _, err := signer.Generate("job-1", "tenant-1/case-1/job-1.pdf")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// cleanup resolves paths for lapsed links
	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "tenant-1/case-1/job-1.pdf", relPath)
}

func TestSignedTokenTamperedSignatureRejected(t *testing.T) {
	signer := NewSignedURLSigner("packet-secret", time.Hour)

	token, _, err := signer.Generate("job-1", "tenant-1/case-1/job-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte("tenant-1/case-1/other.pdf"))
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedTokenWrongSecretRejected(t *testing.T) {
	signer := NewSignedURLSigner("packet-secret", time.Hour)
	other := NewSignedURLSigner("different-secret", time.Hour)

	token, _, err := signer.Generate("job-1", "tenant-1/case-1/job-1.pdf")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
