package auth

import (
	"testing"
	"time"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestManager_TokenRoundTrip(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Hour, bcrypt.MinCost)

	token, expiresAt, err := m.IssueToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	userID, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Minute, bcrypt.MinCost)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.IssueToken(1)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseToken(token)
	require.ErrorIs(t, err, e.ErrUnauthorized)
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	issuer := NewManager("0123456789abcdef", time.Hour, bcrypt.MinCost)
	verifier := NewManager("fedcba9876543210", time.Hour, bcrypt.MinCost)

	token, _, err := issuer.IssueToken(1)
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.ErrorIs(t, err, e.ErrUnauthorized)

	_, err = verifier.ParseToken("garbage")
	require.ErrorIs(t, err, e.ErrUnauthorized)
}

func TestManager_Password(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Hour, bcrypt.MinCost)

	hash, err := m.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	require.NoError(t, m.ComparePassword(hash, "s3cret"))
	require.ErrorIs(t, m.ComparePassword(hash, "wrong"), e.ErrInvalidCredentials)
}
