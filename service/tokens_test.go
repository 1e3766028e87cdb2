package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinaaaquil/readlog/backend/apperr"
)

func TestTokenService_RoundTrip(t *testing.T) {
	f := setupTest(t)

	access, err := f.tokens.IssueAccess("65a000000000000000000001", "alice")
	require.NoError(t, err)

	claims, err := f.tokens.Decode(access)
	require.NoError(t, err)
	assert.Equal(t, "65a000000000000000000001", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, f.clock.Now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenService_TokensAreUnique(t *testing.T) {
	f := setupTest(t)

	a, err := f.tokens.IssueRefresh("u", "alice")
	require.NoError(t, err)
	b, err := f.tokens.IssueRefresh("u", "alice")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, HashToken(a), HashToken(b))
}

func TestTokenService_Expired(t *testing.T) {
	f := setupTest(t)

	access, err := f.tokens.IssueAccess("u", "alice")
	require.NoError(t, err)

	f.clock.Advance(time.Hour + time.Second)
	_, err = f.tokens.Decode(access)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTokenService_RejectsTampering(t *testing.T) {
	f := setupTest(t)

	access, err := f.tokens.IssueAccess("u", "alice")
	require.NoError(t, err)

	other := NewTokenService("another-secret", time.Hour, time.Hour)
	other.now = f.clock.Now
	_, err = other.Decode(access)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = f.tokens.Decode("not-a-jwt")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = f.tokens.Decode(access + "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}
