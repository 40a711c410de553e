package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func tokenErrorCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	return domainErr.Code
}

func TestTokenIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	token, exp, err := tm.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	subject, issuedAt, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
	assert.WithinDuration(t, time.Now(), issuedAt, 5*time.Second)
}

func TestTokenVerifyWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", 60).Issue("user-1")
	require.NoError(t, err)

	_, _, err = NewTokenManager("other", 60).Verify(token)
	require.Error(t, err)
	assert.Equal(t, "TOKEN_INVALID", tokenErrorCode(t, err))
}

func TestTokenVerifyExpired(t *testing.T) {
	tm := &TokenManager{secret: []byte("secret"), ttl: -time.Minute}
	token, _, err := tm.Issue("user-1")
	require.NoError(t, err)

	_, _, err = tm.Verify(token)
	require.Error(t, err)
	assert.Equal(t, "TOKEN_EXPIRED", tokenErrorCode(t, err))
}

func TestTokenVerifyGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	_, _, err := tm.Verify("not.a.token")
	require.Error(t, err)
	assert.Equal(t, "TOKEN_INVALID", tokenErrorCode(t, err))
}

func TestTokenManagerDefaultsTTL(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	assert.Equal(t, time.Hour, tm.TTL())
}
