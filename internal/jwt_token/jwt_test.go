package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "authbroker/pkg/domain-errors"
)

func TestIssueAndValidate_RoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "authbroker", 7*24*time.Hour)

	credential, err := svc.Issue("user-1", "ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, credential.Token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), credential.ExpiresAt, time.Minute)

	claims, err := svc.ValidateToken(credential.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "authbroker", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssue_MissingSigningKeyIsFatal(t *testing.T) {
	svc := NewService("", "authbroker", time.Hour)

	_, err := svc.Issue("user-1", "ada@example.com")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	svc := NewService("test-signing-key", "authbroker", -time.Minute)

	credential, err := svc.Issue("user-1", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(credential.Token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsForeignSignature(t *testing.T) {
	issuing := NewService("key-a", "authbroker", time.Hour)
	validating := NewService("key-b", "authbroker", time.Hour)

	credential, err := issuing.Issue("user-1", "")
	require.NoError(t, err)

	_, err = validating.ValidateToken(credential.Token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", "authbroker", time.Hour)

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestMiddlewareAdapter_MapsClaims(t *testing.T) {
	svc := NewService("test-signing-key", "authbroker", time.Hour)
	adapter := NewMiddlewareAdapter(svc)

	credential, err := svc.Issue("user-1", "ada@example.com")
	require.NoError(t, err)

	claims, err := adapter.ValidateToken(credential.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = adapter.ValidateToken("garbage")
	require.Error(t, err)
}
