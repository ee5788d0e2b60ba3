package identity

import (
	"testing"
	"time"

	"projecthub/internal/apperr"
	"projecthub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = &models.User{ID: "user-1", Email: "admin@demo.com", Role: models.RoleAdmin}

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)

	token, err := svc.Issue(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, "admin@demo.com", actor.Email)
	assert.Equal(t, models.RoleAdmin, actor.Role)
}

func TestVerifyExpired(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Issue(testUser)
	require.NoError(t, err)

	_, err = NewTokenService("test-signing-key", time.Hour).Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	token, err := NewTokenService("other-key", time.Hour).Issue(testUser)
	require.NoError(t, err)

	_, err = NewTokenService("test-signing-key", time.Hour).Verify(token)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestVerifyRejectsGarbageAndNone(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)

	_, err := svc.Verify("not-a-token")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)
	token, err := svc.Issue(&models.User{ID: "user-2", Email: "x@demo.com", Role: "ROOT"})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("Admin@123")
	require.NoError(t, err)

	assert.NotEqual(t, "Admin@123", hash)
	assert.True(t, h.Compare(hash, "Admin@123"))
	assert.False(t, h.Compare(hash, "admin@123"))
}
