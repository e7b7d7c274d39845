package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-engine/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	role := domain.AgentRoleSupervisor

	token, expiresAt, err := tm.GenerateToken("ag-1", domain.SubjectTypeAgent, &role)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ag-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeAgent, claims.Subject)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.AgentRoleSupervisor, *claims.Role)
}

func TestTokenRoleOmittedForUsers(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, _, err := tm.GenerateToken("u-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
	assert.Nil(t, claims.Role)
}

func TestTokenTTLFloor(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)

	_, expiresAt, err := tm.GenerateToken("u-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken("u-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	tm := &TokenManager{secret: []byte("test-secret"), ttl: -time.Hour}

	token, _, err := tm.GenerateToken("u-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	claims := &Claims{
		SubjectID: "u-1",
		Subject:   domain.SubjectTypeUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsMissingSubject(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, _, err := tm.GenerateToken("", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing subject")
}

func TestPasswordHashAndCompare(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestPasswordCostFallsBackToDefault(t *testing.T) {
	hash, err := HashPassword("hunter2", 99)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
}
