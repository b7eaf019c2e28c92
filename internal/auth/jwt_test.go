package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	service, err := NewJWTService(testSecret, 15*time.Minute)
	require.NoError(t, err)
	return service
}

func TestNewJWTService(t *testing.T) {
	service := newTestJWTService(t)
	assert.NotNil(t, service)
	assert.Equal(t, 15*time.Minute, service.GetAccessTokenExpiry())
}

func TestNewJWTService_WeakSecret(t *testing.T) {
	service, err := NewJWTService("too-short", 15*time.Minute)

	assert.ErrorIs(t, err, ErrWeakSecret)
	assert.Nil(t, service)
}

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService(t)

	token, expiresAt, err := service.GenerateAccessToken("user-123", "test@example.com", RoleCustomer)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService(t)

	token, _, err := service.GenerateAccessToken("user-456", "test@example.com", RoleAdmin)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, "user-456", claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := newTestJWTService(t)
	issued := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issued }

	token, _, err := service.GenerateAccessToken("user-123", "test@example.com", RoleCustomer)
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(time.Hour) }
	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	service1, err := NewJWTService("secret-key-1-secret-key-1-secret-key-1", 15*time.Minute)
	require.NoError(t, err)
	service2, err := NewJWTService("secret-key-2-secret-key-2-secret-key-2", 15*time.Minute)
	require.NoError(t, err)

	token, _, err := service1.GenerateAccessToken("user-123", "test@example.com", RoleCustomer)
	require.NoError(t, err)

	claims, err := service2.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_WrongAlgorithm(t *testing.T) {
	service := newTestJWTService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user-123",
		Email:  "test@example.com",
		Role:   RoleCustomer,
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_SubjectOnly(t *testing.T) {
	service := newTestJWTService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "user-sub", claims.UserID)
	assert.False(t, claims.IsAdmin())
}

func TestJWTService_ValidateAccessToken_NoUser(t *testing.T) {
	service := newTestJWTService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}
