package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Expiry: time.Hour, Issuer: "schedule"})

	token, expiresAt, err := svc.IssueToken("operator", models.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})
	_, _, err := svc.IssueToken("operator", models.UserRole("ROOT"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRejectsForeignSignature(t *testing.T) {
	issuer := NewAuthService(AuthConfig{Secret: "other"})
	token, _, err := issuer.IssueToken("operator", models.RoleViewer)
	require.NoError(t, err)

	_, err = NewAuthService(AuthConfig{Secret: "secret"}).ValidateToken(token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Expiry: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.IssueToken("operator", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
