package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

func newAuthFixture(t *testing.T) (*AuthService, *store.ReporterStore) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	reporters := store.NewReporterStore()
	jwt := utils.NewJWTService("test-secret", time.Hour)
	return NewAuthService(reporters, jwt, clock, &seqIDGen{}), reporters
}

func TestRegisterAndLogin(t *testing.T) {
	svc, reporters := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{
		Username: "asha",
		Email:    "Asha@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.TokenTyp)
	assert.Equal(t, models.LevelNew, resp.Reporter.Level)

	// The stored profile keeps the hash, never the password.
	stored, ok := reporters.Get(resp.Reporter.ID)
	require.True(t, ok)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "correct horse")
	assert.Equal(t, "asha@example.com", stored.Email)

	// Email lookup is case-insensitive on login.
	login, err := svc.Login(ctx, models.LoginRequest{Email: "ASHA@example.COM", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.Reporter.ID, login.Reporter.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	req := models.RegisterRequest{Username: "asha", Email: "asha@example.com", Password: "correct horse"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	req.Username = "other"
	_, err = svc.Register(ctx, req)
	assert.True(t, utils.HasErrorCode(err, utils.ErrCodeConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "asha", Email: "asha@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "asha@example.com", Password: "wrong"})
	assert.True(t, utils.HasErrorCode(err, utils.ErrCodeUnauthorized))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.True(t, utils.HasErrorCode(err, utils.ErrCodeUnauthorized))
}

func TestIssuedTokenValidates(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Username: "asha", Email: "asha@example.com", Password: "correct horse"})
	require.NoError(t, err)

	jwt := utils.NewJWTService("test-secret", time.Hour)
	claims, err := jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Reporter.ID, claims.ReporterID)
	assert.Equal(t, "asha", claims.Username)
	assert.Equal(t, "access", claims.TokenType)

	_, err = utils.NewJWTService("other-secret", time.Hour).ValidateToken(resp.Token)
	assert.Error(t, err)
}
