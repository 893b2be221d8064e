package service

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/testutil"
	"careerx_backend/internal/util"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func newAuthService(t *testing.T) (*AuthService, *fakeMailer) {
	t.Helper()
	db := testutil.NewDB(t)
	mailer := &fakeMailer{}
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "unit-test-secret", ExpireTime: time.Hour}}
	return NewAuthService(repository.NewUserRepository(db), repository.NewGormResetCodeStore(db), mailer, cfg), mailer
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Kiran", "Kiran@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "kiran@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.Password)

	_, err = svc.Register(ctx, "Kiran again", "kiran@example.com", "other")
	assert.True(t, errors.Is(err, util.ErrEmailRegistered))

	token, logged, err := svc.Login(ctx, "KIRAN@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	require.NotNil(t, logged.LastLogin)

	claims, err := util.ParseJWT(token, "unit-test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "kiran@example.com", claims.Email)

	_, _, err = svc.Login(ctx, "kiran@example.com", "wrong")
	assert.True(t, errors.Is(err, util.ErrInvalidCredentials))
	assert.Equal(t, util.KindUnauthorized, util.KindOf(err))

	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.True(t, errors.Is(err, util.ErrInvalidCredentials))
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, mailer := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Kiran", "kiran@example.com", "old-password")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "unknown@example.com"))
	assert.Empty(t, mailer.Sent(), "unknown emails are silently ignored")

	require.NoError(t, svc.ForgotPassword(ctx, "kiran@example.com"))
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	m := codePattern.FindStringSubmatch(sent[0].HTML)
	require.Len(t, m, 2)
	code := m[1]

	assert.True(t, errors.Is(svc.VerifyResetCode(ctx, "kiran@example.com", "000000x"), util.ErrInvalidResetCode))
	require.NoError(t, svc.VerifyResetCode(ctx, "kiran@example.com", code))

	err = svc.ResetPassword(ctx, "kiran@example.com", code, "new-password", "different")
	assert.True(t, errors.Is(err, util.ErrPasswordMismatch))

	require.NoError(t, svc.ResetPassword(ctx, "kiran@example.com", code, "new-password", "new-password"))

	err = svc.ResetPassword(ctx, "kiran@example.com", code, "third-password", "third-password")
	assert.True(t, errors.Is(err, util.ErrInvalidResetCode), "codes are single use")

	_, _, err = svc.Login(ctx, "kiran@example.com", "new-password")
	assert.NoError(t, err)
	_, _, err = svc.Login(ctx, "kiran@example.com", "old-password")
	assert.Error(t, err)
}
