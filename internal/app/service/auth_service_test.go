package service

import (
	"context"
	"testing"
	"time"

	"igress/internal/common"
	"igress/internal/common/security"
	"igress/internal/domain/model"
	"igress/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour, BcryptCost: 4}
	security.InitJWT()
	users := newFakeUserRepo()
	return NewAuthService(users, &fakeTx{}), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{RollNo: "S1", Email: "a@x.com", Password: "pw", Role: "student"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.UserID)

	login, err := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Contains(t, login.Roles, model.RoleStudent)

	_, err = svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "nope"})
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Equal(t, 401, common.HTTPStatusFromError(err))
	assert.Equal(t, "Invalid credentials", common.PublicMessage(err))
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	svc, users := setupAuth(t)
	reg, err := svc.Register(context.Background(), RegisterRequest{RollNo: "S2", Email: "B@x.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleStudent}, users.roles[reg.UserID])
	assert.Contains(t, users.byEmail, "b@x.com")
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := setupAuth(t)
	_, err := svc.Register(context.Background(), RegisterRequest{RollNo: "S3", Email: "c@x.com", Password: "pw", Role: "root"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestLoginBlockedUser(t *testing.T) {
	svc, users := setupAuth(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterRequest{RollNo: "S4", Email: "d@x.com", Password: "pw"})
	require.NoError(t, err)
	users.byID[reg.UserID].IsActive = false

	_, err = svc.Login(ctx, LoginRequest{Email: "d@x.com", Password: "pw"})
	require.ErrorIs(t, err, common.ErrAccountBlocked)
	assert.Equal(t, 403, common.HTTPStatusFromError(err))
}
