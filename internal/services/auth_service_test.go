package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/store"
	"gastos/internal/store/memory"
)

func TestRegisterAndLogin(t *testing.T) {
	st := memory.New()
	svc := NewAuthService(st, st, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "u1", "hunter2", core.AccessPremium))

	token, err := svc.Login(ctx, "u1", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	u, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "u1", u.UID)
	require.Equal(t, core.AccessPremium, u.AccessLevel)
	require.False(t, u.LastActivity.IsZero(), "login refreshes last activity")
}

func TestLoginFailures(t *testing.T) {
	st := memory.New()
	svc := NewAuthService(st, st, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "u1", "hunter2", core.AccessFree))

	_, err := svc.Login(ctx, "u1", "wrong")
	require.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Login(ctx, "ghost", "hunter2")
	require.ErrorIs(t, err, ErrBadCredentials, "unknown user fails the same way as a bad password")
}

func TestRegisterValidation(t *testing.T) {
	st := memory.New()
	svc := NewAuthService(st, st, time.Hour)
	ctx := context.Background()

	require.Error(t, svc.Register(ctx, "", "pw", core.AccessFree))
	require.Error(t, svc.Register(ctx, "u1", "", core.AccessFree))
	require.Error(t, svc.Register(ctx, "u1", "pw", core.AccessLevel(9)))
}

func TestLogout(t *testing.T) {
	st := memory.New()
	svc := NewAuthService(st, st, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "u1", "hunter2", core.AccessFree))
	token, err := svc.Login(ctx, "u1", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, store.ErrNotFound)
}
