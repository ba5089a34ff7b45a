package services

import (
	"testing"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureDefaultUserRunsOnce(t *testing.T) {
	f := newFixture(t)

	created, err := f.users.EnsureDefaultUser(f.ctx, "Admin123!")
	require.NoError(t, err)
	require.True(t, created)

	admin, err := f.users.FindByUsername(f.ctx, models.DefaultUsername)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.True(t, admin.Bootstrap)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("Admin123!")))

	created, err = f.users.EnsureDefaultUser(f.ctx, "Admin123!")
	require.NoError(t, err)
	require.False(t, created)

	present, err := f.users.IsDefaultUserPresent(f.ctx)
	require.NoError(t, err)
	require.True(t, present)
}

func TestEnsureDefaultUserWarnsOnlyWhenCreating(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.WithContext(f.ctx, zap.New(core))

	_, err := f.users.EnsureDefaultUser(ctx, "Admin123!")
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessageSnippet("Default admin user created").Len())

	_, err = f.users.EnsureDefaultUser(ctx, "Admin123!")
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
}

func TestRegisterAdminReplacesDefaultUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.EnsureDefaultUser(f.ctx, "Admin123!")
	require.NoError(t, err)

	user, err := f.users.Register(f.ctx, RegisterUserInput{Username: "admin", Password: "N3w-Passw0rd!", Role: "admin"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, user.Role)
	require.False(t, user.Bootstrap)

	present, err := f.users.IsDefaultUserPresent(f.ctx)
	require.NoError(t, err)
	require.False(t, present)
	require.Equal(t, int64(1), f.countRows(t, &models.User{}))

	stored, err := f.users.FindByUsername(f.ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("N3w-Passw0rd!")))
}

func TestRegisterUserKeepsDefaultAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.EnsureDefaultUser(f.ctx, "Admin123!")
	require.NoError(t, err)

	_, err = f.users.Register(f.ctx, RegisterUserInput{Username: "clerk", Password: "Clerk123!"})
	require.NoError(t, err)
	present, err := f.users.IsDefaultUserPresent(f.ctx)
	require.NoError(t, err)
	require.True(t, present)

	_, err = f.users.Register(f.ctx, RegisterUserInput{Username: "clerk", Password: "Clerk123!", Role: "USER"})
	require.ErrorIs(t, err, apperror.ErrUsernameExists)

	_, err = f.users.Register(f.ctx, RegisterUserInput{Username: "admin", Password: "Clerk123!", Role: "USER"})
	require.ErrorIs(t, err, apperror.ErrUsernameExists)

	_, err = f.users.Register(f.ctx, RegisterUserInput{Username: "boss", Password: "Clerk123!", Role: "OWNER"})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRegisterAdminDuplicateRollsBackDefaultRemoval(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.EnsureDefaultUser(f.ctx, "Admin123!")
	require.NoError(t, err)
	_, err = f.users.Register(f.ctx, RegisterUserInput{Username: "clerk", Password: "Clerk123!"})
	require.NoError(t, err)

	_, err = f.users.Register(f.ctx, RegisterUserInput{Username: "clerk", Password: "Clerk123!", Role: "ADMIN"})
	require.ErrorIs(t, err, apperror.ErrUsernameExists)

	present, err := f.users.IsDefaultUserPresent(f.ctx)
	require.NoError(t, err)
	require.True(t, present)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	u, err := f.users.Register(f.ctx, RegisterUserInput{Username: "clerk", Password: "Clerk123!"})
	require.NoError(t, err)

	found, err := f.users.FindByID(f.ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "clerk", found.Username)

	require.NoError(t, f.users.Delete(f.ctx, u.ID))
	require.ErrorIs(t, f.users.Delete(f.ctx, u.ID), apperror.ErrUserNotFound)
	_, err = f.users.FindByUsername(f.ctx, "clerk")
	require.ErrorIs(t, err, apperror.ErrUserNotFound)
}
