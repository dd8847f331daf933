package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/models"
)

func TestService_EnsureAdmin(t *testing.T) {
	svc, err := NewService("bootstrap-secret", time.Hour)
	require.NoError(t, err)
	users := db.NewMemoryUserCollection()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, users, "administrador", "cambiar123"))
	admin, err := users.FindUserByUsername(ctx, "administrador")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, svc.CheckPassword("cambiar123", admin.PasswordHash))

	// A second run keeps the existing account and its password
	require.NoError(t, svc.EnsureAdmin(ctx, users, "administrador", "otra-clave"))
	list, err := users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, svc.CheckPassword("cambiar123", list[0].PasswordHash))

	assert.Error(t, svc.EnsureAdmin(ctx, users, "", "x"))
}
