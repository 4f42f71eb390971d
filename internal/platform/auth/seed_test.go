package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/platform/config"
	"invostock/internal/platform/database"
	"invostock/internal/platform/repositories"
)

func TestEnsureSystemAdmin(t *testing.T) {
	db := database.NewTestDB(t)
	users := repositories.NewUserRepository(db)
	ctx := context.Background()

	created, err := EnsureSystemAdmin(ctx, users, config.AdminConfig{})
	require.NoError(t, err)
	assert.False(t, created, "no credentials configured")

	cfg := config.AdminConfig{Email: "admin@invostock.hr", Password: "admin-lozinka"}
	created, err = EnsureSystemAdmin(ctx, users, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := users.GetByEmail(ctx, "admin@invostock.hr")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "systemadmin", admin.Role)
	assert.Equal(t, "Administrator", admin.Name)
	assert.True(t, CheckPassword(admin.PasswordHash, "admin-lozinka"))

	created, err = EnsureSystemAdmin(ctx, users, cfg)
	require.NoError(t, err)
	assert.False(t, created, "an administrator already exists")
}
