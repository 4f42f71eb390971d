package auth

import (
	"context"

	"invostock/internal/platform/config"
	"invostock/internal/platform/models"
	"invostock/internal/platform/repositories"
	"invostock/internal/platform/tenant"
)

// EnsureSystemAdmin creates the configured administrator when the database
// has none. It reports whether a user was created.
func EnsureSystemAdmin(ctx context.Context, users *repositories.UserRepository, cfg config.AdminConfig) (bool, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return false, nil
	}
	n, err := users.CountSystemAdmins(ctx)
	if err != nil || n > 0 {
		return false, err
	}

	hash, err := HashPassword(cfg.Password)
	if err != nil {
		return false, err
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	err = users.Create(ctx, &models.User{
		Name:         name,
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         tenant.RoleSystemAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
