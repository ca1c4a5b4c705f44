package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
)

// UserSeeder creates the accounts the service needs on first start
type UserSeeder struct {
	userRepo UserRepository
}

// NewUserSeeder creates a new user seeder
func NewUserSeeder(userRepo UserRepository) *UserSeeder {
	return &UserSeeder{userRepo: userRepo}
}

// EnsureAdmin creates the admin account if no user has its email yet.
// An empty password skips seeding. Returns true when a user was created.
func (s *UserSeeder) EnsureAdmin(ctx context.Context, email, password, displayName string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		logging.Debug("Admin seeding skipped: no admin email or password configured")
		return false, nil
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to check for admin %s: %w", email, err)
	}
	if existing != nil {
		if !existing.IsAdmin {
			logging.Warnf("User %s exists but is not an admin; leaving it unchanged", email)
		}
		return false, nil
	}

	admin := &models.User{
		DisplayName: displayName,
		Email:       email,
		IsAdmin:     true,
	}
	if err := admin.HashPassword(password); err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := s.userRepo.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create admin %s: %w", email, err)
	}

	logging.Infof("Created admin user %s (%s)", displayName, email)
	return true, nil
}
