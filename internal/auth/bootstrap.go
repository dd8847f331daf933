package auth

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// UserStore is the part of the user collection needed to bootstrap.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
}

// EnsureAdmin creates the administrator account when it does not exist yet.
// An existing account is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, users UserStore, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("admin username and password are required")
	}
	_, err := users.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.NotFound {
		return fmt.Errorf("find admin: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Permissions:  models.Permissions{},
		IsActive:     true,
	}
	if err := users.InsertUser(ctx, admin); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	log.WithField("user", username).Info("Administrator account created")
	return nil
}
