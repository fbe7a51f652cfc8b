package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/audit"
	"marketplace/internal/auth/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

const bcryptCost = 10

// Register creates a new user with a hashed password. Emails are unique
// across the marketplace regardless of role.
func (s *Service) Register(ctx context.Context, input models.RegisterInput) (*models.User, error) {
	if !input.Role.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid role %q", input.Role)
	}
	if input.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		Address:      input.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.UsersRegistered.Inc()
	s.logAudit(ctx, audit.EventUserRegistered, user.ID, user.Email)

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// ChangePassword verifies the current password before replacing it. Existing
// sessions stay valid; only the credential changes.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return dErrors.New(dErrors.CodeForbidden, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	if err := s.users.UpdatePassword(ctx, userID, string(hash), now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}
	return nil
}
