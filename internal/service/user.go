package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carmonterr/tejon/internal/apperr"
	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
)

// GetUser returns one account by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateShippingProfile validates and stores the checkout contact data.
func (s *Service) UpdateShippingProfile(ctx context.Context, id int64, phone string, addr model.ShippingAddress) (*model.User, error) {
	var fields []apperr.FieldError
	for _, f := range []struct{ name, value string }{
		{"telefono", phone},
		{"direccion", addr.Address},
		{"ciudad", addr.City},
		{"pais", addr.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			fields = append(fields, apperr.FieldError{Field: f.name, Message: "Este campo es requerido"})
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	if err := s.repo.UpdateShippingProfile(ctx, id, phone, addr); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("update shipping profile: %w", err)
	}
	return s.GetUser(ctx, id)
}

// ListUsers returns one page of accounts matching the search plus the total.
func (s *Service) ListUsers(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error) {
	users, total, err := s.repo.ListUsers(ctx, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// UpdateUser applies a partial admin edit; nil fields keep their value.
func (s *Service) UpdateUser(ctx context.Context, id int64, name, email *string, isAdmin *bool) (*model.User, error) {
	u, err := s.repo.UpdateUser(ctx, id, name, email, isAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// DeleteUser removes an account. Admins cannot remove themselves.
func (s *Service) DeleteUser(ctx context.Context, adminID, targetID int64) error {
	if adminID == targetID {
		return errCannotDeleteSelf
	}
	if err := s.repo.DeleteUser(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
