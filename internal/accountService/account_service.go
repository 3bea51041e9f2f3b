package account

import (
	"auctions/internal/auctionerrors"
	model "auctions/internal/models"
	"auctions/internal/repository"
	"auctions/utils"
	"context"
	"errors"
	"fmt"
	"strings"
)

// Registration is a sign-up request as submitted by the user
type Registration struct {
	Username     string
	Email        string
	Password     string
	Confirmation string
}

// AccountService handles sign-up and login
type AccountService struct {
	repo       repository.UserDB
	bcryptCost int
}

// NewAccountService creates a new AccountService instance
func NewAccountService(repo repository.UserDB, bcryptCost int) *AccountService {
	return &AccountService{repo: repo, bcryptCost: bcryptCost}
}

// Register creates a user once the password confirmation matches
func (s *AccountService) Register(ctx context.Context, reg Registration) (model.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Username == "" || reg.Password == "" {
		return model.User{}, fmt.Errorf("service: %w - missing username or password", auctionerrors.ErrInvalidRegistration)
	}
	if reg.Password != reg.Confirmation {
		return model.User{}, fmt.Errorf("service: %w", auctionerrors.ErrPasswordMismatch)
	}

	_, err := s.repo.GetUserByUsername(ctx, reg.Username)
	if err == nil {
		return model.User{}, fmt.Errorf("service: %w - %q", auctionerrors.ErrUsernameTaken, reg.Username)
	}
	if !errors.Is(err, auctionerrors.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("service: failed to check username %q: %w", reg.Username, err)
	}

	hash, err := utils.HashPassword(reg.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	user := model.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return model.User{}, fmt.Errorf("service: failed to create user %q: %w", reg.Username, err)
	}
	return user, nil
}

// Authenticate returns the user whose credentials match
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, auctionerrors.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("service: failed to get user %q: %w", username, err)
	}

	if !utils.VerifyPassword(user.PasswordHash, password) {
		return model.User{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}
	return user, nil
}

// GetUser returns a user by ID
func (s *AccountService) GetUser(ctx context.Context, id uint) (model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("service: failed to get user %d: %w", id, err)
	}
	return user, nil
}
