package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"finance_users/internal/common"
	"finance_users/internal/common/security"
	"finance_users/internal/common/validation"
	"finance_users/internal/domain/model"
	"finance_users/internal/domain/repository"
	"finance_users/internal/platform/config"
	"finance_users/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	msgIDRequired      = "User ID is required."
	msgEmailRequired   = "User email is required."
	msgInvalidEmail    = "Invalid email format."
	msgInvalidUsername = "Invalid username format. Username can only contain letters, numbers, and underscores."
	msgInvalidPassword = "Password must contain at least 8 characters, including at least one uppercase letter, one lowercase letter, one number, and one special character."
	msgUsernameTaken   = "Username is already created."
	msgEmailTaken      = "Email is already used."
	msgUserExists      = "User with given username or email already exists."
)

// VerificationQueue defers verification mails to the mail worker.
type VerificationQueue interface {
	Enqueue(ctx context.Context, email string) error
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UpdateUserRequest is a patch; nil fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Active   *bool   `json:"active"`
}

type UpdateUserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
}

type UserService struct {
	userRepo   repository.UserRepository
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	deleteMode string
	queue      VerificationQueue
}

type UserServiceOption func(*UserService)

func WithMetrics(m *metrics.Metrics) UserServiceOption {
	return func(s *UserService) { s.metrics = m }
}

func WithDeleteMode(mode string) UserServiceOption {
	return func(s *UserService) { s.deleteMode = mode }
}

func WithVerificationQueue(q VerificationQueue) UserServiceOption {
	return func(s *UserService) { s.queue = q }
}

func NewUserService(userRepo repository.UserRepository, logger *logrus.Logger, opts ...UserServiceOption) *UserService {
	s := &UserService{
		userRepo:   userRepo,
		logger:     logger,
		deleteMode: config.DeleteModeHard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) FindAll(ctx context.Context) ([]model.UserDTO, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	dtos := make([]model.UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, u.ToDTO())
	}
	return dtos, nil
}

func (s *UserService) FindByID(ctx context.Context, id string) (*model.UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*model.UserDTO, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, fmt.Sprintf("User username %s not found.", username))
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.UserDTO, error) {
	user, err := findUserByEmail(ctx, s.userRepo, email)
	if err != nil {
		return nil, err
	}
	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) Create(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if !validation.ValidatePassword(req.Password) {
		return nil, common.NewError(common.ErrBadRequest, msgInvalidPassword)
	}
	if !validation.ValidateUsername(req.Username) {
		return nil, common.NewError(common.ErrBadRequest, msgInvalidUsername)
	}
	if !validation.ValidateEmail(req.Email) {
		return nil, common.NewError(common.ErrBadRequest, msgInvalidEmail)
	}

	if taken, err := s.usernameTakenBy(ctx, req.Username, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, common.NewError(common.ErrConflict, msgUsernameTaken)
	}
	if taken, err := s.emailTakenBy(ctx, req.Email, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, common.NewError(common.ErrConflict, msgEmailTaken)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	code, err := GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:               uuid.NewString(),
		Username:         req.Username,
		Email:            req.Email,
		HashedPassword:   hashedPassword,
		VerificationCode: &code,
		Active:           false,
		Role:             model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewError(common.ErrConflict, msgUserExists)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.ObserveRegistration()
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, user.Email); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to queue verification mail")
		}
	}

	return &RegisterResponse{Username: user.Username, Email: user.Email}, nil
}

func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*UpdateUserResponse, error) {
	if req.Username != nil && !validation.ValidateUsername(*req.Username) {
		return nil, common.NewError(common.ErrBadRequest, msgInvalidUsername)
	}
	if req.Email != nil && !validation.ValidateEmail(*req.Email) {
		return nil, common.NewError(common.ErrBadRequest, msgInvalidEmail)
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		if taken, err := s.usernameTakenBy(ctx, *req.Username, user.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, common.NewError(common.ErrConflict, msgUsernameTaken)
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		if taken, err := s.emailTakenBy(ctx, *req.Email, user.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, common.NewError(common.ErrConflict, msgEmailTaken)
		}
		user.Email = *req.Email
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			return nil, common.NewError(common.ErrNotFound, fmt.Sprintf("User ID %s not found.", id))
		case errors.Is(err, common.ErrConflict):
			return nil, common.NewError(common.ErrConflict, msgUserExists)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &UpdateUserResponse{Username: user.Username, Email: user.Email, Active: user.Active}, nil
}

// Delete removes the user according to the configured delete mode.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if s.deleteMode == config.DeleteModeSoft {
		return s.SoftDelete(ctx, id)
	}

	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return s.deleteError(id, err)
	}
	s.logger.WithField("user_id", id).Info("User deleted")
	return nil
}

// SoftDelete marks the user deleted, freeing its username and email.
func (s *UserService) SoftDelete(ctx context.Context, id string) error {
	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		return s.deleteError(id, err)
	}
	s.logger.WithField("user_id", id).Info("User soft-deleted")
	return nil
}

func (s *UserService) deleteError(id string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewError(common.ErrNotFound, fmt.Sprintf("User ID %s not found.", id))
	}
	return fmt.Errorf("failed to delete user: %w", err)
}

func (s *UserService) findUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, common.NewError(common.ErrBadRequest, msgIDRequired)
	}
	// ids are canonical UUIDs; anything else cannot name a stored user
	if _, err := uuid.Parse(id); err != nil || len(id) != canonicalUUIDLen {
		return nil, common.NewError(common.ErrNotFound, fmt.Sprintf("User ID %s not found.", id))
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, fmt.Sprintf("User ID %s not found.", id))
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// usernameTakenBy reports whether a live user other than selfID holds username.
func (s *UserService) usernameTakenBy(ctx context.Context, username, selfID string) (bool, error) {
	other, err := s.userRepo.FindByUsername(ctx, username)
	return takenBy(other, err, selfID)
}

func (s *UserService) emailTakenBy(ctx context.Context, email, selfID string) (bool, error) {
	other, err := s.userRepo.FindByEmail(ctx, email)
	return takenBy(other, err, selfID)
}

func takenBy(other *model.User, err error, selfID string) (bool, error) {
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return other.ID != selfID, nil
}

func findUserByEmail(ctx context.Context, repo repository.UserRepository, email string) (*model.User, error) {
	if email == "" {
		return nil, common.NewError(common.ErrBadRequest, msgEmailRequired)
	}
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, fmt.Sprintf("User email %s not found.", email))
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

const canonicalUUIDLen = 36

var verificationCodeSpace = big.NewInt(1_000_000)

// GenerateVerificationCode returns a uniformly random six digit code.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, verificationCodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
