package service

import (
	"context"
	"errors"
	"fmt"

	"finance_users/internal/common"
	"finance_users/internal/common/security"
	"finance_users/internal/domain/model"
	"finance_users/internal/domain/repository"
	"finance_users/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

const msgInvalidCredentials = "invalid credentials"

type AuthService struct {
	userRepo repository.UserRepository
	issuer   *security.TokenIssuer
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

func NewAuthService(userRepo repository.UserRepository, issuer *security.TokenIssuer, logger *logrus.Logger, m *metrics.Metrics) *AuthService {
	return &AuthService{userRepo: userRepo, issuer: issuer, logger: logger, metrics: m}
}

type LoginRequest struct {
	LoginField string `json:"login_field"` // Can be username or email
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.LoginField == "" || req.Password == "" {
		s.metrics.ObserveLogin("bad_request")
		return nil, common.NewError(common.ErrBadRequest, "login_field and password are required")
	}

	var user *model.User
	var err error

	// Try finding by email first, then by username
	user, err = s.userRepo.FindByEmail(ctx, req.LoginField)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			user, err = s.userRepo.FindByUsername(ctx, req.LoginField)
		}
	}

	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.metrics.ObserveLogin("failure")
			return nil, common.NewError(common.ErrUnauthorized, msgInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		s.metrics.ObserveLogin("failure")
		return nil, common.NewError(common.ErrUnauthorized, msgInvalidCredentials)
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.metrics.ObserveLogin("success")
	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return &LoginResponse{Token: token}, nil
}
