package service

import (
	"context"
	"fmt"

	"finance_users/internal/common"
	"finance_users/internal/domain/repository"
	"finance_users/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

const (
	verificationSubject = "Finance verification code"
	msgMailSent         = "Email sent successfully."
	msgMailFailed       = "Error sending verification email."
)

type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type EmailService struct {
	userRepo repository.UserRepository
	mailer   Mailer
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

func NewEmailService(userRepo repository.UserRepository, mailer Mailer, logger *logrus.Logger, m *metrics.Metrics) *EmailService {
	return &EmailService{userRepo: userRepo, mailer: mailer, logger: logger, metrics: m}
}

// SendVerification mails the user's verification code, assigning one first
// if the user has none.
func (s *EmailService) SendVerification(ctx context.Context, email string) (*common.MessageResponse, error) {
	user, err := findUserByEmail(ctx, s.userRepo, email)
	if err != nil {
		return nil, err
	}

	if user.VerificationCode == nil || *user.VerificationCode == "" {
		code, err := GenerateVerificationCode()
		if err != nil {
			return nil, err
		}
		if err := s.userRepo.SetVerificationCode(ctx, user.ID, code); err != nil {
			return nil, fmt.Errorf("failed to store verification code: %w", err)
		}
		user.VerificationCode = &code
	}
	code := *user.VerificationCode

	text := fmt.Sprintf("Your Finance verification code is: %s", code)
	html := fmt.Sprintf("<p>Your Finance verification code is: <strong>%s</strong></p>", code)

	if err := s.mailer.Send(ctx, user.Email, verificationSubject, text, html); err != nil {
		s.metrics.ObserveVerificationMail("failed")
		s.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to send verification email")
		return nil, common.NewError(common.ErrInternalServer, msgMailFailed)
	}

	s.metrics.ObserveVerificationMail("sent")
	s.logger.WithField("user_id", user.ID).Info("Verification email sent")
	return &common.MessageResponse{Message: msgMailSent}, nil
}
