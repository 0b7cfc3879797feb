package worker

import (
	"context"
	"errors"
	"time"

	"finance_users/internal/common"
	"finance_users/internal/platform/queue"

	"github.com/sirupsen/logrus"
)

type MailSource interface {
	Name() string
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

type VerificationSender interface {
	SendVerification(ctx context.Context, email string) (*common.MessageResponse, error)
}

// MailWorker drains the verification mail queue one address at a time.
type MailWorker struct {
	source      MailSource
	sender      VerificationSender
	logger      *logrus.Logger
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewMailWorker(source MailSource, sender VerificationSender, logger *logrus.Logger) *MailWorker {
	return &MailWorker{
		source:      source,
		sender:      sender,
		logger:      logger,
		pollTimeout: 5 * time.Second,
		retryDelay:  5 * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (w *MailWorker) Start(ctx context.Context) {
	log := w.logger.WithField("queue", w.source.Name())
	log.Info("Mail worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Mail worker stopping...")
			return
		default:
		}

		email, err := w.source.Pop(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			log.WithError(err).Error("Failed to pop from mail queue")
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}

		w.process(ctx, email)
	}
}

func (w *MailWorker) process(ctx context.Context, email string) {
	log := w.logger.WithField("email", email)
	if _, err := w.sender.SendVerification(ctx, email); err != nil {
		log.WithError(err).Warn("Verification mail not sent")
		return
	}
	log.Debug("Verification mail processed")
}
