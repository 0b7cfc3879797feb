package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance_users/internal/common"
	"finance_users/internal/common/security"
	"finance_users/internal/domain/model"
	"finance_users/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Locker is a cross-instance mutex. release reports whether the lock was
// still held when released.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) (bool, error), ok bool, err error)
}

type AdminSeed struct {
	Username string
	Email    string
	Password string
}

type Bootstrapper struct {
	userRepo repository.UserRepository
	seed     AdminSeed
	logger   *logrus.Logger

	locker  Locker
	lockKey string
	lockTTL time.Duration
}

func NewBootstrapper(userRepo repository.UserRepository, seed AdminSeed, logger *logrus.Logger) *Bootstrapper {
	return &Bootstrapper{userRepo: userRepo, seed: seed, logger: logger}
}

// WithLock makes EnsureAdmin skip seeding when another instance holds key.
func (b *Bootstrapper) WithLock(locker Locker, key string, ttl time.Duration) *Bootstrapper {
	b.locker = locker
	b.lockKey = key
	b.lockTTL = ttl
	return b
}

// EnsureAdmin creates the initial admin account when the store has no users.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context) error {
	if b.locker != nil {
		release, ok, err := b.locker.TryLock(ctx, b.lockKey, b.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire bootstrap lock: %w", err)
		}
		if !ok {
			b.logger.WithField("lock_key", b.lockKey).Info("Bootstrap lock held by another instance, skipping admin seed")
			return nil
		}
		defer func() {
			released, err := release(context.WithoutCancel(ctx))
			if err != nil {
				b.logger.WithError(err).Warn("Failed to release bootstrap lock")
			} else if !released {
				b.logger.WithField("lock_key", b.lockKey).Warn("Bootstrap lock expired before release")
			}
		}()
	}

	n, err := b.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		b.logger.WithField("users", n).Debug("Users present, skipping admin seed")
		return nil
	}

	if b.seed.Username == "" || b.seed.Email == "" || b.seed.Password == "" {
		return errors.New("store is empty and ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD are not all set")
	}

	hashedPassword, err := security.HashPassword(b.seed.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &model.User{
		ID:             uuid.NewString(),
		Username:       b.seed.Username,
		Email:          b.seed.Email,
		HashedPassword: hashedPassword,
		Active:         true,
		Role:           model.RoleAdmin,
	}
	if err := b.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, common.ErrConflict) {
			b.logger.WithField("username", admin.Username).Info("Admin already created by another instance")
			return nil
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	b.logger.WithFields(logrus.Fields{"user_id": admin.ID, "username": admin.Username}).Info("Initial admin user created")
	return nil
}
