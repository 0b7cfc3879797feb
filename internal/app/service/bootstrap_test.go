package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance_users/internal/common"
	"finance_users/internal/common/security"
	"finance_users/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeed = AdminSeed{Username: "admin", Email: "admin@example.com", Password: "Adm1n!Pass"}

type fakeLocker struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) (bool, error), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.acquired++
	return func(context.Context) (bool, error) {
		l.held = false
		l.released++
		return true, nil
	}, true, nil
}

func TestBootstrapper_SeedsAdminOnEmptyStore(t *testing.T) {
	repo := newMemUserRepo()
	logger, _ := newLogger()
	locker := &fakeLocker{}
	b := NewBootstrapper(repo, testSeed, logger).WithLock(locker, "boot", time.Second)

	require.NoError(t, b.EnsureAdmin(context.Background()))

	admin, err := repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.Active)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.True(t, security.CheckPasswordHash(testSeed.Password, admin.HashedPassword))

	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.False(t, locker.held)
}

func TestBootstrapper_IsIdempotent(t *testing.T) {
	repo := newMemUserRepo()
	logger, _ := newLogger()
	b := NewBootstrapper(repo, testSeed, logger)
	ctx := context.Background()

	require.NoError(t, b.EnsureAdmin(ctx))
	require.NoError(t, b.EnsureAdmin(ctx))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBootstrapper_LeavesNonEmptyStoreAlone(t *testing.T) {
	repo := newMemUserRepo(existingUser(t, janeID, "jane_doe", "jane@example.com"))
	logger, _ := newLogger()
	b := NewBootstrapper(repo, AdminSeed{}, logger)

	require.NoError(t, b.EnsureAdmin(context.Background()))

	_, err := repo.FindByUsername(context.Background(), "admin")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestBootstrapper_SkipsWhenLockHeldElsewhere(t *testing.T) {
	repo := newMemUserRepo()
	logger, hook := newLogger()
	b := NewBootstrapper(repo, testSeed, logger).WithLock(&fakeLocker{held: true}, "boot", time.Second)

	require.NoError(t, b.EnsureAdmin(context.Background()))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, hook.LastEntry().Message, "skipping admin seed")
}

func TestBootstrapper_RequiresSeedCredentials(t *testing.T) {
	repo := newMemUserRepo()
	logger, _ := newLogger()
	b := NewBootstrapper(repo, AdminSeed{Username: "admin", Email: "admin@example.com"}, logger)

	assert.Error(t, b.EnsureAdmin(context.Background()))
}

type conflictOnCreateRepo struct {
	*memUserRepo
}

func (r conflictOnCreateRepo) Create(ctx context.Context, user *model.User) error {
	return common.Errorf("user with given username or email already exists: %w", common.ErrConflict)
}

func TestBootstrapper_LostRaceIsNotAnError(t *testing.T) {
	logger, _ := newLogger()
	b := NewBootstrapper(conflictOnCreateRepo{newMemUserRepo()}, testSeed, logger)

	assert.NoError(t, b.EnsureAdmin(context.Background()))
}

func TestBootstrapper_CountFailure(t *testing.T) {
	repo := newMemUserRepo()
	repo.err = errStoreDown
	logger, _ := newLogger()
	b := NewBootstrapper(repo, testSeed, logger)

	err := b.EnsureAdmin(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}
