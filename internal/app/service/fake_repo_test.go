package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"finance_users/internal/common"
	"finance_users/internal/domain/model"
)

// memUserRepo enforces the same live-uniqueness rules as the partial indexes.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error // returned by every call when set
}

func newMemUserRepo(seed ...*model.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range seed {
		r.users[u.ID] = u
	}
	return r
}

func clone(u *model.User) *model.User {
	c := *u
	return &c
}

func (r *memUserRepo) live() []*model.User {
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		if u.DeletedAt == nil {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.live() {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) collides(u *model.User) bool {
	for _, other := range r.live() {
		if other.ID != u.ID && (other.Username == u.Username || other.Email == u.Email) {
			return true
		}
	}
	return false
}

func (r *memUserRepo) FindAll(ctx context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*model.User, 0)
	for _, u := range r.live() {
		out = append(out, clone(u))
	}
	return out, nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.collides(user) {
		return common.Errorf("user with given username or email already exists: %w", common.ErrConflict)
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = clone(user)
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	stored, ok := r.users[user.ID]
	if !ok || stored.DeletedAt != nil {
		return common.ErrNotFound
	}
	if r.collides(user) {
		return common.Errorf("user with given username or email already exists: %w", common.ErrConflict)
	}
	stored.Username, stored.Email, stored.Active = user.Username, user.Email, user.Active
	stored.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memUserRepo) SetVerificationCode(ctx context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	stored, ok := r.users[id]
	if !ok || stored.DeletedAt != nil {
		return common.ErrNotFound
	}
	stored.VerificationCode = &code
	return nil
}

func (r *memUserRepo) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	stored, ok := r.users[id]
	if !ok || stored.DeletedAt != nil {
		return common.ErrNotFound
	}
	now := time.Now().UTC()
	stored.DeletedAt = &now
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return len(r.live()), nil
}

func (r *memUserRepo) stored(id string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return clone(u)
	}
	return nil
}

var errStoreDown = errors.New("connection refused")

const (
	janeID    = "0b6f3c1e-5d8a-4f7e-9a51-2c4d6e8f0a13"
	johnID    = "7e2a9d44-1b3c-4e5f-8a6b-9c0d1e2f3a4b"
	missingID = "f0e1d2c3-b4a5-4968-8776-655443322110"
)
