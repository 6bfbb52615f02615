package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/inventory-api/internal/model"
)

// MemoryUserRepo is an in-process implementation of the user store with the
// same semantics as UserRepo, including the unique email index and the
// compare-and-swap on refresh_token. It backs STORE_BACKEND=memory and tests.
type MemoryUserRepo struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{nextID: 1, users: map[uint64]model.User{}}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if r.emailTakenLocked(email, 0) {
		return 0, ErrEmailExists
	}
	now := time.Now().UTC()
	rec := *u
	rec.ID = r.nextID
	rec.Email = email
	rec.RefreshToken = nil
	rec.StoreID = copyUint(u.StoreID)
	rec.CreatedAt, rec.UpdatedAt = now, now
	r.users[rec.ID] = rec
	r.nextID++
	return rec.ID, nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepo) UpdateRefreshToken(_ context.Context, id uint64, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil
	}
	u.RefreshToken = copyString(token)
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) SwapRefreshToken(_ context.Context, id uint64, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = &next
	r.users[id] = u
	return true, nil
}

func (r *MemoryUserRepo) UpdateFields(_ context.Context, id uint64, upd model.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || upd.Empty() {
		return nil
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if r.emailTakenLocked(email, id) {
			return ErrEmailExists
		}
		u.Email = email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.ClearRefreshToken {
		u.RefreshToken = nil
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]model.User, error) {
	return r.filter(func(model.User) bool { return true }), nil
}

func (r *MemoryUserRepo) ListByStore(_ context.Context, storeID uint64) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.StoreID != nil && *u.StoreID == storeID }), nil
}

func (r *MemoryUserRepo) filter(keep func(model.User) bool) []model.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.User{}
	for _, u := range r.users {
		if keep(u) {
			out = append(out, *cloneUser(u))
		}
	}
	// newest first, same as the SQL ordering
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *MemoryUserRepo) emailTakenLocked(email string, except uint64) bool {
	for id, u := range r.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(u model.User) *model.User {
	c := u
	c.StoreID = copyUint(u.StoreID)
	c.RefreshToken = copyString(u.RefreshToken)
	return &c
}

func copyUint(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
