package account

import (
	"context"
	"sync"
)

type AdminRepoMem struct {
	mu     sync.RWMutex
	byID   map[int64]*Admin
	lastID int64
}

func NewAdminRepoMem() *AdminRepoMem {
	return &AdminRepoMem{byID: make(map[int64]*Admin)}
}

func (r *AdminRepoMem) Create(_ context.Context, a *Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == a.Username {
			return ErrAdminExists
		}
	}
	r.lastID++
	a.ID = r.lastID
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

// GetByUsername matches exactly; admin usernames are case-sensitive.
func (r *AdminRepoMem) GetByUsername(_ context.Context, username string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAdminNotFound
}

func (r *AdminRepoMem) update(id int64, fn func(*Admin)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrAdminNotFound
	}
	fn(a)
	return nil
}

func (r *AdminRepoMem) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(a *Admin) { a.PasswordHash = hash })
}

func (r *AdminRepoMem) UpdateRecoveryPhone(_ context.Context, id int64, phone string) error {
	return r.update(id, func(a *Admin) { a.RecoveryPhone = phone })
}
