package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// UserStore implements domain.UserStore over the in-memory Store.
type UserStore struct {
	s *Store
}

// Create inserts a new user. A duplicate email maps to ErrAlreadyExists.
func (u *UserStore) Create(ctx context.Context, user domain.User) (domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return domain.User{}, domain.ErrAlreadyExists
		}
	}
	u.s.nextUserID++
	user.ID = u.s.nextUserID
	user.CreatedAt = time.Now().UTC()
	u.s.users[user.ID] = user
	return user, nil
}

// GetByID retrieves a single user by id.
func (u *UserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

// GetByEmail retrieves a single user by email.
func (u *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

// List returns users ordered by id with pagination.
func (u *UserStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	users := make([]domain.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	if opts.Offset > 0 {
		if opts.Offset >= len(users) {
			return nil, nil
		}
		users = users[opts.Offset:]
	}
	if opts.Limit > 0 && len(users) > opts.Limit {
		users = users[:opts.Limit]
	}
	return users, nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
