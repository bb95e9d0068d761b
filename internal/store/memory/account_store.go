package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// AccountStore implements domain.AccountStore over the in-memory Store.
type AccountStore struct {
	s *Store
}

// Create inserts a new account and returns it with the assigned id.
func (a *AccountStore) Create(ctx context.Context, acct domain.Account) (domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.users[acct.UserID]; !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	a.s.nextAccountID++
	acct.ID = a.s.nextAccountID
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	a.s.accounts[acct.ID] = acct
	return acct, nil
}

// GetByID retrieves a single account by id.
func (a *AccountStore) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	acct, ok := a.s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}

// List returns accounts ordered by id with pagination.
func (a *AccountStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(a.s.accounts))
	for _, acct := range a.s.accounts {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	if opts.Offset > 0 {
		if opts.Offset >= len(accounts) {
			return nil, nil
		}
		accounts = accounts[opts.Offset:]
	}
	if opts.Limit > 0 && len(accounts) > opts.Limit {
		accounts = accounts[:opts.Limit]
	}
	return accounts, nil
}

// ListByUser returns all accounts owned by the given user.
func (a *AccountStore) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	var accounts []domain.Account
	for _, acct := range a.s.accounts {
		if acct.UserID == userID {
			accounts = append(accounts, acct)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// Update applies the patch, touching only the fields it names.
func (a *AccountStore) Update(ctx context.Context, id int64, patch domain.AccountPatch) (domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	acct, ok := a.s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	if patch.Empty() {
		return acct, nil
	}
	if patch.Name != nil {
		acct.Name = *patch.Name
	}
	acct.UpdatedAt = time.Now().UTC()
	a.s.accounts[id] = acct
	return acct, nil
}

// Delete removes the account and cascades to its ledger events and positions,
// matching the SQL schema's ON DELETE CASCADE. The account lock is taken
// first so an in-flight commit cannot append to a vanished account.
func (a *AccountStore) Delete(ctx context.Context, id int64) error {
	lk, err := a.s.accountLock(id)
	if err != nil {
		return err
	}
	lk.Lock()
	defer lk.Unlock()

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(a.s.accounts, id)
	delete(a.s.accountLocks, id)

	kept := a.s.events[:0]
	for _, e := range a.s.events {
		if e.AccountID == id {
			continue
		}
		if e.CounterpartyID != nil && *e.CounterpartyID == id {
			e.CounterpartyID = nil
		}
		kept = append(kept, e)
	}
	a.s.events = kept

	for key := range a.s.positions {
		if key.accountID == id {
			delete(a.s.positions, key)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.AccountStore = (*AccountStore)(nil)
