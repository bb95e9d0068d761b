// Package memory implements the domain store interfaces in process memory.
// It backs dev mode and the service tests. Commit operations follow the same
// discipline as the PostgreSQL engine: a per-account lock is held across the
// whole read-validate-append-mutate sequence, so concurrent trades on one
// account serialize instead of losing updates.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

type posKey struct {
	accountID int64
	stockID   int64
}

// Store holds all brokerage state. The struct-level mutex guards map
// structure; accountLocks serialize commits per account. Lock ordering is
// account lock first, struct mutex second, everywhere.
type Store struct {
	mu sync.RWMutex

	users     map[int64]domain.User
	accounts  map[int64]domain.Account
	stocks    map[int64]domain.Stock
	events    []domain.LedgerEvent
	positions map[posKey]domain.Position

	accountLocks map[int64]*sync.Mutex

	nextUserID    int64
	nextAccountID int64
	nextStockID   int64
	nextEventID   int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:        make(map[int64]domain.User),
		accounts:     make(map[int64]domain.Account),
		stocks:       make(map[int64]domain.Stock),
		positions:    make(map[posKey]domain.Position),
		accountLocks: make(map[int64]*sync.Mutex),
	}
}

// Users returns the user store view.
func (s *Store) Users() *UserStore { return &UserStore{s} }

// Accounts returns the account store view.
func (s *Store) Accounts() *AccountStore { return &AccountStore{s} }

// Stocks returns the stock store view.
func (s *Store) Stocks() *StockStore { return &StockStore{s} }

// Ledger returns the ledger store view.
func (s *Store) Ledger() *LedgerStore { return &LedgerStore{s} }

// Positions returns the position store view.
func (s *Store) Positions() *PositionStore { return &PositionStore{s} }

// accountLock returns the commit lock for an account, or ErrNotFound when the
// account does not exist.
func (s *Store) accountLock(id int64) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return nil, domain.ErrNotFound
	}
	lk, ok := s.accountLocks[id]
	if !ok {
		lk = &sync.Mutex{}
		s.accountLocks[id] = lk
	}
	return lk, nil
}

// balanceLocked folds the cash balance. Callers hold s.mu.
func (s *Store) balanceLocked(accountID int64) float64 {
	var balance float64
	for _, e := range s.events {
		if e.AccountID == accountID {
			balance += e.Kind.Sign() * e.Amount
		}
	}
	return balance
}

// appendLocked assigns an id and timestamp and appends. Callers hold s.mu.
func (s *Store) appendLocked(ev domain.LedgerEvent) domain.LedgerEvent {
	s.nextEventID++
	ev.ID = s.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	return ev
}

func sortNewestFirst(events []domain.LedgerEvent) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID > events[j].ID })
}

func paginate(events []domain.LedgerEvent, opts domain.ListOpts) []domain.LedgerEvent {
	if opts.Offset > 0 {
		if opts.Offset >= len(events) {
			return nil
		}
		events = events[opts.Offset:]
	}
	if opts.Limit > 0 && len(events) > opts.Limit {
		events = events[:opts.Limit]
	}
	return events
}
