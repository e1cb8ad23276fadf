package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process LedgerStore. mu guards the maps; ledger writes
// additionally hold a mutex per account for the whole read-modify-write, so
// writes to different accounts never wait on each other.
type MemoryStore struct {
	mu             sync.RWMutex
	accounts       map[int64]*models.Account
	movements      map[int64]*models.Movement
	nextAccountID  int64
	nextMovementID int64

	locksMu      sync.Mutex
	accountLocks map[int64]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[int64]*models.Account),
		movements:    make(map[int64]*models.Movement),
		accountLocks: make(map[int64]*sync.Mutex),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.numberTaken(a.AccountNumber, 0) {
		return fmt.Errorf("%w: account %s already exists", apperrors.ErrConflict, a.AccountNumber)
	}
	s.nextAccountID++
	a.ID = s.nextAccountID
	stored := *a
	s.accounts[a.ID] = &stored
	return nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[a.ID]
	if !ok {
		return fmt.Errorf("%w: account %d", apperrors.ErrNotFound, a.ID)
	}
	if s.numberTaken(a.AccountNumber, a.ID) {
		return fmt.Errorf("%w: account %s already exists", apperrors.ErrConflict, a.AccountNumber)
	}
	stored.AccountNumber = a.AccountNumber
	stored.AccountType = a.AccountType
	stored.ClientKey = a.ClientKey
	stored.State = a.State
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (s *MemoryStore) numberTaken(number string, selfID int64) bool {
	for id, a := range s.accounts {
		if id != selfID && a.AccountNumber == number {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account(id)
}

func (s *MemoryStore) account(id int64) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", apperrors.ErrNotFound, id)
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) GetAccountByNumber(_ context.Context, accountNumber string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.AccountNumber == accountNumber {
			out := *a
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]models.Account, error) {
	return s.filterAccounts(func(*models.Account) bool { return true }), nil
}

func (s *MemoryStore) ListAccountsByClient(_ context.Context, clientKey string) ([]models.Account, error) {
	return s.filterAccounts(func(a *models.Account) bool { return a.ClientKey == clientKey }), nil
}

func (s *MemoryStore) filterAccounts(keep func(*models.Account) bool) []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Account{}
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) GetMovement(_ context.Context, id int64) (*models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.movement(id)
}

func (s *MemoryStore) movement(id int64) (*models.Movement, error) {
	m, ok := s.movements[id]
	if !ok {
		return nil, fmt.Errorf("%w: movement %d", apperrors.ErrNotFound, id)
	}
	out := *m
	return &out, nil
}

func (s *MemoryStore) ListMovements(_ context.Context) ([]models.Movement, error) {
	out := s.filterMovements(func(*models.Movement) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListMovementsByAccount(_ context.Context, accountID int64) ([]models.Movement, error) {
	out := s.filterMovements(func(m *models.Movement) bool { return m.AccountID == accountID })
	sort.Slice(out, func(i, j int) bool { return newerThan(&out[i], &out[j]) })
	return out, nil
}

func (s *MemoryStore) ListMovementsInRange(_ context.Context, accountID int64, start, end time.Time) ([]models.Movement, error) {
	out := s.filterMovements(func(m *models.Movement) bool {
		return m.AccountID == accountID && !m.MovementDate.Before(start) && !m.MovementDate.After(end)
	})
	sort.Slice(out, func(i, j int) bool { return newerThan(&out[j], &out[i]) })
	return out, nil
}

func (s *MemoryStore) filterMovements(keep func(*models.Movement) bool) []models.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Movement{}
	for _, m := range s.movements {
		if keep(m) {
			out = append(out, *m)
		}
	}
	return out
}

// newerThan orders by date, breaking ties on id.
func newerThan(a, b *models.Movement) bool {
	if !a.MovementDate.Equal(b.MovementDate) {
		return a.MovementDate.After(b.MovementDate)
	}
	return a.ID > b.ID
}

// accountLock hands out the mutex for an existing account. Accounts are never
// removed, so an entry is only ever created once per stored account.
func (s *MemoryStore) accountLock(id int64) (*sync.Mutex, error) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if l, ok := s.accountLocks[id]; ok {
		return l, nil
	}

	s.mu.RLock()
	_, err := s.account(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	l := &sync.Mutex{}
	s.accountLocks[id] = l
	return l, nil
}

func (s *MemoryStore) WithAccountLocks(ctx context.Context, accountIDs []int64, fn func(tx LedgerTx) error) error {
	ids := lockOrder(accountIDs)
	for _, id := range ids {
		l, err := s.accountLock(id)
		if err != nil {
			return err
		}
		l.Lock()
		defer l.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		s:         s,
		locked:    make(map[int64]bool, len(ids)),
		balances:  make(map[int64]decimal.Decimal),
		movements: make(map[int64]*models.Movement),
	}
	for _, id := range ids {
		if _, err := s.GetAccount(ctx, id); err != nil {
			return err
		}
		tx.locked[id] = true
	}

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memTx stages writes and overlays them on committed state for reads.
type memTx struct {
	s         *MemoryStore
	locked    map[int64]bool
	balances  map[int64]decimal.Decimal
	movements map[int64]*models.Movement
}

func (t *memTx) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	t.s.mu.RLock()
	a, err := t.s.account(id)
	t.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if b, ok := t.balances[id]; ok {
		a.Balance = b
	}
	return a, nil
}

func (t *memTx) GetMovement(_ context.Context, id int64) (*models.Movement, error) {
	if m, ok := t.movements[id]; ok {
		out := *m
		return &out, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.movement(id)
}

// accountMovements merges committed and staged movements of one account.
func (t *memTx) accountMovements(accountID int64) []*models.Movement {
	t.s.mu.RLock()
	var out []*models.Movement
	for id, m := range t.s.movements {
		if _, staged := t.movements[id]; staged {
			continue
		}
		if m.AccountID == accountID {
			c := *m
			out = append(out, &c)
		}
	}
	t.s.mu.RUnlock()

	for _, m := range t.movements {
		if m.AccountID == accountID {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

func (t *memTx) LatestMovement(_ context.Context, accountID int64) (*models.Movement, error) {
	var latest *models.Movement
	for _, m := range t.accountMovements(accountID) {
		if latest == nil || newerThan(m, latest) {
			latest = m
		}
	}
	return latest, nil
}

func (t *memTx) CountMovements(_ context.Context, accountID int64) (int64, error) {
	return int64(len(t.accountMovements(accountID))), nil
}

func (t *memTx) InsertMovement(_ context.Context, m *models.Movement) error {
	if !t.locked[m.AccountID] {
		return errNotLocked(m.AccountID)
	}
	t.s.mu.Lock()
	t.s.nextMovementID++
	m.ID = t.s.nextMovementID
	t.s.mu.Unlock()

	staged := *m
	t.movements[m.ID] = &staged
	return nil
}

func (t *memTx) UpdateMovement(ctx context.Context, m *models.Movement) error {
	if !t.locked[m.AccountID] {
		return errNotLocked(m.AccountID)
	}
	if _, err := t.GetMovement(ctx, m.ID); err != nil {
		return err
	}
	staged := *m
	t.movements[m.ID] = &staged
	return nil
}

func (t *memTx) SetAccountBalance(_ context.Context, accountID int64, balance decimal.Decimal) error {
	if !t.locked[accountID] {
		return errNotLocked(accountID)
	}
	t.balances[accountID] = balance
	return nil
}

func (t *memTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	now := time.Now().UTC()
	for id, b := range t.balances {
		if a, ok := t.s.accounts[id]; ok {
			a.Balance = b
			a.UpdatedAt = now
		}
	}
	for id, m := range t.movements {
		t.s.movements[id] = m
	}
}
