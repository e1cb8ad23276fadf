package repository

import (
	"context"
	"embed"
	"io/fs"
	"slices"
	"time"

	"github.com/eaglebank/corebank/shared/models"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the ledger schema files, rooted at the directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// LedgerReader covers lookups that need no lock. Every single-entity read
// fails with apperrors.ErrNotFound on a miss.
type LedgerReader interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListAccountsByClient(ctx context.Context, clientKey string) ([]models.Account, error)

	GetMovement(ctx context.Context, id int64) (*models.Movement, error)
	ListMovements(ctx context.Context) ([]models.Movement, error)
	// ListMovementsByAccount returns the account's movements newest first
	// (date desc, then id desc).
	ListMovementsByAccount(ctx context.Context, accountID int64) ([]models.Movement, error)
	// ListMovementsInRange returns movements dated in [start, end], oldest first.
	ListMovementsInRange(ctx context.Context, accountID int64, start, end time.Time) ([]models.Movement, error)
}

// LedgerTx is the store as seen from inside WithAccountLocks. Writes are
// only allowed on the locked accounts and become visible together on commit.
type LedgerTx interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetMovement(ctx context.Context, id int64) (*models.Movement, error)
	// LatestMovement returns nil when the account has no movements.
	LatestMovement(ctx context.Context, accountID int64) (*models.Movement, error)
	CountMovements(ctx context.Context, accountID int64) (int64, error)

	InsertMovement(ctx context.Context, m *models.Movement) error
	UpdateMovement(ctx context.Context, m *models.Movement) error
	SetAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
}

// LedgerStore is the account and movement Entity Store.
type LedgerStore interface {
	LedgerReader

	// CreateAccount fails with apperrors.ErrConflict on a taken account number.
	CreateAccount(ctx context.Context, a *models.Account) error
	// UpdateAccount writes every field except the balance, which only moves
	// through movements.
	UpdateAccount(ctx context.Context, a *models.Account) error

	// WithAccountLocks serializes fn against every other ledger write on the
	// same accounts. Locks are taken in ascending id order; fn's writes commit
	// atomically when it returns nil and are discarded otherwise.
	WithAccountLocks(ctx context.Context, accountIDs []int64, fn func(tx LedgerTx) error) error
}

// lockOrder returns the distinct ids in ascending order.
func lockOrder(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
