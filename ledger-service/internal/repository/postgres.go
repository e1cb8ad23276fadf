package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore is the LedgerStore backed by PostgreSQL. Ledger writes run
// in one transaction holding FOR UPDATE row locks on the accounts involved.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	accountColumns  = `id, account_number, account_type, client_key, balance, state, created_at, updated_at`
	movementColumns = `id, account_id, movement_number, movement_date, movement_type, amount, balance, state`
)

func (s *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (account_number, account_type, client_key, balance, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		a.AccountNumber, a.AccountType, a.ClientKey, a.Balance, a.State, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return translate(err, "account "+a.AccountNumber)
	}
	return nil
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET account_number = $2, account_type = $3, client_key = $4, state = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		a.ID, a.AccountNumber, a.AccountType, a.ClientKey, a.State, a.UpdatedAt)
	if err != nil {
		return translate(err, "account "+a.AccountNumber)
	}
	return expectOneRow(result, fmt.Sprintf("account %d", a.ID))
}

func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *PostgresStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		return nil, translate(err, "account "+accountNumber)
	}
	return a, nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return queryAccounts(ctx, s.db, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
}

func (s *PostgresStore) ListAccountsByClient(ctx context.Context, clientKey string) ([]models.Account, error) {
	return queryAccounts(ctx, s.db, `SELECT `+accountColumns+` FROM accounts WHERE client_key = $1 ORDER BY id`, clientKey)
}

func (s *PostgresStore) GetMovement(ctx context.Context, id int64) (*models.Movement, error) {
	return getMovement(ctx, s.db, id)
}

func (s *PostgresStore) ListMovements(ctx context.Context) ([]models.Movement, error) {
	return queryMovements(ctx, s.db, `SELECT `+movementColumns+` FROM movements ORDER BY id`)
}

func (s *PostgresStore) ListMovementsByAccount(ctx context.Context, accountID int64) ([]models.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE account_id = $1 ORDER BY movement_date DESC, id DESC`
	return queryMovements(ctx, s.db, query, accountID)
}

func (s *PostgresStore) ListMovementsInRange(ctx context.Context, accountID int64, start, end time.Time) ([]models.Movement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM movements
		WHERE account_id = $1 AND movement_date BETWEEN $2 AND $3
		ORDER BY movement_date ASC, id ASC
	`
	return queryMovements(ctx, s.db, query, accountID, start, end)
}

func (s *PostgresStore) WithAccountLocks(ctx context.Context, accountIDs []int64, fn func(tx LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	locked := make(map[int64]bool, len(accountIDs))
	for _, id := range lockOrder(accountIDs) {
		var got int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&got)
		if err != nil {
			return translate(err, fmt.Sprintf("account %d", id))
		}
		locked[id] = true
	}

	if err := fn(&pgTx{tx: tx, locked: locked}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// pgTx implements LedgerTx on an open transaction.
type pgTx struct {
	tx     *sql.Tx
	locked map[int64]bool
}

func (t *pgTx) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return getAccount(ctx, t.tx, id)
}

func (t *pgTx) GetMovement(ctx context.Context, id int64) (*models.Movement, error) {
	return getMovement(ctx, t.tx, id)
}

func (t *pgTx) LatestMovement(ctx context.Context, accountID int64) (*models.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE account_id = $1 ORDER BY movement_date DESC, id DESC LIMIT 1`
	m, err := scanMovement(t.tx.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest movement of account %d: %w", accountID, err)
	}
	return m, nil
}

func (t *pgTx) CountMovements(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM movements WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements of account %d: %w", accountID, err)
	}
	return n, nil
}

func (t *pgTx) InsertMovement(ctx context.Context, m *models.Movement) error {
	if !t.locked[m.AccountID] {
		return errNotLocked(m.AccountID)
	}
	query := `
		INSERT INTO movements (account_id, movement_number, movement_date, movement_type, amount, balance, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query,
		m.AccountID, m.MovementNumber, m.MovementDate, m.MovementType, m.Amount, m.Balance, m.State,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateMovement(ctx context.Context, m *models.Movement) error {
	if !t.locked[m.AccountID] {
		return errNotLocked(m.AccountID)
	}
	query := `
		UPDATE movements
		SET account_id = $2, movement_date = $3, movement_type = $4, amount = $5, balance = $6, state = $7
		WHERE id = $1
	`
	result, err := t.tx.ExecContext(ctx, query,
		m.ID, m.AccountID, m.MovementDate, m.MovementType, m.Amount, m.Balance, m.State)
	if err != nil {
		return fmt.Errorf("update movement %d: %w", m.ID, err)
	}
	return expectOneRow(result, fmt.Sprintf("movement %d", m.ID))
}

func (t *pgTx) SetAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if !t.locked[accountID] {
		return errNotLocked(accountID)
	}
	result, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $2, updated_at = NOW() WHERE id = $1`, accountID, balance)
	if err != nil {
		return fmt.Errorf("update balance of account %d: %w", accountID, err)
	}
	return expectOneRow(result, fmt.Sprintf("account %d", accountID))
}

// ---- shared helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.AccountNumber, &a.AccountType, &a.ClientKey,
		&a.Balance, &a.State, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanMovement(row rowScanner) (*models.Movement, error) {
	var m models.Movement
	if err := row.Scan(&m.ID, &m.AccountID, &m.MovementNumber, &m.MovementDate,
		&m.MovementType, &m.Amount, &m.Balance, &m.State); err != nil {
		return nil, err
	}
	return &m, nil
}

func getAccount(ctx context.Context, q dbtx, id int64) (*models.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("account %d", id))
	}
	return a, nil
}

func getMovement(ctx context.Context, q dbtx, id int64) (*models.Movement, error) {
	m, err := scanMovement(q.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("movement %d", id))
	}
	return m, nil
}

func queryAccounts(ctx context.Context, q dbtx, query string, args ...any) ([]models.Account, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func queryMovements(ctx context.Context, q dbtx, query string, args ...any) ([]models.Movement, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	movements := []models.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

func expectOneRow(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	return nil
}

// translate maps driver errors onto the shared taxonomy.
func translate(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s already exists", apperrors.ErrConflict, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func errNotLocked(accountID int64) error {
	return fmt.Errorf("account %d is not locked by this transaction", accountID)
}
