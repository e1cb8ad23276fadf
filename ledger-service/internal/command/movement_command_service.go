package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/corebank/ledger-service/internal/repository"
	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MovementTypeDeposit    = "DEPOSIT"
	MovementTypeWithdrawal = "WITHDRAWAL"
)

// moneyScale is the number of decimal places amounts and balances are
// stored with.
const moneyScale = 2

// MovementCommandService is the ledger engine. Every balance-changing write
// runs inside store.WithAccountLocks, so the balance read, the non-negative
// check and both writes happen as one step per account.
type MovementCommandService struct {
	store   repository.LedgerStore
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewMovementCommandService(store repository.LedgerStore, collector *metrics.Collector, log *zap.Logger) *MovementCommandService {
	return &MovementCommandService{store: store, metrics: collector, log: log}
}

// CreateMovement appends a movement and moves the account balance by amount.
func (s *MovementCommandService) CreateMovement(ctx context.Context, cmd cqrs.CreateMovementCommand) (*models.Movement, error) {
	if err := validateAmount(cmd.Amount); err != nil {
		return nil, err
	}

	movement := &models.Movement{
		AccountID:    cmd.AccountID,
		MovementDate: cmd.MovementDate,
		MovementType: movementType(cmd.MovementType, cmd.Amount),
		Amount:       cmd.Amount,
		State:        defaultState(cmd.State, models.MovementStateActive),
	}
	if movement.MovementDate.IsZero() {
		movement.MovementDate = time.Now().UTC()
	}

	err := s.store.WithAccountLocks(ctx, []int64{cmd.AccountID}, func(tx repository.LedgerTx) error {
		current, err := currentBalance(ctx, tx, cmd.AccountID)
		if err != nil {
			return err
		}

		newBalance := current.Add(cmd.Amount)
		if newBalance.IsNegative() {
			s.log.Info("movement rejected, insufficient balance",
				zap.Int64("accountId", cmd.AccountID),
				zap.Stringer("balance", current),
				zap.Stringer("amount", cmd.Amount))
			return fmt.Errorf("%w: account %d holds %s", apperrors.ErrInsufficientBalance, cmd.AccountID, current)
		}

		count, err := tx.CountMovements(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		movement.MovementNumber = count + 1
		movement.Balance = newBalance

		if err := tx.InsertMovement(ctx, movement); err != nil {
			return err
		}
		return tx.SetAccountBalance(ctx, cmd.AccountID, newBalance)
	})
	s.metrics.Movement("create", outcome(err))
	if err != nil {
		return nil, err
	}

	s.log.Info("movement created",
		zap.Int64("movementId", movement.ID),
		zap.Int64("accountId", movement.AccountID),
		zap.Int64("movementNumber", movement.MovementNumber),
		zap.Stringer("amount", movement.Amount),
		zap.Stringer("balance", movement.Balance))
	return movement, nil
}

// UpdateMovement edits a movement in place and may move it to another
// account. When the amount changes, the movement's balance becomes the
// balance before it plus the new amount and the owning account takes that
// balance. Movements recorded after the edited one keep their balances.
func (s *MovementCommandService) UpdateMovement(ctx context.Context, cmd cqrs.UpdateMovementCommand) (*models.Movement, error) {
	if err := validateAmount(cmd.Amount); err != nil {
		return nil, err
	}
	existing, err := s.store.GetMovement(ctx, cmd.MovementID)
	if err != nil {
		return nil, err
	}
	target := cmd.AccountID
	if target == 0 {
		target = existing.AccountID
	}

	var updated *models.Movement
	err = s.store.WithAccountLocks(ctx, []int64{existing.AccountID, target}, func(tx repository.LedgerTx) error {
		m, err := tx.GetMovement(ctx, cmd.MovementID)
		if err != nil {
			return err
		}
		if m.AccountID != existing.AccountID {
			return fmt.Errorf("%w: movement %d was moved concurrently, retry", apperrors.ErrConflict, m.ID)
		}
		m.AccountID = target

		if !cmd.Amount.Equal(m.Amount) {
			previous := m.Balance.Sub(m.Amount)
			newBalance := previous.Add(cmd.Amount)
			if newBalance.IsNegative() {
				s.log.Info("movement update rejected, insufficient balance",
					zap.Int64("movementId", m.ID),
					zap.Stringer("previousBalance", previous),
					zap.Stringer("amount", cmd.Amount))
				return fmt.Errorf("%w: movement %d would leave %s", apperrors.ErrInsufficientBalance, m.ID, newBalance)
			}
			m.Amount = cmd.Amount
			m.Balance = newBalance
			if err := tx.SetAccountBalance(ctx, target, newBalance); err != nil {
				return err
			}
		}

		if !cmd.MovementDate.IsZero() {
			m.MovementDate = cmd.MovementDate
		}
		if cmd.MovementType != "" {
			m.MovementType = strings.ToUpper(cmd.MovementType)
		}
		if cmd.State != "" {
			m.State = defaultState(cmd.State, m.State)
		}

		if err := tx.UpdateMovement(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	s.metrics.Movement("update", outcome(err))
	if err != nil {
		return nil, err
	}

	s.log.Info("movement updated",
		zap.Int64("movementId", updated.ID),
		zap.Int64("accountId", updated.AccountID),
		zap.Stringer("amount", updated.Amount),
		zap.Stringer("balance", updated.Balance))
	return updated, nil
}

func (s *MovementCommandService) DeleteMovement(_ context.Context, cmd cqrs.DeleteMovementCommand) error {
	s.log.Warn("movement delete refused", zap.Int64("movementId", cmd.MovementID))
	return fmt.Errorf("%w: movements cannot be deleted", apperrors.ErrUnsupportedOperation)
}

// currentBalance is the balance of the most recently dated movement, or the
// account's own balance before its first movement.
func currentBalance(ctx context.Context, tx repository.LedgerTx, accountID int64) (decimal.Decimal, error) {
	latest, err := tx.LatestMovement(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if latest != nil {
		return latest.Balance, nil
	}
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", apperrors.ErrInvalidInput)
	}
	if !fitsMoneyScale(amount) {
		return fmt.Errorf("%w: amount must have at most %d decimal places", apperrors.ErrInvalidInput, moneyScale)
	}
	return nil
}

// fitsMoneyScale reports whether d is stored without rounding. Trailing
// zeros are fine: 10.000 fits, 0.004 does not.
func fitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale))
}

func movementType(requested string, amount decimal.Decimal) string {
	if t := strings.ToUpper(strings.TrimSpace(requested)); t != "" {
		return t
	}
	if amount.IsNegative() {
		return MovementTypeWithdrawal
	}
	return MovementTypeDeposit
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
