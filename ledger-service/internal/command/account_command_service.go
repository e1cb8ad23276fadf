package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/corebank/ledger-service/internal/repository"
	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/eaglebank/corebank/shared/utils"
	"go.uber.org/zap"
)

// ClientResolver confirms that a client exists. Implementations must fail
// with apperrors.ErrNotFound rather than guess.
type ClientResolver interface {
	Resolve(ctx context.Context, clientKey string) (*models.CachedClient, error)
}

// AccountCommandService opens and edits accounts. Balances are never written
// here; they only move through MovementCommandService.
type AccountCommandService struct {
	store    repository.LedgerStore
	resolver ClientResolver
	log      *zap.Logger
}

func NewAccountCommandService(store repository.LedgerStore, resolver ClientResolver, log *zap.Logger) *AccountCommandService {
	return &AccountCommandService{store: store, resolver: resolver, log: log}
}

func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	if cmd.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance must not be negative", apperrors.ErrInvalidInput)
	}
	if !fitsMoneyScale(cmd.InitialBalance) {
		return nil, fmt.Errorf("%w: initial balance must have at most %d decimal places", apperrors.ErrInvalidInput, moneyScale)
	}
	if strings.TrimSpace(cmd.AccountType) == "" {
		return nil, fmt.Errorf("%w: account type is required", apperrors.ErrInvalidInput)
	}
	number := strings.TrimSpace(cmd.AccountNumber)
	if number == "" {
		number = utils.GenerateAccountNumber()
	} else if !utils.ValidateAccountNumber(number) {
		return nil, fmt.Errorf("%w: account number must be 6 to 20 digits", apperrors.ErrInvalidInput)
	}

	// Resolve before touching the store; no lock is held across the remote call.
	client, err := s.resolver.Resolve(ctx, cmd.ClientKey)
	if err != nil {
		s.log.Info("account rejected, client unresolved", zap.String("clientKey", cmd.ClientKey), zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	account := &models.Account{
		AccountNumber: number,
		AccountType:   cmd.AccountType,
		ClientKey:     client.ClientKey,
		Balance:       cmd.InitialBalance,
		State:         defaultState(cmd.State, models.AccountStateActive),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.Int64("accountId", account.ID),
		zap.String("accountNumber", account.AccountNumber),
		zap.String("clientKey", account.ClientKey),
		zap.Stringer("balance", account.Balance))
	return account, nil
}

// UpdateAccount edits descriptive fields. A changed client key is resolved
// again, exactly as on creation.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(cmd.ClientKey); key != "" && key != account.ClientKey {
		client, err := s.resolver.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		account.ClientKey = client.ClientKey
	}
	if number := strings.TrimSpace(cmd.AccountNumber); number != "" && number != account.AccountNumber {
		if !utils.ValidateAccountNumber(number) {
			return nil, fmt.Errorf("%w: account number must be 6 to 20 digits", apperrors.ErrInvalidInput)
		}
		account.AccountNumber = number
	}
	if cmd.AccountType != "" {
		account.AccountType = cmd.AccountType
	}
	if cmd.State != "" {
		account.State = defaultState(cmd.State, account.State)
	}
	account.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.log.Info("account updated", zap.Int64("accountId", account.ID))

	// re-read so the balance reflects any movement committed meanwhile
	return s.store.GetAccount(ctx, account.ID)
}

func (s *AccountCommandService) DeleteAccount(_ context.Context, cmd cqrs.DeleteAccountCommand) error {
	s.log.Warn("account delete refused", zap.Int64("accountId", cmd.AccountID))
	return fmt.Errorf("%w: accounts cannot be deleted", apperrors.ErrUnsupportedOperation)
}

func defaultState(state, fallback string) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return fallback
	}
	return state
}
