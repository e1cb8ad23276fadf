package query

import (
	"context"
	"fmt"
	"time"

	"github.com/eaglebank/corebank/ledger-service/internal/repository"
	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatementService rebuilds each account's balance trajectory over a date
// window from the stored movements.
type StatementService struct {
	store   repository.LedgerReader
	clients ClientDirectory
	log     *zap.Logger
}

func NewStatementService(store repository.LedgerReader, clients ClientDirectory, log *zap.Logger) *StatementService {
	return &StatementService{store: store, clients: clients, log: log}
}

func (s *StatementService) GenerateStatement(ctx context.Context, q cqrs.StatementQuery) (*models.Statement, error) {
	if q.ClientKey == "" {
		return nil, fmt.Errorf("%w: client key is required", apperrors.ErrInvalidInput)
	}
	if q.StartDate.After(q.EndDate) {
		return nil, fmt.Errorf("%w: start date is after end date", apperrors.ErrInvalidInput)
	}

	accounts, err := s.store.ListAccountsByClient(ctx, q.ClientKey)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: client %s has no accounts", apperrors.ErrNotFound, q.ClientKey)
	}

	// A statement naming the wrong client is worse than none.
	client, err := s.clients.Resolve(ctx, q.ClientKey)
	if err != nil {
		return nil, err
	}

	statement := &models.Statement{
		ReportDate: time.Now().UTC(),
		Client:     models.StatementClient{ClientKey: client.ClientKey, ClientName: client.Name},
		Accounts:   make([]models.StatementAccount, 0, len(accounts)),
		Summary: models.StatementSummary{
			TotalDeposits:    decimal.Zero,
			TotalWithdrawals: decimal.Zero,
			NetChange:        decimal.Zero,
		},
	}

	for _, account := range accounts {
		line, err := s.accountLine(ctx, account, q.StartDate, q.EndDate)
		if err != nil {
			return nil, err
		}
		statement.Accounts = append(statement.Accounts, line)

		sum := &statement.Summary
		sum.TotalMovements += len(line.Movements)
		for _, m := range line.Movements {
			if m.Amount.IsPositive() {
				sum.TotalDeposits = sum.TotalDeposits.Add(m.Amount)
			} else {
				sum.TotalWithdrawals = sum.TotalWithdrawals.Add(m.Amount)
			}
		}
		sum.NetChange = sum.NetChange.Add(line.FinalBalance.Sub(line.InitialBalance))
	}
	statement.Summary.TotalAccounts = len(statement.Accounts)

	s.log.Info("statement generated",
		zap.String("clientKey", q.ClientKey),
		zap.Time("start", q.StartDate),
		zap.Time("end", q.EndDate),
		zap.Int("accounts", statement.Summary.TotalAccounts),
		zap.Int("movements", statement.Summary.TotalMovements))
	return statement, nil
}

func (s *StatementService) accountLine(ctx context.Context, account models.Account, start, end time.Time) (models.StatementAccount, error) {
	inRange, err := s.store.ListMovementsInRange(ctx, account.ID, start, end)
	if err != nil {
		return models.StatementAccount{}, err
	}
	all, err := s.store.ListMovementsByAccount(ctx, account.ID)
	if err != nil {
		return models.StatementAccount{}, err
	}

	initial := account.Balance
	if len(inRange) > 0 {
		first := inRange[0].MovementDate
		// all is newest first, so the first match is the latest earlier movement
		for _, m := range all {
			if m.MovementDate.Before(first) {
				initial = m.Balance
				break
			}
		}
	}
	final := initial
	if len(inRange) > 0 {
		final = inRange[len(inRange)-1].Balance
	}

	line := models.StatementAccount{
		AccountID:      account.ID,
		AccountNumber:  account.AccountNumber,
		AccountType:    account.AccountType,
		ClientKey:      account.ClientKey,
		InitialBalance: initial,
		FinalBalance:   final,
		Movements:      make([]models.StatementMovement, 0, len(inRange)),
	}
	for _, m := range inRange {
		line.Movements = append(line.Movements, models.StatementMovement{
			MovementID:     m.ID,
			MovementNumber: m.MovementNumber,
			MovementDate:   m.MovementDate,
			MovementType:   m.MovementType,
			Amount:         m.Amount,
			Balance:        m.Balance,
			State:          m.State,
		})
	}
	return line, nil
}
