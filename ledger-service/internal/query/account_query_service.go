package query

import (
	"context"

	"github.com/eaglebank/corebank/ledger-service/internal/repository"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/models"
)

// ClientDirectory is the read side of the client resolver.
type ClientDirectory interface {
	Resolve(ctx context.Context, clientKey string) (*models.CachedClient, error)
	ResolveBestEffort(ctx context.Context, clientKey string) *models.CachedClient
}

// AccountQueryService serves account reads. Client names on account views are
// advisory and come from the best-effort resolver path.
type AccountQueryService struct {
	store   repository.LedgerReader
	clients ClientDirectory
}

func NewAccountQueryService(store repository.LedgerReader, clients ClientDirectory) *AccountQueryService {
	return &AccountQueryService{store: store, clients: clients}
}

func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	account, err := s.store.GetAccount(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	views := s.views(ctx, []models.Account{*account})
	return &views[0], nil
}

func (s *AccountQueryService) GetAccountByNumber(ctx context.Context, q cqrs.GetAccountByNumberQuery) (*models.AccountView, error) {
	account, err := s.store.GetAccountByNumber(ctx, q.AccountNumber)
	if err != nil {
		return nil, err
	}
	views := s.views(ctx, []models.Account{*account})
	return &views[0], nil
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	var (
		accounts []models.Account
		err      error
	)
	if q.ClientKey != "" {
		accounts, err = s.store.ListAccountsByClient(ctx, q.ClientKey)
	} else {
		accounts, err = s.store.ListAccounts(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.views(ctx, accounts), nil
}

// views resolves each distinct client key once per call.
func (s *AccountQueryService) views(ctx context.Context, accounts []models.Account) []models.AccountView {
	names := make(map[string]string)
	out := make([]models.AccountView, 0, len(accounts))
	for _, a := range accounts {
		name, ok := names[a.ClientKey]
		if !ok {
			name = s.clients.ResolveBestEffort(ctx, a.ClientKey).Name
			names[a.ClientKey] = name
		}
		out = append(out, models.AccountView{Account: a, ClientName: name})
	}
	return out
}
