package query

import (
	"context"

	"github.com/eaglebank/corebank/client-service/internal/repository"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/models"
)

// ClientQueryService reads clients straight from the store; it is the
// authoritative source the ledger side falls back to on a cache miss.
type ClientQueryService struct {
	store repository.ClientStore
}

func NewClientQueryService(store repository.ClientStore) *ClientQueryService {
	return &ClientQueryService{store: store}
}

func (s *ClientQueryService) GetClient(ctx context.Context, q cqrs.GetClientQuery) (*models.Client, error) {
	return s.store.GetByID(ctx, q.ID)
}

func (s *ClientQueryService) GetClientByKey(ctx context.Context, q cqrs.GetClientByKeyQuery) (*models.Client, error) {
	return s.store.GetByKey(ctx, q.ClientKey)
}

func (s *ClientQueryService) ListClients(ctx context.Context) ([]models.Client, error) {
	return s.store.List(ctx)
}
