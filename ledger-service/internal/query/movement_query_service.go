package query

import (
	"context"

	"github.com/eaglebank/corebank/ledger-service/internal/repository"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/models"
)

type MovementQueryService struct {
	store repository.LedgerReader
}

func NewMovementQueryService(store repository.LedgerReader) *MovementQueryService {
	return &MovementQueryService{store: store}
}

func (s *MovementQueryService) GetMovement(ctx context.Context, q cqrs.GetMovementQuery) (*models.Movement, error) {
	return s.store.GetMovement(ctx, q.MovementID)
}

// ListMovements returns one account's movements newest first, or every
// movement by id when no account is given.
func (s *MovementQueryService) ListMovements(ctx context.Context, q cqrs.ListMovementsQuery) ([]models.Movement, error) {
	if q.AccountID != 0 {
		if _, err := s.store.GetAccount(ctx, q.AccountID); err != nil {
			return nil, err
		}
		return s.store.ListMovementsByAccount(ctx, q.AccountID)
	}
	return s.store.ListMovements(ctx)
}
