package ports

import (
	"context"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

// LandRepository is the indexed read model of ledger lands.
type LandRepository interface {
	Upsert(ctx context.Context, land *domain.Land) error
	UpsertBatch(ctx context.Context, lands []domain.Land) error
	GetByID(ctx context.Context, id uint64) (*domain.Land, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Land, error)
	ListNear(ctx context.Context, p geometry.Point, radiusMeters float64, limit int) ([]domain.Land, error)
	Count(ctx context.Context) (int, error)
}

// TransferRepository persists confirmed ownership transfers.
type TransferRepository interface {
	Insert(ctx context.Context, t *domain.Transfer) error
	ListByLand(ctx context.Context, landID uint64) ([]domain.Transfer, error)
}
