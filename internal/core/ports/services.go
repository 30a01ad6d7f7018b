package ports

import (
	"context"

	"github.com/landledger/landledger/internal/core/domain"
)

// Ledger is the land-ledger smart contract as seen through a connected session.
type Ledger interface {
	Account() string
	OwnerLands(ctx context.Context, owner string) ([]uint64, error)
	LandDetails(ctx context.Context, id uint64) (*domain.Land, error)
	LandCount(ctx context.Context) (uint64, error)
	RegisterLand(ctx context.Context, in domain.RegisterLandInput) (string, error)
	TransferOwnership(ctx context.Context, in domain.TransferLandInput) (string, error)
	WaitConfirmed(ctx context.Context, txHash string) error
	Status(ctx context.Context) (*domain.LedgerStatus, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLandEvent(ctx context.Context, event *domain.LandEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeLandEvents(ctx context.Context, handler func(ctx context.Context, event *domain.LandEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// LocationSuggester turns a free-text description into a location string.
type LocationSuggester interface {
	SuggestLocation(ctx context.Context, description string) (string, error)
}
