package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/usecases"
)

// Pinger is a dependency the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WorkflowStarter starts durable registration and transfer workflows.
type WorkflowStarter interface {
	StartRegister(ctx context.Context, in domain.RegisterLandInput) (string, error)
	StartTransfer(ctx context.Context, in domain.TransferLandInput) (string, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Lands     *usecases.LandService
	Maps      *usecases.MapService
	Suggest   *usecases.SuggestService
	Workflows WorkflowStarter // nil disables ?async=true
	NATS      *nats.Conn
	DB        Pinger
	Cache     Pinger
	Ledger    Pinger
}
