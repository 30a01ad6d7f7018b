package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/landledger/landledger/internal/core/domain"
)

// Starter launches land workflows on a task queue.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartRegister starts RegisterLandWorkflow and returns its workflow ID.
func (s *Starter) StartRegister(ctx context.Context, in domain.RegisterLandInput) (string, error) {
	return s.start(ctx, "register-land-"+uuid.NewString(), RegisterLandWorkflow, in)
}

// StartTransfer starts TransferLandWorkflow and returns its workflow ID.
func (s *Starter) StartTransfer(ctx context.Context, in domain.TransferLandInput) (string, error) {
	return s.start(ctx, fmt.Sprintf("transfer-land-%d-%s", in.LandID, uuid.NewString()), TransferLandWorkflow, in)
}

func (s *Starter) start(ctx context.Context, id string, wf interface{}, arg interface{}) (string, error) {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.taskQueue,
	}, wf, arg)
	if err != nil {
		return "", fmt.Errorf("start workflow %s: %w", id, err)
	}
	return run.GetID(), nil
}
