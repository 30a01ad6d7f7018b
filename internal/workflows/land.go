package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/usecases"
)

// Activity options per step. Submissions are sent once: a retried send
// could register the same land twice.
var (
	submitOpts = workflow.ActivityOptions{
		StartToCloseTimeout: 1 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	confirmOpts = workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 5,
		},
	}
	indexOpts = workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	syncOpts = workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	}
)

// RegisterLandWorkflow submits a registration, waits for the ledger to
// confirm it, indexes the new land and announces it. Once the ledger has
// confirmed, an indexing failure falls back to a full sync instead of
// failing the workflow.
func RegisterLandWorkflow(ctx workflow.Context, in domain.RegisterLandInput) (*usecases.RegisterResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting land registration", "owner", in.OwnerName)

	var sub usecases.Submission
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, submitOpts), "SubmitRegistration", in).Get(ctx, &sub)
	if err != nil {
		return nil, err
	}

	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, confirmOpts), "ConfirmTransaction", "registerLand", sub.TxHash).Get(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := &usecases.RegisterResult{TxHash: sub.TxHash}
	var land *domain.Land
	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, indexOpts), "IndexRegistration", &sub).Get(ctx, &land)
	if err != nil {
		logger.Warn("indexing failed, falling back to full sync", "tx", sub.TxHash, "error", err)
		syncIndex(ctx)
		return result, nil
	}
	result.Land = land

	if land != nil {
		publish(ctx, &domain.LandEvent{
			Type:         domain.EventRegistered,
			LandID:       land.ID,
			OwnerAddress: land.OwnerAddress,
			OwnerName:    land.OwnerName,
			TxHash:       sub.TxHash,
			Time:         workflow.Now(ctx).UTC(),
		})
	}

	logger.Info("Land registered", "tx", sub.TxHash)
	return result, nil
}

// TransferLandWorkflow submits a transfer, waits for confirmation, records
// it and announces it.
func TransferLandWorkflow(ctx workflow.Context, in domain.TransferLandInput) (*usecases.TransferResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting land transfer", "land", in.LandID)

	var sub usecases.Submission
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, submitOpts), "SubmitTransfer", in).Get(ctx, &sub)
	if err != nil {
		return nil, err
	}

	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, confirmOpts), "ConfirmTransaction", "transferOwnership", sub.TxHash).Get(ctx, nil)
	if err != nil {
		return nil, err
	}

	var transfer *domain.Transfer
	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, indexOpts), "IndexTransfer", &sub, in).Get(ctx, &transfer)
	if err != nil {
		logger.Warn("indexing failed, falling back to full sync", "tx", sub.TxHash, "error", err)
		syncIndex(ctx)
		transfer = &domain.Transfer{
			LandID:       in.LandID,
			FromAddress:  sub.Owner,
			ToAddress:    in.NewOwnerAddress,
			NewOwnerName: in.NewOwnerName,
			TxHash:       sub.TxHash,
			CreatedAt:    workflow.Now(ctx).UTC(),
		}
	}

	publish(ctx, &domain.LandEvent{
		Type:         domain.EventTransferred,
		LandID:       in.LandID,
		OwnerAddress: in.NewOwnerAddress,
		OwnerName:    in.NewOwnerName,
		FromAddress:  sub.Owner,
		TxHash:       sub.TxHash,
		Time:         transfer.CreatedAt,
	})

	logger.Info("Land transferred", "tx", sub.TxHash, "land", in.LandID)
	return &usecases.TransferResult{TxHash: sub.TxHash, Transfer: transfer}, nil
}

func publish(ctx workflow.Context, event *domain.LandEvent) {
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, indexOpts), "PublishLandEvent", event).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("publish failed", "type", event.Type, "land", event.LandID, "error", err)
	}
}

func syncIndex(ctx workflow.Context) {
	var res usecases.SyncResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, syncOpts), "SyncIndex").Get(ctx, &res)
	if err != nil {
		workflow.GetLogger(ctx).Error("full sync failed", "error", err)
	}
}
