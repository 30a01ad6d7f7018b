package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/usecases"
)

// LandActivities holds the activity implementations for the land workflows.
type LandActivities struct {
	Lands   *usecases.LandService
	Indexer *usecases.IndexerService
}

// nonRetryable marks errors that another attempt cannot fix.
func nonRetryable(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrWalletNotConnected),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrSameOwner),
		errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "LandRejected", err)
	}
	return err
}

// SubmitRegistration validates and sends a registration transaction.
func (a *LandActivities) SubmitRegistration(ctx context.Context, in domain.RegisterLandInput) (*usecases.Submission, error) {
	sub, err := a.Lands.SubmitRegistration(ctx, in)
	if err != nil {
		return nil, nonRetryable(err)
	}
	activity.GetLogger(ctx).Info("registration submitted", "tx", sub.TxHash)
	return sub, nil
}

// SubmitTransfer validates and sends a transfer transaction.
func (a *LandActivities) SubmitTransfer(ctx context.Context, in domain.TransferLandInput) (*usecases.Submission, error) {
	sub, err := a.Lands.SubmitTransfer(ctx, in)
	if err != nil {
		return nil, nonRetryable(err)
	}
	activity.GetLogger(ctx).Info("transfer submitted", "tx", sub.TxHash, "land", in.LandID)
	return sub, nil
}

// ConfirmTransaction waits until txHash is mined.
func (a *LandActivities) ConfirmTransaction(ctx context.Context, method, txHash string) error {
	return a.Lands.Confirm(ctx, method, txHash)
}

// IndexRegistration stores the owner's lands and returns the new one.
func (a *LandActivities) IndexRegistration(ctx context.Context, sub *usecases.Submission) (*domain.Land, error) {
	return a.Lands.IndexRegistration(ctx, sub)
}

// IndexTransfer records a confirmed transfer.
func (a *LandActivities) IndexTransfer(ctx context.Context, sub *usecases.Submission, in domain.TransferLandInput) (*domain.Transfer, error) {
	return a.Lands.IndexTransfer(ctx, sub, in)
}

// PublishLandEvent announces a confirmed change.
func (a *LandActivities) PublishLandEvent(ctx context.Context, event *domain.LandEvent) error {
	return a.Lands.Publish(ctx, event)
}

// SyncIndex rebuilds the read model from the ledger.
func (a *LandActivities) SyncIndex(ctx context.Context) (usecases.SyncResult, error) {
	if a.Indexer == nil {
		return usecases.SyncResult{}, fmt.Errorf("indexer not configured")
	}
	return a.Indexer.Sync(ctx)
}
