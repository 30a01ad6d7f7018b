package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/pkg/metrics"
	"github.com/landledger/landledger/internal/pkg/telemetry"
)

// Contract implements ports.Ledger against a deployed LandLedger contract.
type Contract struct {
	session        *Session
	address        common.Address
	abi            abi.ABI
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// NewContract binds the contract at address through session.
func NewContract(session *Session, address string, confirmTimeout time.Duration) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &Contract{
		session:        session,
		address:        common.HexToAddress(address),
		abi:            parsed,
		confirmTimeout: confirmTimeout,
		pollInterval:   time.Second,
	}, nil
}

func (c *Contract) bound() (*bind.BoundContract, error) {
	backend, err := c.session.Backend()
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(c.address, c.abi, backend, backend, backend), nil
}

// call runs a view method and records its outcome.
func (c *Contract) call(ctx context.Context, method string, args ...interface{}) (out []interface{}, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger."+method)
	defer func() {
		metrics.LedgerCalls.WithLabelValues(method, metrics.Outcome(err)).Inc()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	bc, err := c.bound()
	if err != nil {
		return nil, err
	}
	if err := bc.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// Account returns the signing address, or "" when read-only.
func (c *Contract) Account() string {
	return c.session.Account()
}

// OwnerLands returns the IDs of the lands registered to owner.
func (c *Contract) OwnerLands(ctx context.Context, owner string) ([]uint64, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("%w: invalid Ethereum address %q", domain.ErrInvalidInput, owner)
	}
	out, err := c.call(ctx, "getOwnerLands", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		if !id.IsUint64() {
			return nil, fmt.Errorf("land id %s out of range", id)
		}
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

// LandDetails returns the stored record for id. Unknown IDs come back with
// Exists false.
func (c *Contract) LandDetails(ctx context.Context, id uint64) (*domain.Land, error) {
	out, err := c.call(ctx, "getLandDetails", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	t := *abi.ConvertType(out[0], new(landTuple)).(*landTuple)

	land := &domain.Land{
		ID:           id,
		Location:     t.Location,
		OwnerName:    t.OwnerName,
		DocumentHash: t.DocumentHash,
		Exists:       t.Exists,
	}
	if t.Exists {
		land.OwnerAddress = t.OwnerAddress.Hex()
	}
	return land, nil
}

// LandCount returns the number of lands ever registered.
func (c *Contract) LandCount(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "landCount")
	if err != nil {
		return 0, err
	}
	n := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !n.IsUint64() {
		return 0, fmt.Errorf("land count %s out of range", n)
	}
	return n.Uint64(), nil
}

// transact signs and sends a state-changing call and returns its hash.
func (c *Contract) transact(ctx context.Context, method string, args ...interface{}) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger."+method)
	defer span.End()

	opts, err := c.session.Transactor(ctx)
	if err != nil {
		return "", err
	}
	bc, err := c.bound()
	if err != nil {
		return "", err
	}
	tx, err := bc.Transact(opts, method, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%s: %w", method, err)
	}
	span.SetAttributes(attribute.String("tx.hash", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

// RegisterLand sends registerLand(location, ownerName, documentHash).
func (c *Contract) RegisterLand(ctx context.Context, in domain.RegisterLandInput) (string, error) {
	return c.transact(ctx, "registerLand", in.Location, in.OwnerName, in.DocumentHash)
}

// TransferOwnership sends transferOwnership(landId, newOwnerAddress, newOwnerName).
func (c *Contract) TransferOwnership(ctx context.Context, in domain.TransferLandInput) (string, error) {
	return c.transact(ctx, "transferOwnership",
		new(big.Int).SetUint64(in.LandID), common.HexToAddress(in.NewOwnerAddress), in.NewOwnerName)
}

// WaitConfirmed polls for the receipt of txHash until it is mined, the
// confirm timeout passes or ctx ends. A reverted transaction is an error.
func (c *Contract) WaitConfirmed(ctx context.Context, txHash string) error {
	backend, err := c.session.Backend()
	if err != nil {
		return err
	}
	if c.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.confirmTimeout)
		defer cancel()
	}

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash)
			}
			return nil
		case !errors.Is(err, goethereum.NotFound):
			return fmt.Errorf("receipt %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status describes the session and the contract.
func (c *Contract) Status(ctx context.Context) (*domain.LedgerStatus, error) {
	chainID, err := c.session.ChainID()
	if err != nil {
		return nil, err
	}
	count, err := c.LandCount(ctx)
	if err != nil {
		return nil, err
	}
	account := c.session.Account()
	return &domain.LedgerStatus{
		Account:         account,
		ContractAddress: c.address.Hex(),
		ChainID:         fmt.Sprintf("0x%x", chainID),
		LandCount:       count,
		Writable:        account != "",
	}, nil
}
