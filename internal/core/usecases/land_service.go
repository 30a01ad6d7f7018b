package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/ports"
	"github.com/landledger/landledger/internal/pkg/geometry"
	"github.com/landledger/landledger/internal/pkg/metrics"
)

const ownerLandsTTL = 60 // seconds

// LandService handles registration, transfer and lookup of land records.
type LandService struct {
	ledger    ports.Ledger
	lands     ports.LandRepository
	transfers ports.TransferRepository
	publisher ports.EventPublisher
	cache     ports.CacheService
}

// NewLandService creates a new LandService. publisher and cache may be nil.
func NewLandService(
	ledger ports.Ledger,
	lands ports.LandRepository,
	transfers ports.TransferRepository,
	publisher ports.EventPublisher,
	cache ports.CacheService,
) *LandService {
	return &LandService{
		ledger:    ledger,
		lands:     lands,
		transfers: transfers,
		publisher: publisher,
		cache:     cache,
	}
}

// Submission is a transaction that has been sent but not yet confirmed.
type Submission struct {
	TxHash   string   `json:"tx_hash"`
	Owner    string   `json:"owner"`
	KnownIDs []uint64 `json:"known_ids,omitempty"` // owner's land IDs before a registration
}

// RegisterResult is returned once a registration is confirmed.
type RegisterResult struct {
	TxHash string       `json:"tx_hash"`
	Land   *domain.Land `json:"land,omitempty"`
}

// TransferResult is returned once a transfer is confirmed.
type TransferResult struct {
	TxHash   string           `json:"tx_hash"`
	Transfer *domain.Transfer `json:"transfer"`
}

func ownerCacheKey(owner string) string {
	return "lands:owner:" + strings.ToLower(owner)
}

// OwnerLands returns the existing lands held by owner, served from the cache
// when possible.
func (s *LandService) OwnerLands(ctx context.Context, owner string) ([]domain.Land, error) {
	if !IsEthAddress(owner) {
		return nil, fmt.Errorf("%w: invalid Ethereum address %q", domain.ErrInvalidInput, owner)
	}

	cacheKey := ownerCacheKey(owner)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var lands []domain.Land
			if err := json.Unmarshal(data, &lands); err == nil {
				metrics.CacheHits.WithLabelValues("owner_lands").Inc()
				return lands, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("owner_lands").Inc()
	}

	lands, err := s.fetchOwnerLands(ctx, owner)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(lands); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, ownerLandsTTL)
		}
	}
	return lands, nil
}

// fetchOwnerLands reads the owner's land IDs and their details from the
// ledger, dropping records that no longer exist.
func (s *LandService) fetchOwnerLands(ctx context.Context, owner string) ([]domain.Land, error) {
	ids, err := s.ledger.OwnerLands(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("owner lands: %w", err)
	}

	details := make([]*domain.Land, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			land, err := s.ledger.LandDetails(gctx, id)
			if err != nil {
				return fmt.Errorf("land %d details: %w", id, err)
			}
			details[i] = land
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lands := make([]domain.Land, 0, len(details))
	for _, land := range details {
		if land == nil || !land.Exists {
			continue
		}
		land.Area = land.DocumentHash
		lands = append(lands, *land)
	}
	return lands, nil
}

// Get returns a land from the index, falling back to the ledger.
func (s *LandService) Get(ctx context.Context, id uint64) (*domain.Land, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: land id must be positive", domain.ErrInvalidInput)
	}
	if s.lands != nil {
		land, err := s.lands.GetByID(ctx, id)
		if err == nil {
			return land, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	land, err := s.ledger.LandDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("land %d details: %w", id, err)
	}
	if !land.Exists {
		return nil, fmt.Errorf("land %d: %w", id, domain.ErrNotFound)
	}
	land.Area = land.DocumentHash
	return land, nil
}

const (
	maxNearRadius = 50_000 // meters
	maxNearLimit  = 100
)

// Near returns indexed lands whose centre lies within radiusMeters of p.
func (s *LandService) Near(ctx context.Context, p geometry.Point, radiusMeters float64, limit int) ([]domain.Land, error) {
	if s.lands == nil {
		return nil, fmt.Errorf("land index is not configured")
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	if radiusMeters <= 0 || radiusMeters > maxNearRadius {
		return nil, fmt.Errorf("%w: radius must be between 1 and %d meters", domain.ErrInvalidInput, maxNearRadius)
	}
	if limit <= 0 || limit > maxNearLimit {
		limit = 20
	}
	return s.lands.ListNear(ctx, p, radiusMeters, limit)
}

// History returns the confirmed transfers of a land, oldest first.
func (s *LandService) History(ctx context.Context, id uint64) ([]domain.Transfer, error) {
	if s.transfers == nil {
		return nil, nil
	}
	return s.transfers.ListByLand(ctx, id)
}

// Register submits a registration, waits for it to be confirmed, indexes the
// new land and announces it.
func (s *LandService) Register(ctx context.Context, in domain.RegisterLandInput) (*RegisterResult, error) {
	sub, err := s.SubmitRegistration(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Confirm(ctx, "registerLand", sub.TxHash); err != nil {
		return nil, err
	}
	land, err := s.IndexRegistration(ctx, sub)
	if err != nil {
		// The ledger already holds the land; a later sync will index it.
		slog.WarnContext(ctx, "index registration failed", "tx", sub.TxHash, "error", err)
		return &RegisterResult{TxHash: sub.TxHash}, nil
	}
	if land != nil {
		s.publish(ctx, &domain.LandEvent{
			Type:         domain.EventRegistered,
			LandID:       land.ID,
			OwnerAddress: land.OwnerAddress,
			OwnerName:    land.OwnerName,
			TxHash:       sub.TxHash,
			Time:         time.Now().UTC(),
		})
	}
	return &RegisterResult{TxHash: sub.TxHash, Land: land}, nil
}

// SubmitRegistration validates the form and sends the registration
// transaction without waiting for it.
func (s *LandService) SubmitRegistration(ctx context.Context, in domain.RegisterLandInput) (*Submission, error) {
	if err := ValidateRegistration(&in); err != nil {
		return nil, err
	}
	if loc := geometry.ParseLocation(in.Location); !loc.OK() {
		slog.WarnContext(ctx, "registering land with a location the map cannot display", "location", in.Location)
	}

	owner := s.ledger.Account()
	if owner == "" {
		return nil, domain.ErrWalletNotConnected
	}

	known, err := s.ledger.OwnerLands(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("owner lands: %w", err)
	}

	tx, err := s.ledger.RegisterLand(ctx, in)
	metrics.LedgerTransactions.WithLabelValues("registerLand", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("register land: %w", err)
	}
	slog.InfoContext(ctx, "registration submitted", "tx", tx, "owner", owner)
	return &Submission{TxHash: tx, Owner: owner, KnownIDs: known}, nil
}

// Confirm blocks until the transaction is mined or ctx ends.
func (s *LandService) Confirm(ctx context.Context, method, txHash string) error {
	start := time.Now()
	if err := s.ledger.WaitConfirmed(ctx, txHash); err != nil {
		metrics.LedgerTransactions.WithLabelValues(method, "unconfirmed").Inc()
		return fmt.Errorf("wait for %s: %w", txHash, err)
	}
	metrics.LedgerConfirmDuration.Observe(time.Since(start).Seconds())
	return nil
}

// IndexRegistration re-reads the owner's lands, stores them, drops the owner
// cache and returns the land the submission created.
func (s *LandService) IndexRegistration(ctx context.Context, sub *Submission) (*domain.Land, error) {
	lands, err := s.fetchOwnerLands(ctx, sub.Owner)
	if err != nil {
		return nil, err
	}
	if s.lands != nil && len(lands) > 0 {
		if err := s.lands.UpsertBatch(ctx, lands); err != nil {
			return nil, fmt.Errorf("upsert lands: %w", err)
		}
	}
	s.invalidate(ctx, sub.Owner)
	return newestUnknown(lands, sub.KnownIDs), nil
}

// newestUnknown returns the land with the highest ID not present in known.
func newestUnknown(lands []domain.Land, known []uint64) *domain.Land {
	seen := make(map[uint64]struct{}, len(known))
	for _, id := range known {
		seen[id] = struct{}{}
	}
	var fresh []domain.Land
	for _, l := range lands {
		if _, ok := seen[l.ID]; !ok {
			fresh = append(fresh, l)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID > fresh[j].ID })
	return &fresh[0]
}

// Transfer submits an ownership transfer, waits for confirmation, records it
// and announces it.
func (s *LandService) Transfer(ctx context.Context, in domain.TransferLandInput) (*TransferResult, error) {
	sub, err := s.SubmitTransfer(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Confirm(ctx, "transferOwnership", sub.TxHash); err != nil {
		return nil, err
	}
	t, err := s.IndexTransfer(ctx, sub, in)
	if err != nil {
		slog.WarnContext(ctx, "index transfer failed", "tx", sub.TxHash, "error", err)
		t = &domain.Transfer{
			LandID:       in.LandID,
			FromAddress:  sub.Owner,
			ToAddress:    in.NewOwnerAddress,
			NewOwnerName: in.NewOwnerName,
			TxHash:       sub.TxHash,
			CreatedAt:    time.Now().UTC(),
		}
	}
	s.publish(ctx, &domain.LandEvent{
		Type:         domain.EventTransferred,
		LandID:       in.LandID,
		OwnerAddress: in.NewOwnerAddress,
		OwnerName:    in.NewOwnerName,
		FromAddress:  sub.Owner,
		TxHash:       sub.TxHash,
		Time:         t.CreatedAt,
	})
	return &TransferResult{TxHash: sub.TxHash, Transfer: t}, nil
}

// SubmitTransfer validates the form, checks that the connected account owns
// the land and sends the transfer transaction.
func (s *LandService) SubmitTransfer(ctx context.Context, in domain.TransferLandInput) (*Submission, error) {
	if err := ValidateTransfer(&in); err != nil {
		return nil, err
	}

	owner := s.ledger.Account()
	if owner == "" {
		return nil, domain.ErrWalletNotConnected
	}

	land, err := s.ledger.LandDetails(ctx, in.LandID)
	if err != nil {
		return nil, fmt.Errorf("land %d details: %w", in.LandID, err)
	}
	if !land.Exists {
		return nil, fmt.Errorf("land %d: %w", in.LandID, domain.ErrNotFound)
	}
	if !strings.EqualFold(land.OwnerAddress, owner) {
		return nil, fmt.Errorf("land %d: %w", in.LandID, domain.ErrNotOwner)
	}
	if strings.EqualFold(in.NewOwnerAddress, owner) {
		return nil, fmt.Errorf("land %d: %w", in.LandID, domain.ErrSameOwner)
	}

	tx, err := s.ledger.TransferOwnership(ctx, in)
	metrics.LedgerTransactions.WithLabelValues("transferOwnership", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("transfer ownership: %w", err)
	}
	slog.InfoContext(ctx, "transfer submitted", "tx", tx, "land", in.LandID, "to", in.NewOwnerAddress)
	return &Submission{TxHash: tx, Owner: owner}, nil
}

// IndexTransfer stores the confirmed transfer and the land's new state.
func (s *LandService) IndexTransfer(ctx context.Context, sub *Submission, in domain.TransferLandInput) (*domain.Transfer, error) {
	t := &domain.Transfer{
		LandID:       in.LandID,
		FromAddress:  sub.Owner,
		ToAddress:    in.NewOwnerAddress,
		NewOwnerName: in.NewOwnerName,
		TxHash:       sub.TxHash,
		CreatedAt:    time.Now().UTC(),
	}
	defer s.invalidate(ctx, sub.Owner, in.NewOwnerAddress)

	if s.transfers != nil {
		if err := s.transfers.Insert(ctx, t); err != nil {
			return nil, fmt.Errorf("insert transfer: %w", err)
		}
	}
	if s.lands != nil {
		land, err := s.ledger.LandDetails(ctx, in.LandID)
		if err != nil {
			return nil, fmt.Errorf("land %d details: %w", in.LandID, err)
		}
		land.Area = land.DocumentHash
		if err := s.lands.Upsert(ctx, land); err != nil {
			return nil, fmt.Errorf("upsert land: %w", err)
		}
	}
	return t, nil
}

// Publish announces a land event. It is a no-op without a publisher.
func (s *LandService) Publish(ctx context.Context, event *domain.LandEvent) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishLandEvent(ctx, event)
}

func (s *LandService) publish(ctx context.Context, event *domain.LandEvent) {
	if err := s.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish land event failed", "type", event.Type, "land", event.LandID, "error", err)
	}
}

func (s *LandService) invalidate(ctx context.Context, owners ...string) {
	if s.cache == nil {
		return
	}
	for _, o := range owners {
		_ = s.cache.Delete(ctx, ownerCacheKey(o))
	}
}

// HandleLandEvent drops cached land lists touched by an event that another
// process published.
func (s *LandService) HandleLandEvent(ctx context.Context, event *domain.LandEvent) error {
	owners := []string{event.OwnerAddress}
	if event.FromAddress != "" {
		owners = append(owners, event.FromAddress)
	}
	s.invalidate(ctx, owners...)
	return nil
}

// Status reports the connected ledger.
func (s *LandService) Status(ctx context.Context) (*domain.LedgerStatus, error) {
	return s.ledger.Status(ctx)
}
