package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/ports"
	"github.com/landledger/landledger/internal/pkg/metrics"
)

const indexBatchSize = 100

// SyncResult summarises one pass over the ledger.
type SyncResult struct {
	Scanned     uint64 `json:"scanned"`
	Indexed     int    `json:"indexed"`
	Registered  int    `json:"registered"`
	Transferred int    `json:"transferred"`
	Missing     int    `json:"missing"`
}

// IndexerService mirrors ledger lands into the read model and announces
// registrations and transfers that happened outside this service.
type IndexerService struct {
	ledger    ports.Ledger
	lands     ports.LandRepository
	transfers ports.TransferRepository
	publisher ports.EventPublisher
}

// NewIndexerService creates a new IndexerService.
func NewIndexerService(
	ledger ports.Ledger,
	lands ports.LandRepository,
	transfers ports.TransferRepository,
	publisher ports.EventPublisher,
) *IndexerService {
	return &IndexerService{ledger: ledger, lands: lands, transfers: transfers, publisher: publisher}
}

// Sync walks land IDs 1..LandCount and stores every existing land.
func (s *IndexerService) Sync(ctx context.Context) (res SyncResult, err error) {
	defer func() {
		metrics.IndexerRuns.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	count, err := s.ledger.LandCount(ctx)
	if err != nil {
		return res, fmt.Errorf("land count: %w", err)
	}

	batch := make([]domain.Land, 0, indexBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.lands.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		res.Indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	for id := uint64(1); id <= count; id++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		land, err := s.ledger.LandDetails(ctx, id)
		if err != nil {
			return res, fmt.Errorf("land %d details: %w", id, err)
		}
		if !land.Exists {
			res.Missing++
			continue
		}
		land.Area = land.DocumentHash

		if err := s.diff(ctx, land, &res); err != nil {
			return res, err
		}

		batch = append(batch, *land)
		if len(batch) == indexBatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	metrics.IndexedLands.Set(float64(res.Indexed))
	slog.InfoContext(ctx, "ledger sync complete",
		"scanned", res.Scanned, "indexed", res.Indexed,
		"registered", res.Registered, "transferred", res.Transferred, "missing", res.Missing)
	return res, nil
}

// diff compares land against the stored copy and emits events for changes.
func (s *IndexerService) diff(ctx context.Context, land *domain.Land, res *SyncResult) error {
	prev, err := s.lands.GetByID(ctx, land.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Registered++
		s.publish(ctx, &domain.LandEvent{
			Type:         domain.EventRegistered,
			LandID:       land.ID,
			OwnerAddress: land.OwnerAddress,
			OwnerName:    land.OwnerName,
			Time:         time.Now().UTC(),
		})
		return nil
	case err != nil:
		return fmt.Errorf("land %d lookup: %w", land.ID, err)
	}

	if strings.EqualFold(prev.OwnerAddress, land.OwnerAddress) {
		return nil
	}
	res.Transferred++
	t := &domain.Transfer{
		LandID:       land.ID,
		FromAddress:  prev.OwnerAddress,
		ToAddress:    land.OwnerAddress,
		NewOwnerName: land.OwnerName,
		CreatedAt:    time.Now().UTC(),
	}
	if s.transfers != nil {
		if err := s.transfers.Insert(ctx, t); err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
	}
	s.publish(ctx, &domain.LandEvent{
		Type:         domain.EventTransferred,
		LandID:       land.ID,
		OwnerAddress: land.OwnerAddress,
		OwnerName:    land.OwnerName,
		FromAddress:  prev.OwnerAddress,
		Time:         t.CreatedAt,
	})
	return nil
}

func (s *IndexerService) publish(ctx context.Context, event *domain.LandEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLandEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish land event failed", "type", event.Type, "land", event.LandID, "error", err)
	}
}

// Run syncs every interval until ctx is cancelled.
func (s *IndexerService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "ledger sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
