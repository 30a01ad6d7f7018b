package usecases_test

import (
	"context"
	"sync"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

// --- Mock Ledger ---

type mockLedger struct {
	account        string
	ownerLandsFn   func(ctx context.Context, owner string) ([]uint64, error)
	landDetailsFn  func(ctx context.Context, id uint64) (*domain.Land, error)
	landCountFn    func(ctx context.Context) (uint64, error)
	registerFn     func(ctx context.Context, in domain.RegisterLandInput) (string, error)
	transferFn     func(ctx context.Context, in domain.TransferLandInput) (string, error)
	waitFn         func(ctx context.Context, tx string) error
	statusFn       func(ctx context.Context) (*domain.LedgerStatus, error)
	registerCalled bool
	transferCalled bool
}

func (m *mockLedger) Account() string { return m.account }

func (m *mockLedger) OwnerLands(ctx context.Context, owner string) ([]uint64, error) {
	if m.ownerLandsFn != nil {
		return m.ownerLandsFn(ctx, owner)
	}
	return nil, nil
}

func (m *mockLedger) LandDetails(ctx context.Context, id uint64) (*domain.Land, error) {
	if m.landDetailsFn != nil {
		return m.landDetailsFn(ctx, id)
	}
	return &domain.Land{ID: id}, nil
}

func (m *mockLedger) LandCount(ctx context.Context) (uint64, error) {
	if m.landCountFn != nil {
		return m.landCountFn(ctx)
	}
	return 0, nil
}

func (m *mockLedger) RegisterLand(ctx context.Context, in domain.RegisterLandInput) (string, error) {
	m.registerCalled = true
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return "0xtx", nil
}

func (m *mockLedger) TransferOwnership(ctx context.Context, in domain.TransferLandInput) (string, error) {
	m.transferCalled = true
	if m.transferFn != nil {
		return m.transferFn(ctx, in)
	}
	return "0xtx", nil
}

func (m *mockLedger) WaitConfirmed(ctx context.Context, tx string) error {
	if m.waitFn != nil {
		return m.waitFn(ctx, tx)
	}
	return nil
}

func (m *mockLedger) Status(ctx context.Context) (*domain.LedgerStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return &domain.LedgerStatus{}, nil
}

// --- Mock LandRepository ---

type mockLandRepo struct {
	mu    sync.Mutex
	lands map[uint64]domain.Land
}

func newMockLandRepo(lands ...domain.Land) *mockLandRepo {
	r := &mockLandRepo{lands: make(map[uint64]domain.Land)}
	for _, l := range lands {
		r.lands[l.ID] = l
	}
	return r
}

func (m *mockLandRepo) Upsert(ctx context.Context, land *domain.Land) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lands[land.ID] = *land
	return nil
}

func (m *mockLandRepo) UpsertBatch(ctx context.Context, lands []domain.Land) error {
	for i := range lands {
		_ = m.Upsert(ctx, &lands[i])
	}
	return nil
}

func (m *mockLandRepo) GetByID(ctx context.Context, id uint64) (*domain.Land, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lands[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *mockLandRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Land, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Land
	for _, l := range m.lands {
		if l.OwnerAddress == owner {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLandRepo) ListNear(ctx context.Context, p geometry.Point, radiusMeters float64, limit int) ([]domain.Land, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Land
	for _, l := range m.lands {
		if loc := geometry.ParseLocation(l.Location); loc.OK() && geometry.Centroid(loc.Boundary) == p {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLandRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lands), nil
}

// --- Mock TransferRepository ---

type mockTransferRepo struct {
	inserted []domain.Transfer
}

func (m *mockTransferRepo) Insert(ctx context.Context, t *domain.Transfer) error {
	m.inserted = append(m.inserted, *t)
	return nil
}

func (m *mockTransferRepo) ListByLand(ctx context.Context, landID uint64) ([]domain.Transfer, error) {
	var out []domain.Transfer
	for _, t := range m.inserted {
		if t.LandID == landID {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events []domain.LandEvent
}

func (m *mockPublisher) PublishLandEvent(ctx context.Context, e *domain.LandEvent) error {
	m.events = append(m.events, *e)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.data, key)
	return nil
}

// --- Mock LocationSuggester ---

type mockSuggester struct {
	reply string
	err   error
}

func (m *mockSuggester) SuggestLocation(ctx context.Context, description string) (string, error) {
	return m.reply, m.err
}
