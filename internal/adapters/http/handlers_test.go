package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/landledger/landledger/internal/adapters/http"
	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/usecases"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

// ---- Mocks ----

type fakeLedger struct {
	mu      sync.Mutex
	account string
	lands   map[uint64]*domain.Land
	owned   map[string][]uint64
	txs     int
	waitErr error
}

func newFakeLedger(account string, lands ...domain.Land) *fakeLedger {
	l := &fakeLedger{account: account, lands: map[uint64]*domain.Land{}, owned: map[string][]uint64{}}
	for i := range lands {
		land := lands[i]
		l.lands[land.ID] = &land
		key := strings.ToLower(land.OwnerAddress)
		l.owned[key] = append(l.owned[key], land.ID)
	}
	return l
}

// txHash is unique across runs; the transfer index dedupes on it.
func (l *fakeLedger) txHash() string {
	return fmt.Sprintf("0x%016x%048x", time.Now().UnixNano(), l.txs)
}

func (l *fakeLedger) Account() string { return l.account }
func (l *fakeLedger) OwnerLands(ctx context.Context, owner string) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint64(nil), l.owned[strings.ToLower(owner)]...), nil
}
func (l *fakeLedger) LandDetails(ctx context.Context, id uint64) (*domain.Land, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	land, ok := l.lands[id]
	if !ok {
		return &domain.Land{ID: id}, nil
	}
	cp := *land
	return &cp, nil
}
func (l *fakeLedger) LandCount(ctx context.Context) (uint64, error) { return uint64(len(l.lands)), nil }
func (l *fakeLedger) RegisterLand(ctx context.Context, in domain.RegisterLandInput) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uint64(len(l.lands) + 1)
	l.lands[id] = &domain.Land{ID: id, Location: in.Location, OwnerName: in.OwnerName,
		OwnerAddress: l.account, DocumentHash: in.DocumentHash, Exists: true}
	key := strings.ToLower(l.account)
	l.owned[key] = append(l.owned[key], id)
	l.txs++
	return l.txHash(), nil
}
func (l *fakeLedger) TransferOwnership(ctx context.Context, in domain.TransferLandInput) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lands[in.LandID].OwnerAddress = in.NewOwnerAddress
	l.lands[in.LandID].OwnerName = in.NewOwnerName
	l.txs++
	return l.txHash(), nil
}
func (l *fakeLedger) WaitConfirmed(ctx context.Context, txHash string) error { return l.waitErr }
func (l *fakeLedger) Status(ctx context.Context) (*domain.LedgerStatus, error) {
	return &domain.LedgerStatus{Account: l.account, ChainID: "0xaa36a7", LandCount: uint64(len(l.lands)), Writable: l.account != ""}, nil
}

type mockLandRepo struct {
	getByIDFn  func(ctx context.Context, id uint64) (*domain.Land, error)
	listNearFn func(ctx context.Context, p geometry.Point, radius float64, limit int) ([]domain.Land, error)
}

func (m *mockLandRepo) Upsert(ctx context.Context, land *domain.Land) error        { return nil }
func (m *mockLandRepo) UpsertBatch(ctx context.Context, lands []domain.Land) error { return nil }
func (m *mockLandRepo) GetByID(ctx context.Context, id uint64) (*domain.Land, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockLandRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Land, error) {
	return nil, nil
}
func (m *mockLandRepo) ListNear(ctx context.Context, p geometry.Point, radius float64, limit int) ([]domain.Land, error) {
	if m.listNearFn != nil {
		return m.listNearFn(ctx, p, radius, limit)
	}
	return nil, nil
}
func (m *mockLandRepo) Count(ctx context.Context) (int, error) { return 0, nil }

type mockTransferRepo struct {
	inserted     []domain.Transfer
	listByLandFn func(ctx context.Context, id uint64) ([]domain.Transfer, error)
}

func (m *mockTransferRepo) Insert(ctx context.Context, t *domain.Transfer) error {
	m.inserted = append(m.inserted, *t)
	return nil
}
func (m *mockTransferRepo) ListByLand(ctx context.Context, id uint64) ([]domain.Transfer, error) {
	if m.listByLandFn != nil {
		return m.listByLandFn(ctx, id)
	}
	return nil, nil
}

type mockSuggester struct {
	reply string
	err   error
}

func (m *mockSuggester) SuggestLocation(ctx context.Context, description string) (string, error) {
	return m.reply, m.err
}

type mockStarter struct {
	registered []domain.RegisterLandInput
	transfers  []domain.TransferLandInput
}

func (m *mockStarter) StartRegister(ctx context.Context, in domain.RegisterLandInput) (string, error) {
	m.registered = append(m.registered, in)
	return "register-land-1", nil
}
func (m *mockStarter) StartTransfer(ctx context.Context, in domain.TransferLandInput) (string, error) {
	m.transfers = append(m.transfers, in)
	return fmt.Sprintf("transfer-land-%d", in.LandID), nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(ledger *fakeLedger, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Lands:   usecases.NewLandService(ledger, &mockLandRepo{}, &mockTransferRepo{}, nil, nil),
		Maps:    usecases.NewMapService(),
		Suggest: usecases.NewSuggestService(&mockSuggester{reply: "34.05,-118.24"}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error: %v (%s)", err, body)
	}
	return apiErr.Code
}

var square = `[{"lat":0,"lng":0},{"lat":0,"lng":2},{"lat":2,"lng":2},{"lat":2,"lng":0}]`

func ownedLands() *fakeLedger {
	return newFakeLedger(alice,
		domain.Land{ID: 1, Location: square, OwnerName: "Alice", OwnerAddress: alice, DocumentHash: "400000000.00", Exists: true},
		domain.Land{ID: 2, Location: "34.05,-118.24", OwnerName: "Alice", OwnerAddress: alice, DocumentHash: "0.00", Exists: true},
		domain.Land{ID: 3, Location: "somewhere", OwnerName: "Alice", OwnerAddress: alice, DocumentHash: "1.00", Exists: true},
		domain.Land{ID: 4, Location: "1,1", OwnerName: "Alice", OwnerAddress: alice, Exists: false},
	)
}

// ---- Owner handlers ----

func TestOwnerLands_Success(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	status, body := do(t, app, "GET", "/v1/owners/"+alice+"/lands", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var result struct {
		Data       []domain.Land `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 3 || len(result.Data) != 3 {
		t.Errorf("expected 3 existing lands, got total=%d len=%d", result.Pagination.Total, len(result.Data))
	}
	if result.Data[0].Area != "400000000.00" {
		t.Errorf("area should mirror document hash, got %q", result.Data[0].Area)
	}
}

func TestOwnerLands_Pagination(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	req := httptest.NewRequest("GET", "/v1/owners/"+alice+"/lands?offset=1&limit=1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header missing %s: %s", rel, link)
		}
	}
	var result handler.PaginatedResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Offset != 1 || result.Pagination.Limit != 1 || result.Pagination.Total != 3 {
		t.Errorf("unexpected pagination %+v", result.Pagination)
	}
}

func TestOwnerLands_InvalidAddress(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	status, body := do(t, app, "GET", "/v1/owners/not-an-address/lands", nil)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if code := errorCode(t, body); code != "bad_request" {
		t.Errorf("expected bad_request, got %s", code)
	}
}

func TestOwnerMap_SkipsUnparsable(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	status, body := do(t, app, "GET", "/v1/owners/"+alice+"/map", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var view domain.MapView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Markers) != 2 || view.Skipped != 1 {
		t.Fatalf("expected 2 markers and 1 skipped, got %d and %d", len(view.Markers), view.Skipped)
	}
	if view.Center != (geometry.Point{Lat: 1, Lng: 1}) {
		t.Errorf("expected center of the first marker (1,1), got %+v", view.Center)
	}
	if !strings.Contains(view.Note, "1 land(s)") {
		t.Errorf("expected skip note, got %q", view.Note)
	}
}

func TestOwnerGeoJSON(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	req := httptest.NewRequest("GET", "/v1/owners/"+alice+"/geojson", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected geo+json content type, got %q", ct)
	}
	if s := resp.Header.Get("X-Skipped-Locations"); s != "1" {
		t.Errorf("expected 1 skipped location, got %q", s)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	json.NewDecoder(resp.Body).Decode(&fc)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("unexpected collection %+v", fc)
	}
	if fc.Features[0].Geometry.Type != "Polygon" || fc.Features[1].Geometry.Type != "Point" {
		t.Errorf("expected Polygon then Point, got %s and %s", fc.Features[0].Geometry.Type, fc.Features[1].Geometry.Type)
	}
}

// ---- Land handlers ----

func TestGetLand(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"from ledger", "/v1/lands/2", 200},
		{"missing", "/v1/lands/99", 404},
		{"zero id", "/v1/lands/0", 400},
		{"not a number", "/v1/lands/abc", 400},
	}
	app := setupApp(makeDeps(ownedLands()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "GET", tt.path, nil)
			if status != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, status, body)
			}
		})
	}
}

func TestGetLand_FromIndex(t *testing.T) {
	deps := makeDeps(newFakeLedger(""), func(d *handler.Dependencies) {
		d.Lands = usecases.NewLandService(newFakeLedger(""), &mockLandRepo{
			getByIDFn: func(ctx context.Context, id uint64) (*domain.Land, error) {
				return &domain.Land{ID: id, OwnerName: "Indexed", Exists: true}, nil
			},
		}, nil, nil, nil)
	})
	status, body := do(t, setupApp(deps), "GET", "/v1/lands/7", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var land domain.Land
	json.Unmarshal(body, &land)
	if land.OwnerName != "Indexed" || land.ID != 7 {
		t.Errorf("unexpected land %+v", land)
	}
}

func TestLandTransfers(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	deps := makeDeps(ownedLands(), func(d *handler.Dependencies) {
		d.Lands = usecases.NewLandService(ownedLands(), &mockLandRepo{}, &mockTransferRepo{
			listByLandFn: func(ctx context.Context, id uint64) ([]domain.Transfer, error) {
				return []domain.Transfer{{LandID: id, FromAddress: alice, ToAddress: bob, TxHash: "0xabc", CreatedAt: created}}, nil
			},
		}, nil, nil)
	})

	status, body := do(t, setupApp(deps), "GET", "/v1/lands/1/transfers", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var transfers []domain.Transfer
	json.Unmarshal(body, &transfers)
	if len(transfers) != 1 || transfers[0].ToAddress != bob {
		t.Errorf("unexpected transfers %+v", transfers)
	}
}

func TestLandTransfers_EmptyIsArray(t *testing.T) {
	status, body := do(t, setupApp(makeDeps(ownedLands())), "GET", "/v1/lands/1/transfers", nil)
	if status != 200 || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected 200 with [], got %d %s", status, body)
	}
}

func TestNearLands(t *testing.T) {
	var gotRadius float64
	var gotLimit int
	deps := makeDeps(ownedLands(), func(d *handler.Dependencies) {
		d.Lands = usecases.NewLandService(ownedLands(), &mockLandRepo{
			listNearFn: func(ctx context.Context, p geometry.Point, radius float64, limit int) ([]domain.Land, error) {
				gotRadius, gotLimit = radius, limit
				return []domain.Land{{ID: 2, Location: "34.05,-118.24", Exists: true}}, nil
			},
		}, nil, nil, nil)
	})
	app := setupApp(deps)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"ok", "?lat=34.05&lng=-118.24&radius=500", 200},
		{"missing lng", "?lat=34.05", 400},
		{"radius too large", "?lat=34.05&lng=-118.24&radius=60000", 400},
		{"latitude out of range", "?lat=95&lng=0", 400},
		{"non numeric lat", "?lat=abc&lng=-118.24", 400},
		{"non numeric lng", "?lat=34.05&lng=west", 400},
		{"non numeric radius", "?lat=34.05&lng=-118.24&radius=far", 400},
		{"nan lat", "?lat=NaN&lng=0", 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "GET", "/v1/lands/near"+tt.query, nil)
			if status != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, status, body)
			}
		})
	}
	if gotRadius != 500 || gotLimit != 20 {
		t.Errorf("expected radius 500 and default limit 20, got %v and %d", gotRadius, gotLimit)
	}
}

// ---- Writes ----

func TestRegisterLand_Success(t *testing.T) {
	ledger := newFakeLedger(alice)
	app := setupApp(makeDeps(ledger))

	status, body := do(t, app, "POST", "/v1/lands", domain.RegisterLandInput{
		Location: square, OwnerName: " Alice ", DocumentHash: "400000000.00",
	})
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	var res usecases.RegisterResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.TxHash == "" || res.Land == nil || res.Land.ID != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Land.OwnerName != "Alice" {
		t.Errorf("owner name should be trimmed, got %q", res.Land.OwnerName)
	}
}

func TestRegisterLand_Errors(t *testing.T) {
	valid := domain.RegisterLandInput{Location: "1,2", OwnerName: "Alice", DocumentHash: "0.00"}
	tests := []struct {
		name   string
		ledger *fakeLedger
		body   interface{}
		status int
		code   string
	}{
		{"missing fields", newFakeLedger(alice), domain.RegisterLandInput{OwnerName: "Alice"}, 400, "bad_request"},
		{"blank fields", newFakeLedger(alice), domain.RegisterLandInput{Location: " ", OwnerName: " ", DocumentHash: " "}, 400, "bad_request"},
		{"read-only session", newFakeLedger(""), valid, 401, "unauthorized"},
		{"not confirmed", &fakeLedger{account: alice, lands: map[uint64]*domain.Land{}, owned: map[string][]uint64{}, waitErr: errors.New("reverted")}, valid, 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, setupApp(makeDeps(tt.ledger)), "POST", "/v1/lands", tt.body)
			if status != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, status, body)
			}
			if code := errorCode(t, body); code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, code)
			}
		})
	}
}

func TestRegisterLand_BadJSON(t *testing.T) {
	app := setupApp(makeDeps(newFakeLedger(alice)))
	req := httptest.NewRequest("POST", "/v1/lands", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRegisterLand_Async(t *testing.T) {
	starter := &mockStarter{}
	app := setupApp(makeDeps(newFakeLedger(alice), func(d *handler.Dependencies) { d.Workflows = starter }))

	status, body := do(t, app, "POST", "/v1/lands?async=true", domain.RegisterLandInput{
		Location: "1,2", OwnerName: "Alice", DocumentHash: "0.00",
	})
	if status != 202 {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"workflow_id":"register-land-1"`) {
		t.Errorf("unexpected body %s", body)
	}
	if len(starter.registered) != 1 {
		t.Errorf("expected one started workflow, got %d", len(starter.registered))
	}

	status, _ = do(t, app, "POST", "/v1/lands?async=true", domain.RegisterLandInput{OwnerName: "Alice"})
	if status != 400 || len(starter.registered) != 1 {
		t.Errorf("invalid forms must be rejected before starting a workflow, got %d", status)
	}
}

func TestRegisterLand_AsyncNotConfigured(t *testing.T) {
	status, body := do(t, setupApp(makeDeps(newFakeLedger(alice))), "POST", "/v1/lands?async=true",
		domain.RegisterLandInput{Location: "1,2", OwnerName: "Alice", DocumentHash: "0.00"})
	if status != 503 || errorCode(t, body) != "unavailable" {
		t.Errorf("expected 503 unavailable, got %d %s", status, body)
	}
}

func TestTransferLand(t *testing.T) {
	tests := []struct {
		name    string
		account string
		path    string
		body    map[string]string
		status  int
		code    string
	}{
		{"success", alice, "/v1/lands/1/transfer", map[string]string{"new_owner_address": bob, "new_owner_name": "Bob"}, 200, ""},
		{"invalid address", alice, "/v1/lands/1/transfer", map[string]string{"new_owner_address": "0x123", "new_owner_name": "Bob"}, 400, "bad_request"},
		{"missing name", alice, "/v1/lands/1/transfer", map[string]string{"new_owner_address": bob}, 400, "bad_request"},
		{"not owner", bob, "/v1/lands/1/transfer", map[string]string{"new_owner_address": alice, "new_owner_name": "Alice"}, 403, "forbidden"},
		{"same owner", alice, "/v1/lands/1/transfer", map[string]string{"new_owner_address": alice, "new_owner_name": "Alice"}, 409, "conflict"},
		{"land gone", alice, "/v1/lands/4/transfer", map[string]string{"new_owner_address": bob, "new_owner_name": "Bob"}, 404, "not_found"},
		{"read-only", "", "/v1/lands/1/transfer", map[string]string{"new_owner_address": bob, "new_owner_name": "Bob"}, 401, "unauthorized"},
		{"bad id", alice, "/v1/lands/x/transfer", map[string]string{"new_owner_address": bob, "new_owner_name": "Bob"}, 400, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := ownedLands()
			ledger.account = tt.account
			transfers := &mockTransferRepo{}
			deps := makeDeps(ledger, func(d *handler.Dependencies) {
				d.Lands = usecases.NewLandService(ledger, &mockLandRepo{}, transfers, nil, nil)
			})

			status, body := do(t, setupApp(deps), "POST", tt.path, tt.body)
			if status != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, status, body)
			}
			if tt.code != "" {
				if code := errorCode(t, body); code != tt.code {
					t.Errorf("expected %s, got %s", tt.code, code)
				}
				return
			}
			var res usecases.TransferResult
			json.Unmarshal(body, &res)
			if res.Transfer == nil || res.Transfer.ToAddress != bob || res.Transfer.FromAddress != alice {
				t.Errorf("unexpected result %+v", res)
			}
			if len(transfers.inserted) != 1 {
				t.Errorf("expected the transfer to be indexed")
			}
		})
	}
}

func TestTransferLand_Async(t *testing.T) {
	starter := &mockStarter{}
	app := setupApp(makeDeps(ownedLands(), func(d *handler.Dependencies) { d.Workflows = starter }))

	status, body := do(t, app, "POST", "/v1/lands/1/transfer?async=true", map[string]string{
		"new_owner_address": bob, "new_owner_name": "Bob",
	})
	if status != 202 {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}
	if len(starter.transfers) != 1 || starter.transfers[0].LandID != 1 {
		t.Errorf("expected transfer workflow for land 1, got %+v", starter.transfers)
	}
}

// ---- Geometry handlers ----

func TestDraft(t *testing.T) {
	app := setupApp(makeDeps(newFakeLedger("")))

	status, body := do(t, app, "POST", "/v1/geometry/draft", map[string]interface{}{
		"points": []geometry.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 2}, {Lat: 2, Lng: 0}},
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var draft domain.BoundaryDraft
	json.Unmarshal(body, &draft)
	if draft.Area != 400000000 || draft.AreaText != "400000000.00" {
		t.Errorf("unexpected area %v / %q", draft.Area, draft.AreaText)
	}
	if loc := geometry.ParseLocation(draft.Location); loc.Kind != geometry.KindStructured || len(loc.Boundary) != 4 {
		t.Errorf("draft location must round-trip, got %+v", loc)
	}
}

func TestDraft_Empty(t *testing.T) {
	status, body := do(t, setupApp(makeDeps(newFakeLedger(""))), "POST", "/v1/geometry/draft", map[string]interface{}{"points": []geometry.Point{}})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var draft domain.BoundaryDraft
	json.Unmarshal(body, &draft)
	if draft.Location != "" || draft.Area != 0 || draft.AreaText != "0.00" {
		t.Errorf("expected cleared draft, got %+v", draft)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name        string
		location    string
		kind        string
		displayable bool
		points      int
	}{
		{"structured", square, "structured", true, 4},
		{"flat", "34.05, -118.24", "flat", true, 1},
		{"unparsable", "near the old oak", "unparsable", false, 0},
		{"empty", "", "unparsable", false, 0},
	}
	app := setupApp(makeDeps(newFakeLedger("")))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "POST", "/v1/geometry/parse", map[string]string{"location": tt.location})
			if status != 200 {
				t.Fatalf("expected 200, got %d: %s", status, body)
			}
			var got handler.ParsedLocation
			json.Unmarshal(body, &got)
			if got.Kind != tt.kind || got.Displayable != tt.displayable || len(got.Boundary) != tt.points {
				t.Errorf("unexpected result %+v", got)
			}
			if tt.displayable && got.Center == nil {
				t.Error("expected a center for displayable locations")
			}
		})
	}
}

func TestSuggestLocation(t *testing.T) {
	tests := []struct {
		name      string
		suggester *mockSuggester
		body      map[string]string
		status    int
		code      string
	}{
		{"ok", &mockSuggester{reply: "34.05,-118.24"}, map[string]string{"description": "City Hall, Los Angeles"}, 200, ""},
		{"empty description", &mockSuggester{}, map[string]string{"description": " "}, 400, "bad_request"},
		{"model rambles", &mockSuggester{reply: "I am not sure"}, map[string]string{"description": "somewhere"}, 422, "unprocessable"},
		{"backend error", &mockSuggester{err: errors.New("quota")}, map[string]string{"description": "somewhere"}, 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := makeDeps(newFakeLedger(""), func(d *handler.Dependencies) {
				d.Suggest = usecases.NewSuggestService(tt.suggester)
			})
			status, body := do(t, setupApp(deps), "POST", "/v1/locations/suggest", tt.body)
			if status != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, status, body)
			}
			if tt.code != "" && errorCode(t, body) != tt.code {
				t.Errorf("expected %s, got %s", tt.code, body)
			}
		})
	}
}

func TestSuggestLocation_NotConfigured(t *testing.T) {
	deps := makeDeps(newFakeLedger(""), func(d *handler.Dependencies) { d.Suggest = nil })
	status, _ := do(t, setupApp(deps), "POST", "/v1/locations/suggest", map[string]string{"description": "x"})
	if status != 503 {
		t.Errorf("expected 503, got %d", status)
	}
}

func TestLedgerStatus(t *testing.T) {
	status, body := do(t, setupApp(makeDeps(ownedLands())), "GET", "/v1/ledger/status", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var st domain.LedgerStatus
	json.Unmarshal(body, &st)
	if st.ChainID != "0xaa36a7" || st.LandCount != 4 || !st.Writable {
		t.Errorf("unexpected status %+v", st)
	}
}

// ---- Health, middleware, GraphQL ----

func TestHealth(t *testing.T) {
	status, body := do(t, setupApp(makeDeps(newFakeLedger(""))), "GET", "/v1/health", nil)
	if status != 200 || !strings.Contains(string(body), `"healthy"`) {
		t.Errorf("expected healthy, got %d %s", status, body)
	}
}

func TestReady(t *testing.T) {
	ok := pingerFunc(func(ctx context.Context) error { return nil })
	down := pingerFunc(func(ctx context.Context) error { return errors.New("down") })

	tests := []struct {
		name   string
		deps   func(d *handler.Dependencies)
		status int
	}{
		{"all up", func(d *handler.Dependencies) { d.DB, d.Ledger, d.Cache = ok, ok, ok }, 200},
		{"cache down is degraded", func(d *handler.Dependencies) { d.DB, d.Ledger, d.Cache = ok, ok, down }, 200},
		{"ledger down", func(d *handler.Dependencies) { d.DB, d.Ledger = ok, down }, 503},
		{"no database", func(d *handler.Dependencies) { d.Ledger = ok }, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, setupApp(makeDeps(newFakeLedger(""), tt.deps)), "GET", "/v1/ready", nil)
			if status != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, status, body)
			}
		})
	}
}

func TestETagNotModified(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/lands/1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=60" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	req := httptest.NewRequest("GET", "/v1/lands/1", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	resp, _ := setupApp(makeDeps(newFakeLedger(""))).Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.Header.Get("X-API-Version") != handler.APIVersion {
		t.Errorf("missing X-API-Version")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing nosniff")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("missing request id")
	}
}

func TestGraphQL(t *testing.T) {
	app := setupApp(makeDeps(ownedLands()))

	query := fmt.Sprintf(`{ landMarkers(owner: %q) { skipped markers { land { id } center { lat lng } } } land(id: 1) { owner_name boundary { lat } } }`, alice)
	status, body := do(t, app, "POST", "/graphql", map[string]string{"query": query})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Data struct {
			LandMarkers struct {
				Skipped int `json:"skipped"`
				Markers []struct {
					Land struct {
						ID int `json:"id"`
					} `json:"land"`
				} `json:"markers"`
			} `json:"landMarkers"`
			Land struct {
				OwnerName string `json:"owner_name"`
				Boundary  []struct {
					Lat float64 `json:"lat"`
				} `json:"boundary"`
			} `json:"land"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	if result.Data.LandMarkers.Skipped != 1 || len(result.Data.LandMarkers.Markers) != 2 {
		t.Errorf("unexpected markers %+v", result.Data.LandMarkers)
	}
	if result.Data.Land.OwnerName != "Alice" || len(result.Data.Land.Boundary) != 4 {
		t.Errorf("unexpected land %+v", result.Data.Land)
	}
}

func TestGraphQL_InvalidOwner(t *testing.T) {
	status, body := do(t, setupApp(makeDeps(ownedLands())), "POST", "/graphql",
		map[string]string{"query": `{ lands(owner: "nope") { id } }`})
	if status != 200 || !strings.Contains(string(body), "invalid Ethereum address") {
		t.Errorf("expected graphql error, got %d %s", status, body)
	}
}
