package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

const upsertLandSQL = `
	INSERT INTO lands (id, location, location_kind, center, owner_name, owner_address, document_hash, indexed_at)
	VALUES ($1, $2, $3,
	        CASE WHEN $4::float8 IS NULL THEN NULL
	             ELSE ST_SetSRID(ST_MakePoint($5, $4), 4326)::geography END,
	        $6, $7, $8, now())
	ON CONFLICT (id) DO UPDATE
	SET location = EXCLUDED.location, location_kind = EXCLUDED.location_kind,
	    center = EXCLUDED.center, owner_name = EXCLUDED.owner_name,
	    owner_address = EXCLUDED.owner_address, document_hash = EXCLUDED.document_hash,
	    indexed_at = EXCLUDED.indexed_at
`

const selectLandSQL = `
	SELECT id, location, owner_name, owner_address, document_hash, indexed_at
	FROM lands
`

// LandRepo implements ports.LandRepository with pgx.
type LandRepo struct {
	db *DB
}

// NewLandRepo creates a new LandRepo.
func NewLandRepo(db *DB) *LandRepo {
	return &LandRepo{db: db}
}

// landArgs derives the stored columns. The centroid is NULL for locations
// the map cannot draw.
func landArgs(l *domain.Land) []any {
	loc := geometry.ParseLocation(l.Location)
	var lat, lng *float64
	if loc.OK() {
		c := geometry.Centroid(loc.Boundary)
		lat, lng = &c.Lat, &c.Lng
	}
	return []any{
		int64(l.ID), l.Location, loc.Kind.String(), lat, lng,
		l.OwnerName, strings.ToLower(l.OwnerAddress), l.DocumentHash,
	}
}

// Upsert inserts or updates a single land.
func (r *LandRepo) Upsert(ctx context.Context, l *domain.Land) error {
	if _, err := r.db.Pool.Exec(ctx, upsertLandSQL, landArgs(l)...); err != nil {
		return fmt.Errorf("upsert land %d: %w", l.ID, err)
	}
	return nil
}

// UpsertBatch inserts many lands using pgx.Batch.
func (r *LandRepo) UpsertBatch(ctx context.Context, lands []domain.Land) error {
	batch := &pgx.Batch{}
	for i := range lands {
		batch.Queue(upsertLandSQL, landArgs(&lands[i])...)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range lands {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns an indexed land.
func (r *LandRepo) GetByID(ctx context.Context, id uint64) (*domain.Land, error) {
	row := r.db.Pool.QueryRow(ctx, selectLandSQL+` WHERE id = $1`, int64(id))
	l, err := scanLand(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("land %d", id))
	}
	return l, nil
}

// ListByOwner returns an owner's indexed lands ordered by ID.
func (r *LandRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Land, error) {
	rows, err := r.db.Pool.Query(ctx, selectLandSQL+` WHERE owner_address = $1 ORDER BY id`, strings.ToLower(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lands []domain.Land
	for rows.Next() {
		l, err := scanLand(rows)
		if err != nil {
			return nil, err
		}
		lands = append(lands, *l)
	}
	return lands, rows.Err()
}

// ListNear returns lands whose centroid lies within radiusMeters of p,
// nearest first.
func (r *LandRepo) ListNear(ctx context.Context, p geometry.Point, radiusMeters float64, limit int) ([]domain.Land, error) {
	rows, err := r.db.Pool.Query(ctx, selectLandSQL+`
		WHERE center IS NOT NULL
		  AND ST_DWithin(center, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY ST_Distance(center, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		LIMIT $4
	`, p.Lng, p.Lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lands []domain.Land
	for rows.Next() {
		l, err := scanLand(rows)
		if err != nil {
			return nil, err
		}
		lands = append(lands, *l)
	}
	return lands, rows.Err()
}

// Count returns the number of indexed lands.
func (r *LandRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM lands`).Scan(&n)
	return n, err
}

func scanLand(row pgx.Row) (*domain.Land, error) {
	var (
		l  domain.Land
		id int64
	)
	if err := row.Scan(&id, &l.Location, &l.OwnerName, &l.OwnerAddress, &l.DocumentHash, &l.IndexedAt); err != nil {
		return nil, err
	}
	l.ID = uint64(id)
	l.Exists = true
	l.Area = l.DocumentHash
	return &l, nil
}
