package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/landledger/landledger/internal/core/domain"
)

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	db *DB
}

func NewTransferRepo(db *DB) *TransferRepo {
	return &TransferRepo{db: db}
}

// Insert stores a transfer. A transaction is recorded once.
func (r *TransferRepo) Insert(ctx context.Context, t *domain.Transfer) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO land_transfers (land_id, from_address, to_address, new_owner_name, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (tx_hash) DO NOTHING
	`, int64(t.LandID), strings.ToLower(t.FromAddress), strings.ToLower(t.ToAddress),
		t.NewOwnerName, t.TxHash, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer for land %d: %w", t.LandID, err)
	}
	return nil
}

func (r *TransferRepo) ListByLand(ctx context.Context, landID uint64) ([]domain.Transfer, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT land_id, from_address, to_address, new_owner_name, COALESCE(tx_hash, ''), created_at
		FROM land_transfers
		WHERE land_id = $1
		ORDER BY created_at, id
	`, int64(landID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		var (
			t  domain.Transfer
			id int64
		)
		if err := rows.Scan(&id, &t.FromAddress, &t.ToAddress, &t.NewOwnerName, &t.TxHash, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.LandID = uint64(id)
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
