package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

const escrowColumns = `
	id, auction_id, seller_id, buyer_id, item_key, purchase_key, status, transaction_id,
	created_at, updated_at, purchase_generated_at, released_at, item_synced_at, purchase_synced_at
`

func scanEscrow(row pgx.Row) (*models.EscrowRecord, error) {
	var e models.EscrowRecord
	err := row.Scan(&e.ID, &e.AuctionID, &e.SellerID, &e.BuyerID, &e.ItemKey, &e.PurchaseKey, &e.Status, &e.TransactionID,
		&e.CreatedAt, &e.UpdatedAt, &e.PurchaseGeneratedAt, &e.ReleasedAt, &e.ItemSyncedAt, &e.PurchaseSyncedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (r *EscrowRepo) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrow_records WHERE auction_id = $1`, auctionID))
}

// EnsureItemKey creates the record if missing and sets itemKey only when
// none exists yet. Generating a key clears the item sync mark.
func (r *EscrowRepo) EnsureItemKey(ctx context.Context, auctionID uuid.UUID, sellerID *uuid.UUID, itemKey string) (*models.EscrowRecord, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `
		INSERT INTO escrow_records (id, auction_id, seller_id, item_key, status)
		VALUES ($1, $2, $3, $4, 'awaiting_purchase')
		ON CONFLICT (auction_id) DO UPDATE SET
			seller_id = COALESCE(escrow_records.seller_id, EXCLUDED.seller_id),
			item_synced_at = CASE WHEN escrow_records.item_key IS NULL THEN NULL ELSE escrow_records.item_synced_at END,
			item_key = COALESCE(escrow_records.item_key, EXCLUDED.item_key),
			updated_at = now()
		RETURNING `+escrowColumns,
		uuid.New(), auctionID, sellerID, itemKey))
}

// SetPurchaseKey provisions the purchase key on a record that already holds
// an item key and is awaiting purchase.
func (r *EscrowRepo) SetPurchaseKey(ctx context.Context, auctionID, buyerID, transactionID uuid.UUID, purchaseKey string) (*models.EscrowRecord, error) {
	rec, err := scanEscrow(r.pool.QueryRow(ctx, `
		UPDATE escrow_records SET
			purchase_key = $2, buyer_id = $3, transaction_id = $4, status = 'awaiting_release',
			purchase_generated_at = now(), purchase_synced_at = NULL, updated_at = now()
		WHERE auction_id = $1 AND item_key IS NOT NULL AND status = 'awaiting_purchase'
		RETURNING `+escrowColumns,
		auctionID, purchaseKey, buyerID, transactionID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	return rec, err
}

func (r *EscrowRepo) MarkReleased(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	rec, err := scanEscrow(r.pool.QueryRow(ctx, `
		UPDATE escrow_records SET status = 'released', released_at = now(), updated_at = now()
		WHERE auction_id = $1 AND status = 'awaiting_release'
		RETURNING `+escrowColumns, auctionID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	return rec, err
}

// Reset clears buyer-side state while keeping the item key. Only records
// awaiting release qualify; anything else returns ErrStale.
func (r *EscrowRepo) Reset(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	rec, err := scanEscrow(r.pool.QueryRow(ctx, `
		UPDATE escrow_records SET
			status = 'awaiting_purchase', purchase_key = NULL, buyer_id = NULL,
			purchase_generated_at = NULL, purchase_synced_at = NULL, updated_at = now()
		WHERE auction_id = $1 AND status = 'awaiting_release'
		RETURNING `+escrowColumns, auctionID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	return rec, err
}

func (r *EscrowRepo) MarkItemSynced(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `
		UPDATE escrow_records SET item_synced_at = now(), updated_at = now()
		WHERE auction_id = $1
		RETURNING `+escrowColumns, auctionID))
}

func (r *EscrowRepo) MarkPurchaseSynced(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `
		UPDATE escrow_records SET purchase_synced_at = now(), updated_at = now()
		WHERE auction_id = $1
		RETURNING `+escrowColumns, auctionID))
}

func (r *EscrowRepo) ListPendingPurchases(ctx context.Context) ([]models.EscrowRecord, error) {
	return r.list(ctx, `
		SELECT `+escrowColumns+` FROM escrow_records
		WHERE status = 'awaiting_release' AND purchase_key IS NOT NULL AND purchase_synced_at IS NULL
		ORDER BY purchase_generated_at
	`)
}

func (r *EscrowRepo) ListPendingItemKeys(ctx context.Context) ([]models.EscrowRecord, error) {
	return r.list(ctx, `
		SELECT `+escrowColumns+` FROM escrow_records
		WHERE item_key IS NOT NULL AND item_synced_at IS NULL
		ORDER BY created_at
	`)
}

func (r *EscrowRepo) list(ctx context.Context, query string, args ...any) ([]models.EscrowRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.EscrowRecord{}
	for rows.Next() {
		rec, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
