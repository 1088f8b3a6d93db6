package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type AuctionRepo struct {
	pool *pgxpool.Pool
}

func NewAuctionRepo(pool *pgxpool.Pool) *AuctionRepo {
	return &AuctionRepo{pool: pool}
}

const auctionColumns = `
	a.id, a.title, a.description, a.item_type, a.starting_price, a.current_price, a.reserve_price,
	a.seller_id, a.status, a.duration_seconds, a.nft_token_id, a.nft_contract_address, a.scan_3d_url,
	a.winner_buyer_id, a.winning_bid_id, a.reserve_met, a.created_at, a.started_at, a.ends_at, a.completed_at,
	(SELECT count(*) FROM bids b WHERE b.auction_id = a.id)
`

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var a models.Auction
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.ItemType, &a.StartingPrice, &a.CurrentPrice, &a.ReservePrice,
		&a.SellerID, &a.Status, &a.DurationSeconds, &a.NFTTokenID, &a.NFTContractAddress, &a.Scan3DURL,
		&a.WinnerBuyerID, &a.WinningBidID, &a.ReserveMet, &a.CreatedAt, &a.StartedAt, &a.EndsAt, &a.CompletedAt,
		&a.BidCount)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AuctionRepo) Create(ctx context.Context, a *models.Auction) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO auctions (id, title, description, item_type, starting_price, current_price, reserve_price,
		                      seller_id, status, duration_seconds, nft_token_id, nft_contract_address, scan_3d_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`, a.ID, a.Title, a.Description, a.ItemType, a.StartingPrice, a.CurrentPrice, a.ReservePrice,
		a.SellerID, a.Status, a.DurationSeconds, a.NFTTokenID, a.NFTContractAddress, a.Scan3DURL,
	).Scan(&a.CreatedAt)
}

func (r *AuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	a, err := scanAuction(r.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions a WHERE a.id = $1`, id))
	return a, mapErr(err)
}

// GetActive returns the single running auction or ErrNotFound.
func (r *AuctionRepo) GetActive(ctx context.Context) (*models.Auction, error) {
	a, err := scanAuction(r.pool.QueryRow(ctx, `
		SELECT `+auctionColumns+` FROM auctions a WHERE a.status = 'active'
		ORDER BY a.started_at LIMIT 1
	`))
	return a, mapErr(err)
}

// NextQueued returns the oldest queued auction or ErrNotFound.
func (r *AuctionRepo) NextQueued(ctx context.Context) (*models.Auction, error) {
	a, err := scanAuction(r.pool.QueryRow(ctx, `
		SELECT `+auctionColumns+` FROM auctions a WHERE a.status = 'queued'
		ORDER BY a.created_at, a.id LIMIT 1
	`))
	return a, mapErr(err)
}

type AuctionFilter struct {
	Status   *string
	SellerID *uuid.UUID
	Limit    int
	Offset   int
}

func (r *AuctionRepo) List(ctx context.Context, f AuctionFilter) ([]models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions a`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Status != nil {
		where = append(where, fmt.Sprintf("a.status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.SellerID != nil {
		where = append(where, fmt.Sprintf("a.seller_id = $%d", argIdx))
		args = append(args, *f.SellerID)
		argIdx++
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := clampLimit(f.Limit, 50, 200)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	auctions := []models.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *a)
	}
	return auctions, rows.Err()
}

func (r *AuctionRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM auctions WHERE status = $1`, status).Scan(&n)
	return n, err
}

// ListEnded returns active auctions whose end time is at or before now.
func (r *AuctionRepo) ListEnded(ctx context.Context, now time.Time) ([]models.Auction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auctionColumns+` FROM auctions a
		WHERE a.status = 'active' AND a.ends_at IS NOT NULL AND a.ends_at <= $1
		ORDER BY a.ends_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *a)
	}
	return auctions, rows.Err()
}

// Activate moves a queued auction to active. ErrStale means the auction was
// no longer queued or another auction is running.
func (r *AuctionRepo) Activate(ctx context.Context, id uuid.UUID, startedAt, endsAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auctions SET status = 'active', started_at = $2, ends_at = $3
		WHERE id = $1 AND status = 'queued'
		  AND NOT EXISTS (SELECT 1 FROM auctions WHERE status = 'active')
	`, id, startedAt, endsAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrStale
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

type CompleteParams struct {
	WinnerBuyerID *uuid.UUID
	WinningBidID  *uuid.UUID
	ReserveMet    bool
	CompletedAt   time.Time
}

func (r *AuctionRepo) Complete(ctx context.Context, id uuid.UUID, p CompleteParams) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auctions SET status = 'completed', winner_buyer_id = $2, winning_bid_id = $3,
		       reserve_met = $4, completed_at = $5
		WHERE id = $1 AND status = 'active'
	`, id, p.WinnerBuyerID, p.WinningBidID, p.ReserveMet, p.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// PlaceBid raises the current price and records the bid in one transaction.
// The price only moves when the auction is still active, not past its end
// and the amount is strictly greater; otherwise ErrStale is returned.
func (r *AuctionRepo) PlaceBid(ctx context.Context, b *models.Bid) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE auctions SET current_price = $2
		WHERE id = $1 AND status = 'active' AND current_price < $2
		  AND (ends_at IS NULL OR ends_at > $3)
	`, b.AuctionID, b.Amount, b.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, tx_hash_encrypted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.AuctionID, b.BidderID, b.Amount, b.TxHashEncrypted, b.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListBids returns bids ordered by amount desc, earliest first on ties.
func (r *AuctionRepo) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, auction_id, bidder_id, amount, tx_hash_encrypted, created_at
		FROM bids WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
	`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.TxHashEncrypted, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}
