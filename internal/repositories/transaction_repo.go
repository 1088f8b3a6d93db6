package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `
	id, buyer_id, auction_id, item_name, amount, currency, wallet_address_encrypted,
	transaction_hash, notes, status, created_at
`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.BuyerID, &t.AuctionID, &t.ItemName, &t.Amount, &t.Currency, &t.WalletAddressEncrypted,
		&t.TransactionHash, &t.Notes, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// Create inserts a transaction. A second one for the same auction yields ErrConflict.
func (r *TransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, buyer_id, auction_id, item_name, amount, currency, wallet_address_encrypted,
		                          transaction_hash, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, t.ID, t.BuyerID, t.AuctionID, t.ItemName, t.Amount, t.Currency, t.WalletAddressEncrypted,
		t.TransactionHash, t.Notes, t.Status).Scan(&t.CreatedAt)
	return mapErr(err)
}

func (r *TransactionRepo) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) (*models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE auction_id = $1`, auctionID))
}

func (r *TransactionRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE buyer_id = $1 ORDER BY created_at DESC`, buyerID)
}

func (r *TransactionRepo) List(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		clampLimit(limit, 100, 500), offset)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
