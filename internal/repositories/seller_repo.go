package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type SellerRepo struct {
	pool *pgxpool.Pool
}

func NewSellerRepo(pool *pgxpool.Pool) *SellerRepo {
	return &SellerRepo{pool: pool}
}

// Create inserts a seller. A taken username yields ErrConflict.
func (r *SellerRepo) Create(ctx context.Context, s *models.Seller) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sellers (id, username, password_hash, invite_code)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.Username, s.PasswordHash, s.InviteCode).Scan(&s.CreatedAt)
	return mapErr(err)
}

// CreateWithInvite inserts the seller and consumes the seller invite in one
// transaction. ErrStale means the invite is unknown, used or expired.
func (r *SellerRepo) CreateWithInvite(ctx context.Context, s *models.Seller, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO sellers (id, username, password_hash, invite_code)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.Username, s.PasswordHash, s.InviteCode).Scan(&s.CreatedAt); err != nil {
		return mapErr(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invite_links SET used = true, used_by = $2, used_at = $3
		WHERE code = $1 AND role = 'seller' AND used = false AND (expires_at IS NULL OR expires_at > $3)
	`, s.InviteCode, s.ID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}

	return tx.Commit(ctx)
}

func (r *SellerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var s models.Seller
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, invite_code, created_at, last_seen_at FROM sellers WHERE id = $1
	`, id).Scan(&s.ID, &s.Username, &s.PasswordHash, &s.InviteCode, &s.CreatedAt, &s.LastSeenAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *SellerRepo) GetByUsername(ctx context.Context, username string) (*models.Seller, error) {
	var s models.Seller
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, invite_code, created_at, last_seen_at FROM sellers WHERE username = $1
	`, username).Scan(&s.ID, &s.Username, &s.PasswordHash, &s.InviteCode, &s.CreatedAt, &s.LastSeenAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *SellerRepo) GetByInviteCode(ctx context.Context, code string) (*models.Seller, error) {
	var s models.Seller
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, invite_code, created_at, last_seen_at FROM sellers
		WHERE invite_code = $1 ORDER BY created_at LIMIT 1
	`, code).Scan(&s.ID, &s.Username, &s.PasswordHash, &s.InviteCode, &s.CreatedAt, &s.LastSeenAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *SellerRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE sellers SET last_seen_at = now() WHERE id = $1`, id)
	return err
}
