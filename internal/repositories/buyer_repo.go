package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type BuyerRepo struct {
	pool *pgxpool.Pool
}

func NewBuyerRepo(pool *pgxpool.Pool) *BuyerRepo {
	return &BuyerRepo{pool: pool}
}

const buyerColumns = `id, username, password_hash, invite_code, codename, real_name_encrypted, created_at, last_seen_at`

func scanBuyer(row pgx.Row) (*models.Buyer, error) {
	var b models.Buyer
	err := row.Scan(&b.ID, &b.Username, &b.PasswordHash, &b.InviteCode, &b.Codename, &b.RealNameEncrypted, &b.CreatedAt, &b.LastSeenAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

// CreateWithInvite inserts the buyer and marks its invite used in one transaction.
func (r *BuyerRepo) CreateWithInvite(ctx context.Context, b *models.Buyer, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO buyers (id, username, password_hash, invite_code)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, b.ID, b.Username, b.PasswordHash, b.InviteCode).Scan(&b.CreatedAt); err != nil {
		return mapErr(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invite_links SET used = true, used_by = $2, used_at = $3
		WHERE code = $1 AND role = 'buyer' AND used = false
	`, b.InviteCode, b.ID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}

	return tx.Commit(ctx)
}

func (r *BuyerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error) {
	return scanBuyer(r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, id))
}

func (r *BuyerRepo) GetByInviteCode(ctx context.Context, code string) (*models.Buyer, error) {
	return scanBuyer(r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE invite_code = $1`, code))
}

func (r *BuyerRepo) List(ctx context.Context) ([]models.Buyer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+buyerColumns+` FROM buyers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buyers := []models.Buyer{}
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, err
		}
		buyers = append(buyers, *b)
	}
	return buyers, rows.Err()
}

func (r *BuyerRepo) CodenameTaken(ctx context.Context, codename string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM buyers WHERE codename = $1)`, codename).Scan(&exists)
	return exists, err
}

// SetProfile stores the encrypted real name and codename. A codename
// collision yields ErrConflict.
func (r *BuyerRepo) SetProfile(ctx context.Context, id uuid.UUID, realNameEncrypted, codename string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE buyers SET real_name_encrypted = $2, codename = $3 WHERE id = $1
	`, id, realNameEncrypted, codename)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BuyerRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE buyers SET last_seen_at = now() WHERE id = $1`, id)
	return err
}
