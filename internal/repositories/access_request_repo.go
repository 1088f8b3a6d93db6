package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type AccessRequestRepo struct {
	pool *pgxpool.Pool
}

func NewAccessRequestRepo(pool *pgxpool.Pool) *AccessRequestRepo {
	return &AccessRequestRepo{pool: pool}
}

const accessRequestColumns = `
	id, telegram_user_id, username, request_type, description, photos, status, code, redeemed_at, created_at, decided_at
`

func scanAccessRequest(row pgx.Row) (*models.AccessRequest, error) {
	var a models.AccessRequest
	err := row.Scan(&a.ID, &a.TelegramUserID, &a.Username, &a.RequestType, &a.Description, &a.Photos, &a.Status,
		&a.Code, &a.RedeemedAt, &a.CreatedAt, &a.DecidedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *AccessRequestRepo) Create(ctx context.Context, a *models.AccessRequest) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Photos == nil {
		a.Photos = []string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO access_requests (id, telegram_user_id, username, request_type, description, photos, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.TelegramUserID, a.Username, a.RequestType, a.Description, a.Photos, a.Status).Scan(&a.CreatedAt)
}

func (r *AccessRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	return scanAccessRequest(r.pool.QueryRow(ctx, `SELECT `+accessRequestColumns+` FROM access_requests WHERE id = $1`, id))
}

func (r *AccessRequestRepo) GetByCode(ctx context.Context, code string) (*models.AccessRequest, error) {
	return scanAccessRequest(r.pool.QueryRow(ctx, `SELECT `+accessRequestColumns+` FROM access_requests WHERE code = $1`, code))
}

// PendingForUser returns the user's open request of the given type, if any.
func (r *AccessRequestRepo) PendingForUser(ctx context.Context, telegramUserID int64, requestType string) (*models.AccessRequest, error) {
	return scanAccessRequest(r.pool.QueryRow(ctx, `
		SELECT `+accessRequestColumns+` FROM access_requests
		WHERE telegram_user_id = $1 AND request_type = $2 AND status = 'pending'
		ORDER BY created_at DESC LIMIT 1
	`, telegramUserID, requestType))
}

func (r *AccessRequestRepo) ListByStatus(ctx context.Context, status string) ([]models.AccessRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accessRequestColumns+` FROM access_requests WHERE status = $1 ORDER BY created_at
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AccessRequest{}
	for rows.Next() {
		a, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Decide moves a pending request to status. code is set on approval.
func (r *AccessRequestRepo) Decide(ctx context.Context, id uuid.UUID, status string, code *string, now time.Time) (*models.AccessRequest, error) {
	a, err := scanAccessRequest(r.pool.QueryRow(ctx, `
		UPDATE access_requests SET status = $2, code = $3, decided_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+accessRequestColumns, id, status, code, now))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	return a, err
}

// Redeem marks an approved code consumed. ErrStale means it was already used.
func (r *AccessRequestRepo) Redeem(ctx context.Context, code string, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE access_requests SET redeemed_at = $2
		WHERE code = $1 AND status = 'approved' AND redeemed_at IS NULL
	`, code, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}
