package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type InviteRepo struct {
	pool *pgxpool.Pool
}

func NewInviteRepo(pool *pgxpool.Pool) *InviteRepo {
	return &InviteRepo{pool: pool}
}

const inviteColumns = `id, code, role, password_lookup, used, used_by, used_at, expires_at, created_at`

func scanInvite(row pgx.Row) (*models.InviteLink, error) {
	var l models.InviteLink
	err := row.Scan(&l.ID, &l.Code, &l.Role, &l.PasswordLookup, &l.Used, &l.UsedBy, &l.UsedAt, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

// Create inserts an invite. A duplicate code or password yields ErrConflict.
func (r *InviteRepo) Create(ctx context.Context, l *models.InviteLink) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invite_links (id, code, role, password_lookup, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, l.ID, l.Code, l.Role, l.PasswordLookup, l.ExpiresAt).Scan(&l.CreatedAt)
	return mapErr(err)
}

func (r *InviteRepo) GetByCode(ctx context.Context, code string) (*models.InviteLink, error) {
	return scanInvite(r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invite_links WHERE code = $1`, code))
}

func (r *InviteRepo) GetByPasswordLookup(ctx context.Context, lookup string) (*models.InviteLink, error) {
	return scanInvite(r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invite_links WHERE password_lookup = $1`, lookup))
}

func (r *InviteRepo) ListByRole(ctx context.Context, role string) ([]models.InviteLink, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+inviteColumns+` FROM invite_links WHERE role = $1 ORDER BY created_at DESC
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.InviteLink{}
	for rows.Next() {
		l, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// DeleteExpired removes unused invites past their expiry and returns how many went.
func (r *InviteRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM invite_links WHERE used = false AND expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
