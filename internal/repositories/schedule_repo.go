package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcro-market/backend/internal/models"
)

type ScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

func (r *ScheduleRepo) Get(ctx context.Context) (*models.Schedule, error) {
	var s models.Schedule
	err := r.pool.QueryRow(ctx, `
		SELECT enabled, start_at, duration_seconds, updated_at FROM auction_schedule WHERE id = 1
	`).Scan(&s.Enabled, &s.StartAt, &s.DurationSeconds, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *ScheduleRepo) Save(ctx context.Context, s *models.Schedule) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO auction_schedule (id, enabled, start_at, duration_seconds, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			start_at = EXCLUDED.start_at,
			duration_seconds = EXCLUDED.duration_seconds,
			updated_at = now()
		RETURNING updated_at
	`, s.Enabled, s.StartAt, s.DurationSeconds).Scan(&s.UpdatedAt)
}
