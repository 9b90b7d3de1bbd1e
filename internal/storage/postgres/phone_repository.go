package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PhoneRepository records phone numbers that passed verification.
type PhoneRepository struct {
	pool *pgxpool.Pool
}

func NewPhoneRepository(pool *pgxpool.Pool) *PhoneRepository {
	return &PhoneRepository{pool: pool}
}

func (r *PhoneRepository) IsVerified(ctx context.Context, phone string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM verified_phones WHERE phone = $1)`

	var verified bool
	if err := r.pool.QueryRow(ctx, query, phone).Scan(&verified); err != nil {
		return false, fmt.Errorf("check verified phone: %w", err)
	}
	return verified, nil
}

func (r *PhoneRepository) MarkVerified(ctx context.Context, phone string, at time.Time) error {
	const stmt = `
INSERT INTO verified_phones (phone, verified_at)
VALUES ($1, $2)
ON CONFLICT (phone) DO UPDATE SET verified_at = EXCLUDED.verified_at`

	if _, err := r.pool.Exec(ctx, stmt, phone, at); err != nil {
		return fmt.Errorf("mark phone verified: %w", err)
	}
	return nil
}
