package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coverbook/coverbook/internal/domain"
)

type RestaurantRepository struct {
	pool *pgxpool.Pool
}

func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

func (r *RestaurantRepository) Create(ctx context.Context, restaurant domain.Restaurant) error {
	const stmt = `
INSERT INTO restaurants (id, name, total_seats, avg_dining_minutes, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt,
		restaurant.ID,
		restaurant.Name,
		restaurant.TotalSeats,
		restaurant.AvgDiningMinutes,
		restaurant.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create restaurant: %w", err)
	}
	return nil
}

func (r *RestaurantRepository) Get(ctx context.Context, restaurantID string) (domain.Restaurant, error) {
	const query = `
SELECT id, name, total_seats, avg_dining_minutes, created_at
FROM restaurants
WHERE id = $1`

	var restaurant domain.Restaurant
	err := r.queryRow(ctx, query, restaurantID).Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.TotalSeats,
		&restaurant.AvgDiningMinutes,
		&restaurant.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Restaurant{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Restaurant{}, domain.ErrRestaurantNotFound
		}
		return domain.Restaurant{}, fmt.Errorf("get restaurant: %w", err)
	}

	hours, err := r.listServiceHours(ctx, restaurantID)
	if err != nil {
		return domain.Restaurant{}, err
	}
	restaurant.Hours = hours
	return restaurant, nil
}

// SetServiceHours replaces the weekly schedule in one transaction.
func (r *RestaurantRepository) SetServiceHours(ctx context.Context, restaurantID string, hours map[time.Weekday]domain.ServiceHours) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		var exists bool
		err := r.queryRow(txCtx, `SELECT EXISTS (SELECT 1 FROM restaurants WHERE id = $1)`, restaurantID).Scan(&exists)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("check restaurant: %w", err)
		}
		if !exists {
			return domain.ErrRestaurantNotFound
		}

		if _, err := r.exec(txCtx, `DELETE FROM service_hours WHERE restaurant_id = $1`, restaurantID); err != nil {
			return fmt.Errorf("clear service hours: %w", err)
		}

		const stmt = `
INSERT INTO service_hours (restaurant_id, weekday, open_time, close_time)
VALUES ($1, $2, $3, $4)`
		for day, h := range hours {
			if _, err := r.exec(txCtx, stmt, restaurantID, int(day), h.Open, h.Close); err != nil {
				return fmt.Errorf("insert service hours for %s: %w", day, err)
			}
		}
		return nil
	})
}

func (r *RestaurantRepository) listServiceHours(ctx context.Context, restaurantID string) (map[time.Weekday]domain.ServiceHours, error) {
	const query = `
SELECT weekday, open_time, close_time
FROM service_hours
WHERE restaurant_id = $1`

	rows, err := r.query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list service hours: %w", err)
	}
	defer rows.Close()

	hours := make(map[time.Weekday]domain.ServiceHours)
	for rows.Next() {
		var (
			weekday int
			h       domain.ServiceHours
		)
		if err := rows.Scan(&weekday, &h.Open, &h.Close); err != nil {
			return nil, fmt.Errorf("scan service hours: %w", err)
		}
		hours[time.Weekday(weekday)] = h
	}
	return hours, rows.Err()
}

func (r *RestaurantRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *RestaurantRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *RestaurantRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
