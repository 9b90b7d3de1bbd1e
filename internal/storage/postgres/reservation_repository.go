package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coverbook/coverbook/internal/domain"
)

// ReservationRepository persists the reservation ledger. Rows are written
// through createReservation/updateStatus only; history rows are inserted
// and never updated or deleted.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const reservationColumns = `
id, restaurant_id, start_at, party_size, source_system, COALESCE(external_id, ''),
diner_id, diner_name, phone, email, status, metadata,
last_reconciled_at, COALESCE(reconciliation_status, ''), divergence_detected,
created_at, updated_at`

func (r *ReservationRepository) Get(ctx context.Context, restaurantID, reservationID string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE restaurant_id = $1 AND id = $2`
	return r.getOne(ctx, query, restaurantID, reservationID)
}

func (r *ReservationRepository) GetForUpdate(ctx context.Context, restaurantID, reservationID string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE restaurant_id = $1 AND id = $2 FOR UPDATE`
	return r.getOne(ctx, query, restaurantID, reservationID)
}

func (r *ReservationRepository) getOne(ctx context.Context, query, restaurantID, reservationID string) (domain.Reservation, error) {
	res, err := scanReservation(r.queryRow(ctx, query, restaurantID, reservationID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) FindBySource(ctx context.Context, restaurantID string, system domain.SourceSystem, externalID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE restaurant_id = $1 AND source_system = $2 AND external_id = $3`

	res, err := scanReservation(r.queryRow(ctx, query, restaurantID, string(system), externalID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find reservation by source: %w", err)
	}
	return &res, nil
}

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (
	id, restaurant_id, start_at, party_size, source_system, external_id,
	diner_id, diner_name, phone, email, status, metadata,
	divergence_detected, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, FALSE, $13, $14)`

	metadata, err := json.Marshal(res.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = r.exec(ctx, stmt,
		res.ID,
		res.RestaurantID,
		res.StartAt,
		res.PartySize,
		string(res.Source.System),
		res.Source.ExternalID,
		res.Guest.DinerID,
		res.Guest.Name,
		res.Guest.Phone,
		res.Guest.Email,
		string(res.Status),
		metadata,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReservation
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) SetStatus(ctx context.Context, restaurantID, reservationID string, status domain.ReservationStatus, updatedAt time.Time) error {
	const stmt = `
UPDATE reservations SET status = $3, updated_at = $4
WHERE restaurant_id = $1 AND id = $2`

	tag, err := r.exec(ctx, stmt, restaurantID, reservationID, string(status), updatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) AppendStatusChange(ctx context.Context, reservationID string, change domain.StatusChange) error {
	const stmt = `
INSERT INTO reservation_status_history (
	reservation_id, status, previous_status, source_system, metadata, changed_at
)
VALUES ($1, $2, $3, $4, $5, $6)`

	metadata := change.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode history metadata: %w", err)
	}

	_, err = r.exec(ctx, stmt,
		reservationID,
		string(change.Status),
		string(change.PreviousStatus),
		string(change.Source),
		encoded,
		change.ChangedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("append status change: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ListStatusHistory(ctx context.Context, reservationID string) ([]domain.StatusChange, error) {
	const query = `
SELECT status, previous_status, source_system, metadata, changed_at
FROM reservation_status_history
WHERE reservation_id = $1
ORDER BY id ASC`

	rows, err := r.query(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var (
			change   domain.StatusChange
			status   string
			previous string
			source   string
			metadata []byte
		)
		if err := rows.Scan(&status, &previous, &source, &metadata, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		change.Status = domain.ReservationStatus(status)
		change.PreviousStatus = domain.ReservationStatus(previous)
		change.Source = domain.SourceSystem(source)
		if err := json.Unmarshal(metadata, &change.Metadata); err != nil {
			return nil, fmt.Errorf("decode history metadata: %w", err)
		}
		history = append(history, change)
	}
	return history, rows.Err()
}

// ListInWindow returns reservations with start_at in [from, to), ascending.
// An empty statuses slice matches every status.
func (r *ReservationRepository) ListInWindow(ctx context.Context, restaurantID string, from, to time.Time, statuses []domain.ReservationStatus) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE restaurant_id = $1 AND start_at >= $2 AND start_at < $3`
	args := []any{restaurantID, from, to}

	if len(statuses) > 0 {
		query += ` AND status = ANY($4)`
		filter := make([]string, 0, len(statuses))
		for _, st := range statuses {
			filter = append(filter, string(st))
		}
		args = append(args, filter)
	}
	query += ` ORDER BY start_at ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations in window: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *ReservationRepository) MergeMetadata(ctx context.Context, restaurantID, reservationID string, patch map[string]any, updatedAt time.Time) error {
	const stmt = `
UPDATE reservations SET metadata = metadata || $3::jsonb, updated_at = $4
WHERE restaurant_id = $1 AND id = $2`

	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode metadata patch: %w", err)
	}

	tag, err := r.exec(ctx, stmt, restaurantID, reservationID, encoded, updatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("merge metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) SetReconciliation(ctx context.Context, restaurantID, reservationID string, rec domain.Reconciliation, updatedAt time.Time) error {
	const stmt = `
UPDATE reservations
SET last_reconciled_at = $3, reconciliation_status = NULLIF($4, ''), divergence_detected = $5, updated_at = $6
WHERE restaurant_id = $1 AND id = $2`

	tag, err := r.exec(ctx, stmt, restaurantID, reservationID, rec.LastReconciledAt, rec.Status, rec.DivergenceDetected, updatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set reconciliation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// ListStale finds reservations across all restaurants still in one of the
// given statuses whose start time has already passed the cutoff.
func (r *ReservationRepository) ListStale(ctx context.Context, statuses []domain.ReservationStatus, startedBefore time.Time, limit int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE status = ANY($1) AND start_at < $2
ORDER BY start_at ASC
LIMIT $3`

	filter := make([]string, 0, len(statuses))
	for _, st := range statuses {
		filter = append(filter, string(st))
	}

	rows, err := r.query(ctx, query, filter, startedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var (
		res                  domain.Reservation
		sourceSystem         string
		status               string
		metadata             []byte
		reconciliationStatus string
	)
	err := row.Scan(
		&res.ID,
		&res.RestaurantID,
		&res.StartAt,
		&res.PartySize,
		&sourceSystem,
		&res.Source.ExternalID,
		&res.Guest.DinerID,
		&res.Guest.Name,
		&res.Guest.Phone,
		&res.Guest.Email,
		&status,
		&metadata,
		&res.Reconciliation.LastReconciledAt,
		&reconciliationStatus,
		&res.Reconciliation.DivergenceDetected,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Source.System = domain.SourceSystem(sourceSystem)
	res.Status = domain.ReservationStatus(status)
	res.Reconciliation.Status = reconciliationStatus
	if err := json.Unmarshal(metadata, &res.Metadata); err != nil {
		return domain.Reservation{}, fmt.Errorf("decode metadata: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
