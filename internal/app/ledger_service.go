package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coverbook/coverbook/internal/clock"
	"github.com/coverbook/coverbook/internal/domain"
)

// ReservationRepository is the ledger's persistence collaborator. WithTx
// wraps the read-then-conditional-write sequences that must be indivisible
// with respect to concurrent transactions on the same reservation or the
// same (restaurant, source system, external id) key.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Get(ctx context.Context, restaurantID, reservationID string) (domain.Reservation, error)
	GetForUpdate(ctx context.Context, restaurantID, reservationID string) (domain.Reservation, error)
	FindBySource(ctx context.Context, restaurantID string, system domain.SourceSystem, externalID string) (*domain.Reservation, error)
	Create(ctx context.Context, res domain.Reservation) error
	SetStatus(ctx context.Context, restaurantID, reservationID string, status domain.ReservationStatus, updatedAt time.Time) error
	AppendStatusChange(ctx context.Context, reservationID string, change domain.StatusChange) error
	ListStatusHistory(ctx context.Context, reservationID string) ([]domain.StatusChange, error)
	ListInWindow(ctx context.Context, restaurantID string, from, to time.Time, statuses []domain.ReservationStatus) ([]domain.Reservation, error)
	MergeMetadata(ctx context.Context, restaurantID, reservationID string, patch map[string]any, updatedAt time.Time) error
	SetReconciliation(ctx context.Context, restaurantID, reservationID string, rec domain.Reconciliation, updatedAt time.Time) error
	ListStale(ctx context.Context, statuses []domain.ReservationStatus, startedBefore time.Time, limit int) ([]domain.Reservation, error)
}

// PhoneRegistry records which phone numbers have passed verification.
type PhoneRegistry interface {
	IsVerified(ctx context.Context, phone string) (bool, error)
	MarkVerified(ctx context.Context, phone string, at time.Time) error
}

// LedgerService is the single writer of reservation state, regardless of
// which channel created the booking.
type LedgerService struct {
	repo   ReservationRepository
	phones PhoneRegistry
	clock  clock.Clock
}

func NewLedgerService(repo ReservationRepository, phones PhoneRegistry, clk clock.Clock) *LedgerService {
	return &LedgerService{
		repo:   repo,
		phones: phones,
		clock:  clk,
	}
}

type CreateReservationInput struct {
	RestaurantID string
	StartAt      time.Time
	PartySize    int
	Source       domain.Source
	Guest        domain.Guest
	Metadata     map[string]any
}

// Create validates and writes a new reservation. The duplicate-external-id
// check and the insert run inside one transaction so concurrent ingestion
// of the same external booking fails instead of silently overwriting.
// Native bookings start as booked; external channels arrive pre-confirmed.
func (s *LedgerService) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	if in.RestaurantID == "" {
		return domain.Reservation{}, fmt.Errorf("%w: restaurant id is required", domain.ErrValidation)
	}
	if in.StartAt.IsZero() {
		return domain.Reservation{}, fmt.Errorf("%w: start time is required", domain.ErrValidation)
	}
	if in.PartySize <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: party size must be positive", domain.ErrValidation)
	}
	if !in.Source.System.Valid() {
		return domain.Reservation{}, fmt.Errorf("%w: unknown source system %q", domain.ErrValidation, in.Source.System)
	}

	status := domain.StatusBooked
	if in.Source.System.IsExternal() {
		if in.Source.ExternalID == "" {
			return domain.Reservation{}, fmt.Errorf("%w: external id is required for %s", domain.ErrValidation, in.Source.System)
		}
		status = domain.StatusConfirmed
	} else {
		if in.Guest.Phone == "" {
			return domain.Reservation{}, fmt.Errorf("%w: phone number is required for native bookings", domain.ErrValidation)
		}
		verified, err := s.phones.IsVerified(ctx, in.Guest.Phone)
		if err != nil {
			return domain.Reservation{}, err
		}
		if !verified {
			return domain.Reservation{}, domain.ErrPhoneNotVerified
		}
	}

	now := s.clock.Now()
	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	res := domain.Reservation{
		ID:           uuid.NewString(),
		RestaurantID: in.RestaurantID,
		StartAt:      in.StartAt,
		PartySize:    in.PartySize,
		Source:       in.Source,
		Guest:        in.Guest,
		Status:       status,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	initial := domain.StatusChange{
		Status:    status,
		ChangedAt: now,
		Source:    in.Source.System,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if in.Source.ExternalID != "" {
			existing, err := s.repo.FindBySource(txCtx, in.RestaurantID, in.Source.System, in.Source.ExternalID)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrDuplicateReservation
			}
		}
		if err := s.repo.Create(txCtx, res); err != nil {
			return err
		}
		return s.repo.AppendStatusChange(txCtx, res.ID, initial)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	res.StatusHistory = []domain.StatusChange{initial}
	return res, nil
}

type UpdateStatusInput struct {
	RestaurantID  string
	ReservationID string
	NewStatus     domain.ReservationStatus
	Source        domain.SourceSystem
	Metadata      map[string]any
}

// UpdateStatus atomically appends a history entry and moves the status.
// Setting the current status again is a no-op that leaves history untouched.
// The read-modify-write runs in one transaction so racing changes (a host
// seating a party while the no-show timer fires) cannot lose updates.
func (s *LedgerService) UpdateStatus(ctx context.Context, in UpdateStatusInput) error {
	if !in.NewStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, in.NewStatus)
	}
	if !in.Source.Valid() {
		return fmt.Errorf("%w: unknown source system %q", domain.ErrValidation, in.Source)
	}

	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetForUpdate(txCtx, in.RestaurantID, in.ReservationID)
		if err != nil {
			return err
		}
		if current.Status == in.NewStatus {
			return nil
		}
		if !current.Status.CanTransitionTo(in.NewStatus) {
			return fmt.Errorf("%s to %s: %w", current.Status, in.NewStatus, domain.ErrInvalidTransition)
		}

		change := domain.StatusChange{
			Status:         in.NewStatus,
			PreviousStatus: current.Status,
			ChangedAt:      now,
			Source:         in.Source,
			Metadata:       in.Metadata,
		}
		if err := s.repo.AppendStatusChange(txCtx, in.ReservationID, change); err != nil {
			return err
		}
		return s.repo.SetStatus(txCtx, in.RestaurantID, in.ReservationID, in.NewStatus, now)
	})
}

// Cancel moves a reservation to cancelled, recording the reason in the
// history entry's metadata.
func (s *LedgerService) Cancel(ctx context.Context, restaurantID, reservationID string, source domain.SourceSystem, reason string) error {
	var metadata map[string]any
	if reason != "" {
		metadata = map[string]any{"reason": reason}
	}
	return s.UpdateStatus(ctx, UpdateStatusInput{
		RestaurantID:  restaurantID,
		ReservationID: reservationID,
		NewStatus:     domain.StatusCancelled,
		Source:        source,
		Metadata:      metadata,
	})
}

// Get returns a reservation with its full status history.
func (s *LedgerService) Get(ctx context.Context, restaurantID, reservationID string) (domain.Reservation, error) {
	res, err := s.repo.Get(ctx, restaurantID, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	history, err := s.repo.ListStatusHistory(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.StatusHistory = history
	return res, nil
}

// ListWindow returns reservations whose start time falls in [from, to),
// ascending by start time. A non-empty status filters to that exact status.
func (s *LedgerService) ListWindow(ctx context.Context, restaurantID string, from, to time.Time, status domain.ReservationStatus) ([]domain.Reservation, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: window end must be after start", domain.ErrValidation)
	}
	var statuses []domain.ReservationStatus
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
		}
		statuses = []domain.ReservationStatus{status}
	}
	return s.repo.ListInWindow(ctx, restaurantID, from, to, statuses)
}

// MergeMetadata merges the patch into the reservation's metadata map. The
// map is never replaced wholesale; existing keys outside the patch survive.
func (s *LedgerService) MergeMetadata(ctx context.Context, restaurantID, reservationID string, patch map[string]any) error {
	if len(patch) == 0 {
		return fmt.Errorf("%w: metadata patch is empty", domain.ErrValidation)
	}
	return s.repo.MergeMetadata(ctx, restaurantID, reservationID, patch, s.clock.Now())
}

// RecordReconciliation stores the result of an external reconciliation
// pass. Only the reconciliation collaborator calls this.
func (s *LedgerService) RecordReconciliation(ctx context.Context, restaurantID, reservationID string, rec domain.Reconciliation) error {
	return s.repo.SetReconciliation(ctx, restaurantID, reservationID, rec, s.clock.Now())
}
