package app

import (
	"context"
	"errors"
	"time"

	"github.com/coverbook/coverbook/internal/clock"
	"github.com/coverbook/coverbook/internal/domain"
)

// StaleLister finds reservations that never progressed past booking.
type StaleLister interface {
	ListStale(ctx context.Context, statuses []domain.ReservationStatus, startedBefore time.Time, limit int) ([]domain.Reservation, error)
}

// StatusUpdater is the slice of the ledger the sweeper needs.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, in UpdateStatusInput) error
}

const (
	defaultNoShowGrace = 30 * time.Minute
	sweepBatchSize     = 200
)

// NoShowService moves booked/confirmed reservations whose start time has
// passed by more than the grace period to no_show. It goes through the
// ledger's transactional status update, so a guest checked in between the
// listing and the update simply loses the race and is skipped.
type NoShowService struct {
	repo   StaleLister
	ledger StatusUpdater
	clock  clock.Clock
	grace  time.Duration
}

type NoShowOption func(*NoShowService)

// WithGracePeriod overrides how long past the start time a reservation may
// sit before being swept.
func WithGracePeriod(d time.Duration) NoShowOption {
	return func(s *NoShowService) {
		if d > 0 {
			s.grace = d
		}
	}
}

func NewNoShowService(repo StaleLister, ledger StatusUpdater, clk clock.Clock, opts ...NoShowOption) *NoShowService {
	svc := &NoShowService{
		repo:   repo,
		ledger: ledger,
		clock:  clk,
		grace:  defaultNoShowGrace,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Sweep marks stale reservations as no-shows and returns how many moved.
func (s *NoShowService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.grace)
	stale, err := s.repo.ListStale(ctx, []domain.ReservationStatus{domain.StatusBooked, domain.StatusConfirmed}, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, res := range stale {
		err := s.ledger.UpdateStatus(ctx, UpdateStatusInput{
			RestaurantID:  res.RestaurantID,
			ReservationID: res.ID,
			NewStatus:     domain.StatusNoShow,
			Source:        domain.SourceNative,
			Metadata:      map[string]any{"reason": "no-show sweep"},
		})
		if err != nil {
			// Lost the race to a check-in or cancellation; leave it be.
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			return moved, err
		}
		moved++
	}
	return moved, nil
}
