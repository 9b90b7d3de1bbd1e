package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coverbook/coverbook/internal/clock"
	"github.com/coverbook/coverbook/internal/domain"
)

// ConfigProvider supplies a restaurant's service hours and capacity.
// A nil ServiceHours result means no service that day.
type ConfigProvider interface {
	ServiceHours(ctx context.Context, restaurantID string, date time.Time) (*domain.ServiceHours, error)
	Capacity(ctx context.Context, restaurantID string) (domain.Capacity, error)
}

// WindowLister is the engine's read-only view of the ledger store.
type WindowLister interface {
	ListInWindow(ctx context.Context, restaurantID string, from, to time.Time, statuses []domain.ReservationStatus) ([]domain.Reservation, error)
}

// ComputeOptions tune a single availability computation.
type ComputeOptions struct {
	// MaxCoversPer15Min overrides the capacity cap; when zero the cap is
	// floor(totalSeats * 0.35). The cap is a turnover heuristic, not an
	// exact seat-conflict model, and is kept formula-compatible with the
	// booking channels that consume it.
	MaxCoversPer15Min int
}

// AvailabilityService derives bookable slots from the ledger's current
// load. It is purely functional over (ledger snapshot, config, clock): it
// never mutates the ledger and holds no state between calls, so concurrent
// queries need no coordination and a failed call is retried simply by
// recomputing.
type AvailabilityService struct {
	store  WindowLister
	config ConfigProvider
	clock  clock.Clock
}

func NewAvailabilityService(store WindowLister, config ConfigProvider, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{
		store:  store,
		config: config,
		clock:  clk,
	}
}

// ComputeAvailability returns the ranked bookable slots for one day.
// Missing configuration (unknown restaurant, no hours for the weekday, no
// seats) yields an empty list: "no availability" is a business outcome,
// not an error. Store failures propagate as-is.
func (s *AvailabilityService) ComputeAvailability(ctx context.Context, restaurantID string, date time.Time, opts ComputeOptions) ([]domain.Slot, error) {
	hours, err := s.config.ServiceHours(ctx, restaurantID, date)
	if err != nil {
		if errors.Is(err, domain.ErrRestaurantNotFound) {
			return []domain.Slot{}, nil
		}
		return nil, err
	}
	if hours == nil {
		return []domain.Slot{}, nil
	}

	capacity, err := s.config.Capacity(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, domain.ErrRestaurantNotFound) {
			return []domain.Slot{}, nil
		}
		return nil, err
	}
	if capacity.TotalSeats <= 0 {
		return []domain.Slot{}, nil
	}

	avgMinutes := capacity.AvgDiningMinutes
	if avgMinutes <= 0 {
		avgMinutes = domain.DefaultAvgDiningMinutes
	}
	avgDining := time.Duration(avgMinutes) * time.Minute

	coverCap := opts.MaxCoversPer15Min
	if coverCap <= 0 {
		coverCap = capacity.TotalSeats * 35 / 100
	}
	if coverCap <= 0 {
		return []domain.Slot{}, nil
	}

	grid := buildSlotGrid(date, *hours, avgDining)
	if len(grid) == 0 {
		return []domain.Slot{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	reservations, err := s.store.ListInWindow(ctx, restaurantID, dayStart, dayStart.Add(24*time.Hour), domain.ActiveStatuses())
	if err != nil {
		return nil, err
	}

	overlayReservations(grid, reservations, avgDining)
	return scoreSlots(grid, coverCap, capacity.TotalSeats, s.clock.Now()), nil
}

// SlotCheck is the outcome of probing one requested time and party size.
type SlotCheck struct {
	Available bool
	Slot      *domain.Slot
	Reason    string
}

const (
	reasonOutsideHours         = "Time slot not within service hours"
	reasonInsufficientCapacity = "Not enough available covers for the requested party size"
)

// CheckSlot locates the slot containing the requested time and verifies it
// can absorb the party.
func (s *AvailabilityService) CheckSlot(ctx context.Context, restaurantID string, requested time.Time, partySize int, opts ComputeOptions) (SlotCheck, error) {
	if partySize <= 0 {
		return SlotCheck{}, fmt.Errorf("%w: party size must be positive", domain.ErrValidation)
	}

	slots, err := s.ComputeAvailability(ctx, restaurantID, requested, opts)
	if err != nil {
		return SlotCheck{}, err
	}

	for i := range slots {
		slot := slots[i]
		if requested.Before(slot.StartAt) || !requested.Before(slot.EndAt) {
			continue
		}
		if slot.AvailableCovers < partySize {
			return SlotCheck{Available: false, Slot: &slot, Reason: reasonInsufficientCapacity}, nil
		}
		return SlotCheck{Available: true, Slot: &slot}, nil
	}
	return SlotCheck{Available: false, Reason: reasonOutsideHours}, nil
}

// ComputeRange computes availability for each day in [start, end]
// inclusive, keyed by ISO date. Days are independent; there is no
// cross-day state.
func (s *AvailabilityService) ComputeRange(ctx context.Context, restaurantID string, start, end time.Time, opts ComputeOptions) (map[string][]domain.Slot, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range end precedes start", domain.ErrValidation)
	}

	out := make(map[string][]domain.Slot)
	for day := startOfDay(start); !day.After(startOfDay(end)); day = day.AddDate(0, 0, 1) {
		slots, err := s.ComputeAvailability(ctx, restaurantID, day, opts)
		if err != nil {
			return nil, err
		}
		out[day.Format("2006-01-02")] = slots
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
