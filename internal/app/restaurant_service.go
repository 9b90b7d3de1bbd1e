package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coverbook/coverbook/internal/clock"
	"github.com/coverbook/coverbook/internal/domain"
)

type RestaurantRepository interface {
	Create(ctx context.Context, r domain.Restaurant) error
	Get(ctx context.Context, restaurantID string) (domain.Restaurant, error)
	SetServiceHours(ctx context.Context, restaurantID string, hours map[time.Weekday]domain.ServiceHours) error
}

// RestaurantService owns restaurant configuration and doubles as the
// availability engine's ConfigProvider.
type RestaurantService struct {
	repo  RestaurantRepository
	clock clock.Clock
}

func NewRestaurantService(repo RestaurantRepository, clk clock.Clock) *RestaurantService {
	return &RestaurantService{
		repo:  repo,
		clock: clk,
	}
}

type CreateRestaurantInput struct {
	Name             string
	TotalSeats       int
	AvgDiningMinutes int
}

func (s *RestaurantService) CreateRestaurant(ctx context.Context, in CreateRestaurantInput) (domain.Restaurant, error) {
	if in.Name == "" {
		return domain.Restaurant{}, fmt.Errorf("%w: restaurant name is required", domain.ErrValidation)
	}
	if in.TotalSeats <= 0 {
		return domain.Restaurant{}, fmt.Errorf("%w: total seats must be positive", domain.ErrValidation)
	}
	avg := in.AvgDiningMinutes
	if avg <= 0 {
		avg = domain.DefaultAvgDiningMinutes
	}

	restaurant := domain.Restaurant{
		ID:               uuid.NewString(),
		Name:             in.Name,
		TotalSeats:       in.TotalSeats,
		AvgDiningMinutes: avg,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.repo.Create(ctx, restaurant); err != nil {
		return domain.Restaurant{}, err
	}
	return restaurant, nil
}

func (s *RestaurantService) Get(ctx context.Context, restaurantID string) (domain.Restaurant, error) {
	if restaurantID == "" {
		return domain.Restaurant{}, fmt.Errorf("%w: restaurant id is required", domain.ErrValidation)
	}
	return s.repo.Get(ctx, restaurantID)
}

// SetServiceHours replaces the weekly hours. Days absent from the map have
// no service and produce no availability.
func (s *RestaurantService) SetServiceHours(ctx context.Context, restaurantID string, hours map[time.Weekday]domain.ServiceHours) error {
	if restaurantID == "" {
		return fmt.Errorf("%w: restaurant id is required", domain.ErrValidation)
	}
	for day, h := range hours {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}
	return s.repo.SetServiceHours(ctx, restaurantID, hours)
}

// ServiceHours implements ConfigProvider; nil means closed that day.
func (s *RestaurantService) ServiceHours(ctx context.Context, restaurantID string, date time.Time) (*domain.ServiceHours, error) {
	restaurant, err := s.repo.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	hours, ok := restaurant.HoursFor(date.Weekday())
	if !ok {
		return nil, nil
	}
	return &hours, nil
}

// Capacity implements ConfigProvider.
func (s *RestaurantService) Capacity(ctx context.Context, restaurantID string) (domain.Capacity, error) {
	restaurant, err := s.repo.Get(ctx, restaurantID)
	if err != nil {
		return domain.Capacity{}, err
	}
	return domain.Capacity{
		TotalSeats:       restaurant.TotalSeats,
		AvgDiningMinutes: restaurant.AvgDiningMinutes,
	}, nil
}
