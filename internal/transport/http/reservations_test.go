package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coverbook/coverbook/internal/app"
	"github.com/coverbook/coverbook/internal/domain"
)

func testRouter(ledger *stubLedger) http.Handler {
	return NewRouter(RouterDeps{
		Ledger:       ledger,
		Availability: &stubAvailability{},
		Restaurants:  &stubRestaurants{},
		Verifier:     &stubVerifier{},
	})
}

func TestHandleCreateReservation(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	created := domain.Reservation{
		ID:           "res-123",
		RestaurantID: "rest-1",
		StartAt:      now.Add(8 * time.Hour),
		PartySize:    4,
		Source:       domain.Source{System: domain.SourceNative},
		Status:       domain.StatusBooked,
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"start_at":"2025-06-12T19:00:00Z","party_size":4,"source":{"system":"native"},"guest":{"phone":"+34600111222"}}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"id":"res-123"`,
		},
		{
			name:           "invalid json",
			body:           `{"start_at":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field",
			body:           `{"start_at":"2025-06-12T19:00:00Z","party_size":4,"source":{"system":"native"},"surprise":true}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed start time",
			body:           `{"start_at":"tonight","party_size":4,"source":{"system":"native"}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "phone not verified",
			body:           `{"start_at":"2025-06-12T19:00:00Z","party_size":4,"source":{"system":"native"},"guest":{"phone":"+34600111222"}}`,
			serviceErr:     domain.ErrPhoneNotVerified,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"phone_not_verified"`,
		},
		{
			name:           "duplicate external id",
			body:           `{"start_at":"2025-06-12T19:00:00Z","party_size":4,"source":{"system":"external_resy","external_id":"R-1"}}`,
			serviceErr:     domain.ErrDuplicateReservation,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"duplicate_reservation"`,
		},
		{
			name:           "restaurant not found",
			body:           `{"start_at":"2025-06-12T19:00:00Z","party_size":4,"source":{"system":"native"},"guest":{"phone":"+34600111222"}}`,
			serviceErr:     domain.ErrRestaurantNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			body:           `{"start_at":"2025-06-12T19:00:00Z","party_size":4,"source":{"system":"native"},"guest":{"phone":"+34600111222"}}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := testRouter(&stubLedger{reservation: created, err: tt.serviceErr})
			req := httptest.NewRequest(http.MethodPost, "/restaurants/rest-1/reservations", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleUpdateReservationStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"status":"seated","source":"native"}`,
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "invalid transition",
			body:           `{"status":"booked","source":"native"}`,
			serviceErr:     domain.ErrInvalidTransition,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"invalid_status_transition"`,
		},
		{
			name:           "reservation not found",
			body:           `{"status":"seated","source":"native"}`,
			serviceErr:     domain.ErrReservationNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid json",
			body:           `{"status":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ledger := &stubLedger{err: tt.serviceErr}
			router := testRouter(ledger)
			req := httptest.NewRequest(http.MethodPost, "/restaurants/rest-1/reservations/res-1/status", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
			if tt.expectedStatus == http.StatusNoContent {
				if ledger.lastUpdate.RestaurantID != "rest-1" || ledger.lastUpdate.ReservationID != "res-1" {
					t.Fatalf("expected path vars to reach the service, got %+v", ledger.lastUpdate)
				}
				if ledger.lastUpdate.NewStatus != domain.StatusSeated {
					t.Fatalf("expected seated, got %s", ledger.lastUpdate.NewStatus)
				}
			}
		})
	}
}

func TestHandleCancelReservation(t *testing.T) {
	t.Parallel()

	ledger := &stubLedger{}
	router := testRouter(ledger)
	req := httptest.NewRequest(http.MethodPost, "/restaurants/rest-1/reservations/res-1/cancel", bytes.NewBufferString(`{"source":"native","reason":"guest called"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if ledger.lastCancelReason != "guest called" {
		t.Fatalf("expected cancel reason to reach the service, got %q", ledger.lastCancelReason)
	}
}

func TestHandleListReservations(t *testing.T) {
	t.Parallel()

	t.Run("passes window and returns list", func(t *testing.T) {
		ledger := &stubLedger{
			list: []domain.Reservation{{ID: "res-1", RestaurantID: "rest-1", Status: domain.StatusBooked}},
		}
		router := testRouter(ledger)
		req := httptest.NewRequest(http.MethodGet, "/restaurants/rest-1/reservations?from=2025-06-12T00:00:00Z&to=2025-06-13T00:00:00Z&status=booked", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"id":"res-1"`) {
			t.Fatalf("expected listed reservation, got %q", rec.Body.String())
		}
		if ledger.lastListStatus != domain.StatusBooked {
			t.Fatalf("expected status filter to reach the service, got %q", ledger.lastListStatus)
		}
	})

	t.Run("malformed window is rejected", func(t *testing.T) {
		router := testRouter(&stubLedger{})
		req := httptest.NewRequest(http.MethodGet, "/restaurants/rest-1/reservations?from=yesterday&to=2025-06-13T00:00:00Z", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleMergeReservationMetadata(t *testing.T) {
	t.Parallel()

	ledger := &stubLedger{}
	router := testRouter(ledger)
	req := httptest.NewRequest(http.MethodPatch, "/restaurants/rest-1/reservations/res-1/metadata", bytes.NewBufferString(`{"table":"12"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if ledger.lastPatch["table"] != "12" {
		t.Fatalf("expected patch to reach the service, got %v", ledger.lastPatch)
	}
}

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()

	router := testRouter(&stubLedger{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/restaurants/rest-1/reservations", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}
}

type stubLedger struct {
	reservation      domain.Reservation
	list             []domain.Reservation
	err              error
	lastUpdate       app.UpdateStatusInput
	lastCancelReason string
	lastListStatus   domain.ReservationStatus
	lastPatch        map[string]any
}

func (s *stubLedger) Create(_ context.Context, _ app.CreateReservationInput) (domain.Reservation, error) {
	return s.reservation, s.err
}

func (s *stubLedger) UpdateStatus(_ context.Context, in app.UpdateStatusInput) error {
	s.lastUpdate = in
	return s.err
}

func (s *stubLedger) Cancel(_ context.Context, _, _ string, _ domain.SourceSystem, reason string) error {
	s.lastCancelReason = reason
	return s.err
}

func (s *stubLedger) MergeMetadata(_ context.Context, _, _ string, patch map[string]any) error {
	s.lastPatch = patch
	return s.err
}

func (s *stubLedger) Get(_ context.Context, _, _ string) (domain.Reservation, error) {
	return s.reservation, s.err
}

func (s *stubLedger) ListWindow(_ context.Context, _ string, _, _ time.Time, status domain.ReservationStatus) ([]domain.Reservation, error) {
	s.lastListStatus = status
	return s.list, s.err
}

type stubRestaurants struct {
	restaurant domain.Restaurant
	err        error
	lastHours  map[time.Weekday]domain.ServiceHours
}

func (s *stubRestaurants) CreateRestaurant(_ context.Context, _ app.CreateRestaurantInput) (domain.Restaurant, error) {
	return s.restaurant, s.err
}

func (s *stubRestaurants) Get(_ context.Context, _ string) (domain.Restaurant, error) {
	return s.restaurant, s.err
}

func (s *stubRestaurants) SetServiceHours(_ context.Context, _ string, hours map[time.Weekday]domain.ServiceHours) error {
	s.lastHours = hours
	return s.err
}

type stubVerifier struct {
	err       error
	lastPhone string
	lastCode  string
}

func (s *stubVerifier) Start(_ context.Context, phone string) error {
	s.lastPhone = phone
	return s.err
}

func (s *stubVerifier) Confirm(_ context.Context, phone, code string) error {
	s.lastPhone = phone
	s.lastCode = code
	return s.err
}

type stubAvailability struct {
	slots []domain.Slot
	check app.SlotCheck
	days  map[string][]domain.Slot
	err   error
}

func (s *stubAvailability) ComputeAvailability(_ context.Context, _ string, _ time.Time, _ app.ComputeOptions) ([]domain.Slot, error) {
	return s.slots, s.err
}

func (s *stubAvailability) CheckSlot(_ context.Context, _ string, _ time.Time, _ int, _ app.ComputeOptions) (app.SlotCheck, error) {
	return s.check, s.err
}

func (s *stubAvailability) ComputeRange(_ context.Context, _ string, _, _ time.Time, _ app.ComputeOptions) (map[string][]domain.Slot, error) {
	return s.days, s.err
}
