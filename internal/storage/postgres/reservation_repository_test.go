package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coverbook/coverbook/internal/domain"
	"github.com/coverbook/coverbook/internal/testutil"
)

func TestReservationRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewReservationRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	newReservation := func(restaurantID string, start time.Time, system domain.SourceSystem, externalID string) domain.Reservation {
		now := time.Now().UTC().Truncate(time.Microsecond)
		return domain.Reservation{
			ID:           uuid.NewString(),
			RestaurantID: restaurantID,
			StartAt:      start,
			PartySize:    4,
			Source:       domain.Source{System: system, ExternalID: externalID},
			Guest:        domain.Guest{Name: "Ana", Phone: "+34600111222"},
			Status:       domain.StatusBooked,
			Metadata:     map[string]any{"occasion": "birthday"},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	t.Run("Create and Get round-trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond)
		res := newReservation(restaurantID, start, domain.SourceNative, "")
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.Get(ctx, restaurantID, res.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.PartySize != 4 || got.Status != domain.StatusBooked || got.Guest.Name != "Ana" {
			t.Fatalf("unexpected reservation: %+v", got)
		}
		if !got.StartAt.Equal(start) {
			t.Fatalf("expected start %v, got %v", start, got.StartAt)
		}
		if got.Metadata["occasion"] != "birthday" {
			t.Fatalf("expected metadata round-trip, got %v", got.Metadata)
		}

		_, err = repo.Get(ctx, restaurantID, uuid.NewString())
		if !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
		_, err = repo.Get(ctx, restaurantID, "not-a-uuid")
		if !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("external id unique per restaurant and source", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)
		otherID := testutil.InsertRestaurant(t, ctx, pool, "El Faro", 30, 90)

		start := time.Now().UTC().Add(24 * time.Hour)
		if err := repo.Create(ctx, newReservation(restaurantID, start, domain.SourceResy, "RESY-1")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		err := repo.Create(ctx, newReservation(restaurantID, start.Add(time.Hour), domain.SourceResy, "RESY-1"))
		if !errors.Is(err, domain.ErrDuplicateReservation) {
			t.Fatalf("expected ErrDuplicateReservation, got %v", err)
		}

		// Same external id is fine for another restaurant or another channel.
		if err := repo.Create(ctx, newReservation(otherID, start, domain.SourceResy, "RESY-1")); err != nil {
			t.Fatalf("expected no error across restaurants, got %v", err)
		}
		if err := repo.Create(ctx, newReservation(restaurantID, start, domain.SourceOpenTable, "RESY-1")); err != nil {
			t.Fatalf("expected no error across channels, got %v", err)
		}

		// Native bookings carry no external id and never collide.
		if err := repo.Create(ctx, newReservation(restaurantID, start, domain.SourceNative, "")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.Create(ctx, newReservation(restaurantID, start, domain.SourceNative, "")); err != nil {
			t.Fatalf("expected no error for second native booking, got %v", err)
		}
	})

	t.Run("FindBySource", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		res := newReservation(restaurantID, time.Now().UTC().Add(24*time.Hour), domain.SourceOpenTable, "OT-42")
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		found, err := repo.FindBySource(ctx, restaurantID, domain.SourceOpenTable, "OT-42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found == nil || found.ID != res.ID {
			t.Fatalf("unexpected reservation: %+v", found)
		}

		found, err = repo.FindBySource(ctx, restaurantID, domain.SourceOpenTable, "missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found != nil {
			t.Fatalf("expected nil for missing external id, got %+v", found)
		}
	})

	t.Run("status history is append-only and ordered", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		res := newReservation(restaurantID, time.Now().UTC().Add(24*time.Hour), domain.SourceNative, "")
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		changes := []domain.StatusChange{
			{Status: domain.StatusBooked, ChangedAt: now, Source: domain.SourceNative},
			{Status: domain.StatusConfirmed, PreviousStatus: domain.StatusBooked, ChangedAt: now.Add(time.Minute), Source: domain.SourceNative},
			{Status: domain.StatusSeated, PreviousStatus: domain.StatusConfirmed, ChangedAt: now.Add(2 * time.Minute), Source: domain.SourceNative, Metadata: map[string]any{"table": "12"}},
		}
		for _, change := range changes {
			if err := repo.AppendStatusChange(ctx, res.ID, change); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		history, err := repo.ListStatusHistory(ctx, res.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(history))
		}
		for i, change := range changes {
			if history[i].Status != change.Status || history[i].PreviousStatus != change.PreviousStatus {
				t.Fatalf("entry %d out of order: %+v", i, history[i])
			}
		}
		if history[2].Metadata["table"] != "12" {
			t.Fatalf("expected history metadata round-trip, got %v", history[2].Metadata)
		}
	})

	t.Run("SetStatus updates row and reports missing", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		res := newReservation(restaurantID, time.Now().UTC().Add(24*time.Hour), domain.SourceNative, "")
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if err := repo.SetStatus(ctx, restaurantID, res.ID, domain.StatusSeated, time.Now().UTC()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := repo.Get(ctx, restaurantID, res.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Status != domain.StatusSeated {
			t.Fatalf("expected seated, got %s", got.Status)
		}

		err = repo.SetStatus(ctx, restaurantID, uuid.NewString(), domain.StatusSeated, time.Now().UTC())
		if !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("ListInWindow is half-open, ordered and filtered", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		dayStart := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
		ids := map[string]string{}
		for name, row := range map[string]struct {
			start  time.Time
			status domain.ReservationStatus
		}{
			"noon":     {dayStart.Add(12 * time.Hour), domain.StatusConfirmed},
			"evening":  {dayStart.Add(19 * time.Hour), domain.StatusBooked},
			"next-day": {dayStart.Add(24 * time.Hour), domain.StatusBooked},
		} {
			ids[name] = testutil.InsertReservation(t, ctx, pool, domain.Reservation{
				RestaurantID: restaurantID,
				StartAt:      row.start,
				PartySize:    2,
				Source:       domain.Source{System: domain.SourceNative},
				Status:       row.status,
			})
		}

		out, err := repo.ListInWindow(ctx, restaurantID, dayStart, dayStart.Add(24*time.Hour), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 reservations in window, got %d", len(out))
		}
		if out[0].ID != ids["noon"] || out[1].ID != ids["evening"] {
			t.Fatalf("unexpected order: %s, %s", out[0].ID, out[1].ID)
		}

		out, err = repo.ListInWindow(ctx, restaurantID, dayStart, dayStart.Add(24*time.Hour), []domain.ReservationStatus{domain.StatusConfirmed})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 1 || out[0].ID != ids["noon"] {
			t.Fatalf("expected only the confirmed reservation, got %+v", out)
		}
	})

	t.Run("MergeMetadata keeps untouched keys", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		res := newReservation(restaurantID, time.Now().UTC().Add(24*time.Hour), domain.SourceNative, "")
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		err := repo.MergeMetadata(ctx, restaurantID, res.ID, map[string]any{"table": "4"}, time.Now().UTC())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.Get(ctx, restaurantID, res.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Metadata["occasion"] != "birthday" || got.Metadata["table"] != "4" {
			t.Fatalf("expected merged metadata, got %v", got.Metadata)
		}
	})

	t.Run("SetReconciliation round-trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		res := newReservation(restaurantID, time.Now().UTC().Add(24*time.Hour), domain.SourceResy, "RESY-9")
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		at := time.Now().UTC().Truncate(time.Microsecond)
		rec := domain.Reconciliation{LastReconciledAt: &at, Status: "matched", DivergenceDetected: false}
		if err := repo.SetReconciliation(ctx, restaurantID, res.ID, rec, at); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.Get(ctx, restaurantID, res.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Reconciliation.Status != "matched" || got.Reconciliation.LastReconciledAt == nil {
			t.Fatalf("unexpected reconciliation: %+v", got.Reconciliation)
		}
	})

	t.Run("ListStale respects statuses, cutoff and limit", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		now := time.Now().UTC()
		for _, row := range []struct {
			start  time.Time
			status domain.ReservationStatus
		}{
			{now.Add(-2 * time.Hour), domain.StatusBooked},
			{now.Add(-90 * time.Minute), domain.StatusConfirmed},
			{now.Add(-1 * time.Hour), domain.StatusSeated},
			{now.Add(time.Hour), domain.StatusBooked},
		} {
			testutil.InsertReservation(t, ctx, pool, domain.Reservation{
				RestaurantID: restaurantID,
				StartAt:      row.start,
				PartySize:    2,
				Source:       domain.Source{System: domain.SourceNative},
				Status:       row.status,
			})
		}

		stale, err := repo.ListStale(ctx, []domain.ReservationStatus{domain.StatusBooked, domain.StatusConfirmed}, now.Add(-30*time.Minute), 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(stale) != 2 {
			t.Fatalf("expected 2 stale reservations, got %d", len(stale))
		}

		limited, err := repo.ListStale(ctx, []domain.ReservationStatus{domain.StatusBooked, domain.StatusConfirmed}, now.Add(-30*time.Minute), 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(limited) != 1 {
			t.Fatalf("expected limit to apply, got %d", len(limited))
		}
	})

	t.Run("WithTx rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		restaurantID := testutil.InsertRestaurant(t, ctx, pool, "La Taverna", 50, 90)

		res := newReservation(restaurantID, time.Now().UTC().Add(24*time.Hour), domain.SourceNative, "")
		sentinel := errors.New("abort")
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.Create(txCtx, res); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected sentinel error, got %v", err)
		}

		_, err = repo.Get(ctx, restaurantID, res.ID)
		if !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected rollback, got %v", err)
		}
	})
}
