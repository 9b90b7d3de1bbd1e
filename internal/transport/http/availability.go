package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/coverbook/coverbook/internal/app"
	"github.com/coverbook/coverbook/internal/domain"
)

// AvailabilityComputer is the slice of the availability engine the HTTP
// layer needs.
type AvailabilityComputer interface {
	ComputeAvailability(ctx context.Context, restaurantID string, date time.Time, opts app.ComputeOptions) ([]domain.Slot, error)
	CheckSlot(ctx context.Context, restaurantID string, requested time.Time, partySize int, opts app.ComputeOptions) (app.SlotCheck, error)
	ComputeRange(ctx context.Context, restaurantID string, start, end time.Time, opts app.ComputeOptions) (map[string][]domain.Slot, error)
}

const dateLayout = "2006-01-02"

// HandleAvailability returns the scored slot grid for one service day.
func HandleAvailability(svc AvailabilityComputer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := mux.Vars(r)["id"]
		q := r.URL.Query()

		date, err := time.ParseInLocation(dateLayout, q.Get("date"), time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDate, "date must be YYYY-MM-DD")
			return
		}
		opts, err := parseComputeOptions(q.Get("max_covers"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "max_covers must be a positive integer")
			return
		}

		slots, err := svc.ComputeAvailability(r.Context(), restaurantID, date, opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			Date:  q.Get("date"),
			Slots: toSlotPayloads(slots),
		})
	}
}

// HandleAvailabilityRange returns slot grids for each day in an inclusive
// date range, keyed by date.
func HandleAvailabilityRange(svc AvailabilityComputer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := mux.Vars(r)["id"]
		q := r.URL.Query()

		start, err := time.ParseInLocation(dateLayout, q.Get("start"), time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDate, "start must be YYYY-MM-DD")
			return
		}
		end, err := time.ParseInLocation(dateLayout, q.Get("end"), time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDate, "end must be YYYY-MM-DD")
			return
		}
		opts, err := parseComputeOptions(q.Get("max_covers"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "max_covers must be a positive integer")
			return
		}

		days, err := svc.ComputeRange(r.Context(), restaurantID, start, end, opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make(map[string][]slotPayload, len(days))
		for day, slots := range days {
			resp[day] = toSlotPayloads(slots)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleCheckSlot answers whether one specific time can seat a party.
func HandleCheckSlot(svc AvailabilityComputer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := mux.Vars(r)["id"]
		q := r.URL.Query()

		at, err := time.Parse(time.RFC3339, q.Get("at"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "at must be RFC3339")
			return
		}
		partySize, err := strconv.Atoi(q.Get("party_size"))
		if err != nil || partySize <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidPartySize, "party_size must be a positive integer")
			return
		}
		opts, err := parseComputeOptions(q.Get("max_covers"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "max_covers must be a positive integer")
			return
		}

		check, err := svc.CheckSlot(r.Context(), restaurantID, at.UTC(), partySize, opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := slotCheckResponse{Available: check.Available, Reason: check.Reason}
		if check.Slot != nil {
			p := toSlotPayload(*check.Slot)
			resp.Slot = &p
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseComputeOptions(maxCovers string) (app.ComputeOptions, error) {
	if maxCovers == "" {
		return app.ComputeOptions{}, nil
	}
	n, err := strconv.Atoi(maxCovers)
	if err != nil || n <= 0 {
		return app.ComputeOptions{}, errInvalidMaxCovers
	}
	return app.ComputeOptions{MaxCoversPer15Min: n}, nil
}

type availabilityResponse struct {
	Date  string        `json:"date"`
	Slots []slotPayload `json:"slots"`
}

type slotCheckResponse struct {
	Available bool         `json:"available"`
	Slot      *slotPayload `json:"slot,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

type slotPayload struct {
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	AvailableCovers int       `json:"available_covers"`
	LoadPercentage  float64   `json:"load_percentage"`
	Tier            string    `json:"tier"`
	Confidence      string    `json:"confidence"`
	MinutesUntil    int       `json:"minutes_until"`
}

func toSlotPayload(s domain.Slot) slotPayload {
	return slotPayload{
		StartAt:         s.StartAt,
		EndAt:           s.EndAt,
		AvailableCovers: s.AvailableCovers,
		LoadPercentage:  s.LoadPercentage,
		Tier:            string(s.Tier),
		Confidence:      string(s.Confidence),
		MinutesUntil:    s.MinutesUntil,
	}
}

func toSlotPayloads(slots []domain.Slot) []slotPayload {
	out := make([]slotPayload, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotPayload(s))
	}
	return out
}
