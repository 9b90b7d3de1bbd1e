package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/coverbook/coverbook/internal/app"
	"github.com/coverbook/coverbook/internal/domain"
)

// ReservationLedger is the slice of the ledger the reservation endpoints
// need.
type ReservationLedger interface {
	Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	UpdateStatus(ctx context.Context, in app.UpdateStatusInput) error
	Cancel(ctx context.Context, restaurantID, reservationID string, source domain.SourceSystem, reason string) error
	MergeMetadata(ctx context.Context, restaurantID, reservationID string, patch map[string]any) error
	Get(ctx context.Context, restaurantID, reservationID string) (domain.Reservation, error)
	ListWindow(ctx context.Context, restaurantID string, from, to time.Time, status domain.ReservationStatus) ([]domain.Reservation, error)
}

// HandleCreateReservation returns the handler for booking creation, native
// or external.
func HandleCreateReservation(svc ReservationLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := mux.Vars(r)["id"]

		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		startAt, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "start_at must be RFC3339")
			return
		}

		res, err := svc.Create(r.Context(), app.CreateReservationInput{
			RestaurantID: restaurantID,
			StartAt:      startAt.UTC(),
			PartySize:    req.PartySize,
			Source: domain.Source{
				System:     domain.SourceSystem(req.Source.System),
				ExternalID: req.Source.ExternalID,
			},
			Guest: domain.Guest{
				DinerID: req.Guest.DinerID,
				Name:    req.Guest.Name,
				Phone:   req.Guest.Phone,
				Email:   req.Guest.Email,
			},
			Metadata: req.Metadata,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toReservationResponse(res))
	}
}

// HandleGetReservation returns a single reservation with its history.
func HandleGetReservation(svc ReservationLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		res, err := svc.Get(r.Context(), vars["id"], vars["rid"])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toReservationResponse(res))
	}
}

// HandleListReservations returns reservations in a time window, ascending,
// optionally filtered to one exact status.
func HandleListReservations(svc ReservationLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := mux.Vars(r)["id"]
		q := r.URL.Query()

		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "from must be RFC3339")
			return
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "to must be RFC3339")
			return
		}

		reservations, err := svc.ListWindow(r.Context(), restaurantID, from.UTC(), to.UTC(), domain.ReservationStatus(q.Get("status")))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]reservationResponse, 0, len(reservations))
		for _, res := range reservations {
			resp = append(resp, toReservationResponse(res))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleUpdateReservationStatus moves a reservation through the state
// machine.
func HandleUpdateReservationStatus(svc ReservationLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		var req updateStatusRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.UpdateStatus(r.Context(), app.UpdateStatusInput{
			RestaurantID:  vars["id"],
			ReservationID: vars["rid"],
			NewStatus:     domain.ReservationStatus(req.Status),
			Source:        domain.SourceSystem(req.Source),
			Metadata:      req.Metadata,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleCancelReservation cancels a reservation, recording the reason.
func HandleCancelReservation(svc ReservationLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		var req cancelRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.Cancel(r.Context(), vars["id"], vars["rid"], domain.SourceSystem(req.Source), req.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleMergeReservationMetadata merges keys into a reservation's metadata
// map without replacing it.
func HandleMergeReservationMetadata(svc ReservationLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		var patch map[string]any
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.MergeMetadata(r.Context(), vars["id"], vars["rid"], patch); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createReservationRequest struct {
	StartAt   string         `json:"start_at"`
	PartySize int            `json:"party_size"`
	Source    sourcePayload  `json:"source"`
	Guest     guestPayload   `json:"guest"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type sourcePayload struct {
	System     string `json:"system"`
	ExternalID string `json:"external_id,omitempty"`
}

type guestPayload struct {
	DinerID string `json:"diner_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type updateStatusRequest struct {
	Status   string         `json:"status"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type cancelRequest struct {
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

type reservationResponse struct {
	ID             string                 `json:"id"`
	RestaurantID   string                 `json:"restaurant_id"`
	StartAt        time.Time              `json:"start_at"`
	PartySize      int                    `json:"party_size"`
	Source         sourcePayload          `json:"source"`
	Guest          guestPayload           `json:"guest"`
	Status         string                 `json:"status"`
	StatusHistory  []statusChangePayload  `json:"status_history,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	Reconciliation *reconciliationPayload `json:"reconciliation,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type statusChangePayload struct {
	Status         string         `json:"status"`
	PreviousStatus string         `json:"previous_status,omitempty"`
	ChangedAt      time.Time      `json:"changed_at"`
	Source         string         `json:"source"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type reconciliationPayload struct {
	LastReconciledAt   *time.Time `json:"last_reconciled_at,omitempty"`
	Status             string     `json:"status,omitempty"`
	DivergenceDetected bool       `json:"divergence_detected"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	out := reservationResponse{
		ID:           res.ID,
		RestaurantID: res.RestaurantID,
		StartAt:      res.StartAt,
		PartySize:    res.PartySize,
		Source: sourcePayload{
			System:     string(res.Source.System),
			ExternalID: res.Source.ExternalID,
		},
		Guest: guestPayload{
			DinerID: res.Guest.DinerID,
			Name:    res.Guest.Name,
			Phone:   res.Guest.Phone,
			Email:   res.Guest.Email,
		},
		Status:    string(res.Status),
		Metadata:  res.Metadata,
		CreatedAt: res.CreatedAt,
		UpdatedAt: res.UpdatedAt,
	}
	for _, change := range res.StatusHistory {
		out.StatusHistory = append(out.StatusHistory, statusChangePayload{
			Status:         string(change.Status),
			PreviousStatus: string(change.PreviousStatus),
			ChangedAt:      change.ChangedAt,
			Source:         string(change.Source),
			Metadata:       change.Metadata,
		})
	}
	if res.Reconciliation.LastReconciledAt != nil || res.Reconciliation.Status != "" {
		out.Reconciliation = &reconciliationPayload{
			LastReconciledAt:   res.Reconciliation.LastReconciledAt,
			Status:             res.Reconciliation.Status,
			DivergenceDetected: res.Reconciliation.DivergenceDetected,
		}
	}
	return out
}
