package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterDeps carries the services the router wires handlers to.
type RouterDeps struct {
	Ledger       ReservationLedger
	Availability AvailabilityComputer
	Restaurants  RestaurantConfigurator
	Verifier     PhoneVerifier
}

// NewRouter assembles all routes. Method matching is strict; anything else
// falls through to the JSON not-found handler.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	r.Handle("/restaurants/{id}/reservations", HandleCreateReservation(deps.Ledger)).Methods(http.MethodPost)
	r.Handle("/restaurants/{id}/reservations", HandleListReservations(deps.Ledger)).Methods(http.MethodGet)
	r.Handle("/restaurants/{id}/reservations/{rid}", HandleGetReservation(deps.Ledger)).Methods(http.MethodGet)
	r.Handle("/restaurants/{id}/reservations/{rid}/status", HandleUpdateReservationStatus(deps.Ledger)).Methods(http.MethodPost)
	r.Handle("/restaurants/{id}/reservations/{rid}/cancel", HandleCancelReservation(deps.Ledger)).Methods(http.MethodPost)
	r.Handle("/restaurants/{id}/reservations/{rid}/metadata", HandleMergeReservationMetadata(deps.Ledger)).Methods(http.MethodPatch)

	r.Handle("/restaurants/{id}/availability", HandleAvailability(deps.Availability)).Methods(http.MethodGet)
	r.Handle("/restaurants/{id}/availability/range", HandleAvailabilityRange(deps.Availability)).Methods(http.MethodGet)
	r.Handle("/restaurants/{id}/availability/check", HandleCheckSlot(deps.Availability)).Methods(http.MethodGet)

	r.Handle("/admin/restaurants", HandleCreateRestaurant(deps.Restaurants)).Methods(http.MethodPost)
	r.Handle("/admin/restaurants/{id}", HandleGetRestaurant(deps.Restaurants)).Methods(http.MethodGet)
	r.Handle("/admin/restaurants/{id}/hours", HandleSetServiceHours(deps.Restaurants)).Methods(http.MethodPut)

	r.Handle("/verify/start", HandleStartVerification(deps.Verifier)).Methods(http.MethodPost)
	r.Handle("/verify/check", HandleCheckVerification(deps.Verifier)).Methods(http.MethodPost)

	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	return r
}
