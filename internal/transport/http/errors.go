package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coverbook/coverbook/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeValidation           = "validation_failed"
	codePhoneNotVerified     = "phone_not_verified"
	codeDuplicateReservation = "duplicate_reservation"
	codeReservationNotFound  = "reservation_not_found"
	codeRestaurantNotFound   = "restaurant_not_found"
	codeInvalidTransition    = "invalid_status_transition"
	codeInvalidID            = "invalid_id"
	codeVerificationFailed   = "verification_failed"
	codeInvalidDate          = "invalid_date"
	codeInvalidTime          = "invalid_time"
	codeInvalidPartySize     = "invalid_party_size"
	codeInternalError        = "internal_error"
)

var errInvalidMaxCovers = errors.New("max_covers must be a positive integer")

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain sentinels to HTTP responses. Services wrap
// sentinels with detail, so matching goes through errors.Is.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPhoneNotVerified):
		writeError(w, http.StatusBadRequest, codePhoneNotVerified, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrDuplicateReservation):
		writeError(w, http.StatusConflict, codeDuplicateReservation, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrRestaurantNotFound):
		writeError(w, http.StatusNotFound, codeRestaurantNotFound, err.Error())
	case errors.Is(err, domain.ErrVerificationFailed):
		writeError(w, http.StatusUnprocessableEntity, codeVerificationFailed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
