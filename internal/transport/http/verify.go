package http

import (
	"context"
	"encoding/json"
	"net/http"
)

// PhoneVerifier starts and confirms phone verification flows.
type PhoneVerifier interface {
	Start(ctx context.Context, phone string) error
	Confirm(ctx context.Context, phone, code string) error
}

// HandleStartVerification sends a one-time code to a phone number.
func HandleStartVerification(svc PhoneVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startVerificationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.Start(r.Context(), req.Phone); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// HandleCheckVerification confirms a one-time code and marks the phone
// verified.
func HandleCheckVerification(svc PhoneVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkVerificationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.Confirm(r.Context(), req.Phone, req.Code); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type startVerificationRequest struct {
	Phone string `json:"phone"`
}

type checkVerificationRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}
