package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateReservation = errors.New("duplicate reservation")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrRestaurantNotFound   = errors.New("restaurant not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidID            = errors.New("invalid id")
	ErrVerificationFailed   = errors.New("verification failed")
)

// ErrPhoneNotVerified is a validation failure: native bookings require a
// verified phone number. errors.Is(err, ErrValidation) holds for it.
var ErrPhoneNotVerified = fmt.Errorf("%w: phone not verified", ErrValidation)
