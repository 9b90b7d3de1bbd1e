package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/coverbook/coverbook/internal/clock"
	"github.com/coverbook/coverbook/internal/domain"
)

// CodeSender delivers and checks one-time verification codes.
type CodeSender interface {
	Start(ctx context.Context, phone string) error
	Check(ctx context.Context, phone, code string) (bool, error)
}

// VerificationService gates native bookings: a phone number must pass a
// code check before the ledger accepts reservations carrying it.
type VerificationService struct {
	sender CodeSender
	phones PhoneRegistry
	clock  clock.Clock
}

func NewVerificationService(sender CodeSender, phones PhoneRegistry, clk clock.Clock) *VerificationService {
	return &VerificationService{
		sender: sender,
		phones: phones,
		clock:  clk,
	}
}

// Start sends a verification code to the phone. Numbers must be E.164.
func (s *VerificationService) Start(ctx context.Context, phone string) error {
	if err := validatePhone(phone); err != nil {
		return err
	}
	return s.sender.Start(ctx, phone)
}

// Confirm checks the code and, on approval, records the phone as verified.
func (s *VerificationService) Confirm(ctx context.Context, phone, code string) error {
	if err := validatePhone(phone); err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("%w: verification code is required", domain.ErrValidation)
	}
	approved, err := s.sender.Check(ctx, phone, code)
	if err != nil {
		return err
	}
	if !approved {
		return domain.ErrVerificationFailed
	}
	return s.phones.MarkVerified(ctx, phone, s.clock.Now())
}

func validatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: phone number is required", domain.ErrValidation)
	}
	if !strings.HasPrefix(phone, "+") {
		return fmt.Errorf("%w: phone number must be E.164 (start with +)", domain.ErrValidation)
	}
	return nil
}
