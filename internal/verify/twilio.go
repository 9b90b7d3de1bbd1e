// Package verify holds the phone verification code senders.
package verify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	verifyv2 "github.com/twilio/twilio-go/rest/verify/v2"
)

// TwilioSender delivers one-time codes through the Twilio Verify service.
type TwilioSender struct {
	client     *twilio.RestClient
	serviceSid string
}

func NewTwilioSender(accountSid, authToken, serviceSid string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &TwilioSender{client: client, serviceSid: serviceSid}
}

func (s *TwilioSender) Start(_ context.Context, phone string) error {
	params := &verifyv2.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	_, err := s.client.VerifyV2.CreateVerification(s.serviceSid, params)
	if err != nil {
		return fmt.Errorf("start verification: %w", err)
	}
	return nil
}

func (s *TwilioSender) Check(_ context.Context, phone, code string) (bool, error) {
	params := &verifyv2.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	check, err := s.client.VerifyV2.CreateVerificationCheck(s.serviceSid, params)
	if err != nil {
		return false, fmt.Errorf("check verification: %w", err)
	}
	return check.Status != nil && *check.Status == "approved", nil
}

// StaticSender accepts a single fixed code. It stands in for Twilio in
// local development where no credentials are configured.
type StaticSender struct {
	Code string
}

func (s StaticSender) Start(context.Context, string) error {
	return nil
}

func (s StaticSender) Check(_ context.Context, _ string, code string) (bool, error) {
	return code == s.Code, nil
}
