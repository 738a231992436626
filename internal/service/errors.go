package service

import (
	"errors"

	"event-tickets/internal/client"
)

var (
	// ErrValidation wraps every input error that is rejected before any
	// storage access.
	ErrValidation = errors.New("validation failed")

	ErrMissingCode        = errors.New("missing ticket code")
	ErrInvalidRedeemCount = errors.New("redeem count must be at least 1")

	ErrCodeExhaustion       = errors.New("could not allocate a unique ticket code")
	ErrTicketCreationFailed = errors.New("ticket creation failed")

	ErrInvalidSignature = client.ErrInvalidSignature
)

// Reasons reported with negative outcomes. They are part of the HTTP
// response body, not errors.
const (
	ReasonNotFound             = "NOT_FOUND"
	ReasonNotPaid              = "NOT_PAID"
	ReasonAlreadyFullyRedeemed = "ALREADY_FULLY_REDEEMED"
	ReasonNoEmail              = "NO_EMAIL"
	ReasonEmailFailed          = "EMAIL_FAILED"
)

var reasonMessages = map[string]string{
	ReasonNotFound:             "Ticket not found",
	ReasonNotPaid:              "Ticket not paid",
	ReasonAlreadyFullyRedeemed: "Ticket already fully redeemed",
	ReasonNoEmail:              "No email address on purchase",
	ReasonEmailFailed:          "Email could not be sent",
}

func reasonMessage(reason string) string {
	return reasonMessages[reason]
}
