package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration         = errors.New("service configuration invalid")
	ErrNoAvailability        = errors.New("no availability")
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")
	ErrPaymentRequired       = errors.New("payment required")
	ErrPaymentFailed         = errors.New("payment failed")
	ErrPaymentCancelled      = errors.New("payment cancelled")
	ErrValidation            = errors.New("invalid request")
	ErrNotFound              = errors.New("not found")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrForbidden             = errors.New("forbidden")
	ErrCommitTimeout         = errors.New("booking commit timed out")
	ErrCommitInProgress      = errors.New("booking commit already in progress")
	ErrPaymentSettled        = errors.New("payment already settled")
)

// PersistenceError reports a booking write that failed after the customer was charged
// and the charge could not be reversed. PaymentRef is the id support needs to reconcile it.
type PersistenceError struct {
	PaymentRef string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("booking could not be saved (support id %s): %v", e.PaymentRef, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// RefundError reports a cancelled booking whose payment could not be refunded or voided.
// The booking stays cancelled; PaymentRef is the id support needs to return the money.
type RefundError struct {
	PaymentRef string
	Err        error
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("payment could not be returned (support id %s): %v", e.PaymentRef, e.Err)
}

func (e *RefundError) Unwrap() error {
	return e.Err
}
