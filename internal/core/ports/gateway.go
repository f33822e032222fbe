package ports

import (
	"context"
	"time"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

type ChargeRequest struct {
	Amount          int64
	Currency        string
	PaymentMethodID string
	CustomerRef     string
	IdempotencyKey  string
	Description     string
	Metadata        map[string]string
}

type ChargeResult struct {
	ProviderRef string
	Status      domain.PaymentStatus
}

// PaymentGateway charges and refunds through the external payment processor.
// Charge returns domain.ErrPaymentCancelled when the customer abandoned the payment
// and domain.ErrPaymentFailed for declines and processor errors.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, providerRef string, idempotencyKey string) error
	// Cancel voids an unsettled charge. It returns domain.ErrPaymentSettled when the
	// charge went through in the meantime; voiding an already voided charge succeeds.
	Cancel(ctx context.Context, providerRef string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
}

// IdempotencyStore remembers which booking a client-supplied commit key produced.
type IdempotencyStore interface {
	// Reserve claims key. It returns the booking id already recorded for key, if any,
	// and whether this caller now holds the reservation.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bookingID string, reserved bool, err error)
	Complete(ctx context.Context, key string, bookingID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
