package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentPending   PaymentStatus = "pending"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ServiceID   uuid.UUID
	Amount      int64
	Currency    string
	Status      PaymentStatus
	ProviderRef string
	CreatedAt   time.Time
}

// Confirmed reports whether the gateway has settled the charge.
func (p *Payment) Confirmed() bool {
	return p.Status == PaymentSucceeded
}
