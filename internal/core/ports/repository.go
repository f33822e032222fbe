package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Service, error)
	Update(ctx context.Context, svc *domain.Service) error
}

type BookingRepository interface {
	// CreateBooking inserts the payment record (when present) and the booking in one
	// transaction. A slot already held by another booking yields domain.ErrSlotNoLongerAvailable.
	CreateBooking(ctx context.Context, booking *domain.Booking, payment *domain.Payment) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	// ListActiveByServiceBetween returns non-cancelled bookings with from <= appointed_at < to.
	ListActiveByServiceBetween(ctx context.Context, serviceID uuid.UUID, from, to time.Time) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) error
	GetStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
	GetElapsedBooked(ctx context.Context, appointedBefore time.Time, limit int) ([]uuid.UUID, error)
}

type PaymentRepository interface {
	GetByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus) error
}

type DisputeRepository interface {
	// Open inserts the dispute and moves its booking from bookingFrom to disputed atomically.
	Open(ctx context.Context, dispute *domain.Dispute, bookingFrom domain.BookingStatus) error
	GetByID(ctx context.Context, disputeID uuid.UUID) (*domain.Dispute, error)
	Save(ctx context.Context, dispute *domain.Dispute) error
	// Resolve stores the terminal dispute and moves its booking from disputed to outcome atomically.
	Resolve(ctx context.Context, dispute *domain.Dispute, outcome domain.BookingStatus) error
}
