package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"

	sweepBatchSize = 100
	refundTimeout  = 10 * time.Second
)

var tracer = otel.Tracer("github.com/srgjo27/wellness_booking/internal/core/services")

type CommitBookingRequest struct {
	ServiceID       string `json:"service_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PaymentMethodID string `json:"payment_method_id"`
	IdempotencyKey  string `json:"-"`
}

type BookingConfig struct {
	CommitTimeout  time.Duration
	PendingTTL     time.Duration
	IdempotencyTTL time.Duration
}

type BookingDeps struct {
	Services     ports.ServiceRepository
	Bookings     ports.BookingRepository
	Payments     ports.PaymentRepository
	Gateway      ports.PaymentGateway
	Publisher    ports.EventPublisher
	Idempotency  ports.IdempotencyStore
	Availability *AvailabilityService
	Clock        ports.Clock
	Logger       *slog.Logger
}

type BookingService struct {
	services     ports.ServiceRepository
	bookings     ports.BookingRepository
	payments     ports.PaymentRepository
	gateway      ports.PaymentGateway
	publisher    ports.EventPublisher
	idempotency  ports.IdempotencyStore
	availability *AvailabilityService
	clock        ports.Clock
	logger       *slog.Logger
	cfg          BookingConfig
}

func NewBookingService(deps BookingDeps, cfg BookingConfig) *BookingService {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 15 * time.Second
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}

	return &BookingService{
		services:     deps.Services,
		bookings:     deps.Bookings,
		payments:     deps.Payments,
		gateway:      deps.Gateway,
		publisher:    deps.Publisher,
		idempotency:  deps.Idempotency,
		availability: deps.Availability,
		clock:        deps.Clock,
		logger:       deps.Logger,
		cfg:          cfg,
	}
}

type slotRequest struct {
	service *domain.Service
	date    time.Time
	at      domain.TimeOfDay
}

func (s *BookingService) parseSlot(ctx context.Context, req CommitBookingRequest) (*slotRequest, error) {
	serviceID, err := uuid.Parse(strings.TrimSpace(req.ServiceID))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service id", domain.ErrValidation)
	}

	date, err := s.availability.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	at, err := domain.ParseTimeOfDay(req.Time)
	if err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if !svc.Active {
		return nil, fmt.Errorf("%w: service %s is not accepting bookings", domain.ErrValidation, svc.ID)
	}

	return &slotRequest{service: svc, date: date, at: at}, nil
}

// CheckSlot runs the commit preconditions without writing anything.
func (s *BookingService) CheckSlot(ctx context.Context, req CommitBookingRequest) error {
	slot, err := s.parseSlot(ctx, req)
	if err != nil {
		return err
	}
	return s.availability.Verify(ctx, slot.service, slot.date, slot.at)
}

// CommitBooking re-validates the requested slot, charges the customer when the service
// is paid, and persists payment and booking together. A charge whose booking cannot be
// written is refunded; if that refund fails too, a *domain.PersistenceError carrying the
// payment reference is returned.
func (s *BookingService) CommitBooking(ctx context.Context, userID uuid.UUID, req CommitBookingRequest) (booking *domain.Booking, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "BookingService.CommitBooking")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	slot, err := s.parseSlot(ctx, req)
	if err != nil {
		return nil, s.deadline(ctx, err)
	}
	span.SetAttributes(
		attribute.String("service.id", slot.service.ID.String()),
		attribute.String("booking.date", slot.date.Format(dateLayout)),
		attribute.String("booking.time", slot.at.String()),
	)

	idemKey := ""
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		idemKey = userID.String() + ":" + key
		existing, reserved, rerr := s.idempotency.Reserve(ctx, idemKey, s.cfg.IdempotencyTTL)
		if rerr != nil {
			return nil, fmt.Errorf("failed to reserve idempotency key: %w", rerr)
		}
		if existing != "" {
			return s.replay(ctx, existing, slot)
		}
		if !reserved {
			return nil, domain.ErrCommitInProgress
		}
		defer func() {
			if err != nil {
				if relErr := s.idempotency.Release(context.WithoutCancel(ctx), idemKey); relErr != nil {
					s.logger.Warn("failed to release idempotency key", "err", relErr)
				}
			}
		}()
	}

	if err := s.availability.Verify(ctx, slot.service, slot.date, slot.at); err != nil {
		return nil, s.deadline(ctx, err)
	}

	now := s.clock.Now()
	booking = &domain.Booking{
		ID:          uuid.New(),
		ServiceID:   slot.service.ID,
		UserID:      userID,
		AppointedAt: slot.at.On(slot.date),
		Status:      domain.BookingBooked,
		Price:       slot.service.Price,
		Currency:    slot.service.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var payment *domain.Payment
	if !slot.service.IsFree() {
		payment, err = s.charge(ctx, booking, req.PaymentMethodID)
		if err != nil {
			return nil, err
		}
		booking.PaymentID = &payment.ID
		if !payment.Confirmed() {
			booking.Status = domain.BookingPending
		}
	}

	if err := s.bookings.CreateBooking(ctx, booking, payment); err != nil {
		if payment != nil {
			return nil, s.compensate(ctx, booking, payment, err)
		}
		if errors.Is(err, domain.ErrSlotNoLongerAvailable) {
			return nil, err
		}
		return nil, s.deadline(ctx, fmt.Errorf("failed to create booking: %w", err))
	}

	if idemKey != "" {
		if err := s.idempotency.Complete(ctx, idemKey, booking.ID.String(), s.cfg.IdempotencyTTL); err != nil {
			s.logger.Warn("failed to record idempotency key", "booking_id", booking.ID, "err", err)
		}
	}

	s.publish(ctx, EventBookingCreated, booking)
	s.logger.Info("booking committed",
		"booking_id", booking.ID,
		"service_id", booking.ServiceID,
		"appointed_at", booking.AppointedAt,
		"status", booking.Status,
	)

	return booking, nil
}

func (s *BookingService) charge(ctx context.Context, booking *domain.Booking, paymentMethodID string) (*domain.Payment, error) {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return nil, fmt.Errorf("%w: service costs %d %s", domain.ErrPaymentRequired, booking.Price, booking.Currency)
	}

	res, err := s.gateway.Charge(ctx, ports.ChargeRequest{
		Amount:          booking.Price,
		Currency:        booking.Currency,
		PaymentMethodID: paymentMethodID,
		CustomerRef:     booking.UserID.String(),
		IdempotencyKey:  "booking-" + booking.ID.String(),
		Description:     "Booking " + booking.ID.String(),
		Metadata: map[string]string{
			"booking_id":   booking.ID.String(),
			"service_id":   booking.ServiceID.String(),
			"appointed_at": booking.AppointedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentCancelled) || errors.Is(err, domain.ErrPaymentFailed) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, s.deadline(ctx, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	return &domain.Payment{
		ID:          uuid.New(),
		UserID:      booking.UserID,
		ServiceID:   booking.ServiceID,
		Amount:      booking.Price,
		Currency:    booking.Currency,
		Status:      res.Status,
		ProviderRef: res.ProviderRef,
		CreatedAt:   s.clock.Now(),
	}, nil
}

// compensate refunds a charge whose booking write failed. The refund runs on a context
// detached from the commit deadline.
func (s *BookingService) compensate(ctx context.Context, booking *domain.Booking, payment *domain.Payment, cause error) error {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	if err := s.gateway.Refund(refundCtx, payment.ProviderRef, "refund-"+booking.ID.String()); err != nil {
		s.logger.Error("booking write failed and refund failed; manual reconciliation needed",
			"booking_id", booking.ID,
			"payment_ref", payment.ProviderRef,
			"write_err", cause,
			"refund_err", err,
		)
		return &domain.PersistenceError{PaymentRef: payment.ProviderRef, Err: cause}
	}

	s.logger.Warn("booking write failed; payment refunded", "booking_id", booking.ID, "payment_ref", payment.ProviderRef, "err", cause)

	if errors.Is(cause, domain.ErrSlotNoLongerAvailable) {
		return cause
	}
	return s.deadline(ctx, fmt.Errorf("failed to create booking: %w", cause))
}

// replay returns the booking a key already produced. A key reused for another
// selection is rejected rather than answered with the first booking.
func (s *BookingService) replay(ctx context.Context, bookingID string, slot *slotRequest) (*domain.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %q: %w", bookingID, err)
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.ServiceID != slot.service.ID || !booking.AppointedAt.Equal(slot.at.On(slot.date)) {
		return nil, fmt.Errorf("%w: idempotency key already used for booking %s", domain.ErrValidation, booking.ID)
	}
	return booking, nil
}

func (s *BookingService) deadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrCommitTimeout, err)
	}
	return err
}

// CancelBooking frees the slot and then returns the customer's money: a settled charge
// is refunded, an unsettled one is voided. If that fails the booking stays cancelled
// and a *domain.RefundError carrying the payment reference is returned.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, fmt.Errorf("%w: booking %s belongs to another user", domain.ErrForbidden, bookingID)
	}

	if !booking.AppointedAt.After(s.clock.Now()) {
		return nil, fmt.Errorf("%w: booking %s has already started", domain.ErrValidation, bookingID)
	}

	from := booking.Status
	if err := booking.TransitionTo(domain.BookingCancelled); err != nil {
		return nil, err
	}

	if err := s.bookings.UpdateStatus(ctx, booking.ID, from, booking.Status); err != nil {
		return nil, err
	}

	s.publish(ctx, EventBookingCancelled, booking)

	if booking.PaymentID != nil {
		if err := s.returnPayment(ctx, *booking.PaymentID, "cancel-"+booking.ID.String()); err != nil {
			s.logger.Error("booking cancelled but payment not returned", "booking_id", booking.ID, "err", err)
			return nil, err
		}
	}

	return booking, nil
}

// returnPayment voids an unsettled charge or refunds a settled one.
func (s *BookingService) returnPayment(ctx context.Context, paymentID uuid.UUID, idemKey string) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return &domain.RefundError{PaymentRef: paymentID.String(), Err: err}
	}

	switch payment.Status {
	case domain.PaymentPending:
		err := s.gateway.Cancel(ctx, payment.ProviderRef)
		if err == nil {
			s.markPayment(ctx, payment, domain.PaymentCancelled)
			return nil
		}
		if !errors.Is(err, domain.ErrPaymentSettled) {
			return &domain.RefundError{PaymentRef: payment.ProviderRef, Err: err}
		}
	case domain.PaymentSucceeded:
	default:
		return nil
	}

	if err := s.gateway.Refund(ctx, payment.ProviderRef, idemKey); err != nil {
		return &domain.RefundError{PaymentRef: payment.ProviderRef, Err: err}
	}
	s.markPayment(ctx, payment, domain.PaymentRefunded)
	return nil
}

func (s *BookingService) markPayment(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus) {
	if err := s.payments.UpdateStatus(ctx, payment.ID, status); err != nil {
		s.logger.Error("failed to record payment status", "payment_id", payment.ID, "status", status, "err", err)
		return
	}
	payment.Status = status
}

func (s *BookingService) CompleteBooking(ctx context.Context, providerID, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, booking.ServiceID)
	if err != nil {
		return nil, err
	}

	if svc.ProviderID != providerID {
		return nil, fmt.Errorf("%w: booking %s is for another provider's service", domain.ErrForbidden, bookingID)
	}

	from := booking.Status
	if err := booking.TransitionTo(domain.BookingCompleted); err != nil {
		return nil, err
	}

	if err := s.bookings.UpdateStatus(ctx, booking.ID, from, booking.Status); err != nil {
		return nil, err
	}

	s.publish(ctx, EventBookingCompleted, booking)
	return booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	payload := map[string]any{
		"booking_id":   b.ID.String(),
		"service_id":   b.ServiceID.String(),
		"user_id":      b.UserID.String(),
		"appointed_at": b.AppointedAt.Format(time.RFC3339),
		"status":       string(b.Status),
	}
	if err := s.publisher.Publish(ctx, eventType, b.ID.String(), payload); err != nil {
		s.logger.Warn("failed to publish event", "event", eventType, "booking_id", b.ID, "err", err)
	}
}

func (s *BookingService) RunBackgroundSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("booking sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("booking sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires pending bookings whose payment never settled and completes booked
// slots that have ended.
func (s *BookingService) Sweep(ctx context.Context) {
	now := s.clock.Now()

	stale, err := s.bookings.GetStalePending(ctx, now.Add(-s.cfg.PendingTTL), sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to fetch stale pending bookings", "err", err)
	} else {
		if len(stale) > 0 {
			s.logger.Info("expiring pending bookings", "count", len(stale))
		}
		for _, id := range stale {
			s.expirePending(ctx, id)
		}
	}

	elapsed, err := s.bookings.GetElapsedBooked(ctx, now.Add(-s.availability.Policy().SlotDuration), sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to fetch elapsed bookings", "err", err)
	} else {
		s.advance(ctx, elapsed, domain.BookingBooked, domain.BookingCompleted, EventBookingCompleted)
	}
}

// expirePending voids the charge of a stale pending booking before cancelling it. A
// charge that settled in the meantime confirms the booking instead. When the charge
// cannot be voided the booking is left pending for the next sweep.
func (s *BookingService) expirePending(ctx context.Context, id uuid.UUID) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load pending booking", "booking_id", id, "err", err)
		return
	}

	if booking.PaymentID != nil {
		payment, err := s.payments.GetByID(ctx, *booking.PaymentID)
		if err != nil {
			s.logger.Error("failed to load payment of pending booking", "booking_id", id, "err", err)
			return
		}

		settled := payment.Confirmed()
		if payment.Status == domain.PaymentPending {
			err := s.gateway.Cancel(ctx, payment.ProviderRef)
			switch {
			case errors.Is(err, domain.ErrPaymentSettled):
				s.markPayment(ctx, payment, domain.PaymentSucceeded)
				settled = true
			case err != nil:
				s.logger.Error("failed to void pending payment", "booking_id", id, "payment_ref", payment.ProviderRef, "err", err)
				return
			default:
				s.markPayment(ctx, payment, domain.PaymentCancelled)
			}
		}

		if settled {
			s.advance(ctx, []uuid.UUID{id}, domain.BookingPending, domain.BookingBooked, EventBookingConfirmed)
			return
		}
	}

	s.advance(ctx, []uuid.UUID{id}, domain.BookingPending, domain.BookingCancelled, EventBookingCancelled)
}

func (s *BookingService) advance(ctx context.Context, ids []uuid.UUID, from, to domain.BookingStatus, eventType string) {
	for _, id := range ids {
		if err := s.bookings.UpdateStatus(ctx, id, from, to); err != nil {
			s.logger.Error("failed to advance booking", "booking_id", id, "to", to, "err", err)
			continue
		}
		if err := s.publisher.Publish(ctx, eventType, id.String(), map[string]any{
			"booking_id": id.String(),
			"status":     string(to),
		}); err != nil {
			s.logger.Warn("failed to publish event", "event", eventType, "booking_id", id, "err", err)
		}
	}
}
