package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
)

const (
	EventDisputeOpened   = "dispute.opened"
	EventDisputeResolved = "dispute.resolved"
)

type ResolveDisputeRequest struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
}

type DisputeService struct {
	disputes  ports.DisputeRepository
	bookings  ports.BookingRepository
	services  ports.ServiceRepository
	payments  ports.PaymentRepository
	gateway   ports.PaymentGateway
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger
}

func NewDisputeService(
	disputes ports.DisputeRepository,
	bookings ports.BookingRepository,
	services ports.ServiceRepository,
	payments ports.PaymentRepository,
	gateway ports.PaymentGateway,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *slog.Logger,
) *DisputeService {
	return &DisputeService{
		disputes:  disputes,
		bookings:  bookings,
		services:  services,
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func (s *DisputeService) OpenDispute(ctx context.Context, userID, bookingID uuid.UUID, reason string) (*domain.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, fmt.Errorf("%w: booking %s belongs to another user", domain.ErrForbidden, bookingID)
	}

	if !booking.Status.CanTransitionTo(domain.BookingDisputed) {
		return nil, fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidTransition, bookingID, booking.Status)
	}

	now := s.clock.Now()
	dispute := &domain.Dispute{
		ID:        uuid.New(),
		BookingID: booking.ID,
		FilerID:   userID,
		Reason:    reason,
		Status:    domain.DisputeOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.disputes.Open(ctx, dispute, booking.Status); err != nil {
		return nil, err
	}

	s.publish(ctx, EventDisputeOpened, dispute)
	s.logger.Info("dispute opened", "dispute_id", dispute.ID, "booking_id", booking.ID)
	return dispute, nil
}

func (s *DisputeService) Reply(ctx context.Context, providerID, disputeID uuid.UUID, reply string) (*domain.Dispute, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: reply is required", domain.ErrValidation)
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, dispute.BookingID)
	if err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, booking.ServiceID)
	if err != nil {
		return nil, err
	}

	if svc.ProviderID != providerID {
		return nil, fmt.Errorf("%w: dispute %s is for another provider's service", domain.ErrForbidden, disputeID)
	}

	if err := dispute.TransitionTo(domain.DisputeProviderReplied); err != nil {
		return nil, err
	}
	dispute.ProviderReply = reply
	dispute.UpdatedAt = s.clock.Now()

	if err := s.disputes.Save(ctx, dispute); err != nil {
		return nil, err
	}

	return dispute, nil
}

// Resolve ends a dispute. A refund resolution returns the customer's payment and
// cancels the booking; payout and close hand the booking back as completed.
func (s *DisputeService) Resolve(ctx context.Context, disputeID uuid.UUID, req ResolveDisputeRequest) (*domain.Dispute, error) {
	next := domain.DisputeStatus(strings.TrimSpace(req.Status))
	if !next.Terminal() {
		return nil, fmt.Errorf("%w: %q is not a resolution", domain.ErrValidation, req.Status)
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if err := dispute.TransitionTo(next); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, dispute.BookingID)
	if err != nil {
		return nil, err
	}

	if next == domain.DisputeResolvedRefund && booking.PaymentID != nil {
		if err := s.refund(ctx, *booking.PaymentID, dispute.ID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	dispute.Resolution = strings.TrimSpace(req.Resolution)
	dispute.UpdatedAt = now
	dispute.ResolvedAt = &now

	outcome, _ := next.BookingOutcome()
	if err := s.disputes.Resolve(ctx, dispute, outcome); err != nil {
		return nil, err
	}

	s.publish(ctx, EventDisputeResolved, dispute)
	s.logger.Info("dispute resolved", "dispute_id", dispute.ID, "status", dispute.Status)
	return dispute, nil
}

func (s *DisputeService) refund(ctx context.Context, paymentID, disputeID uuid.UUID) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if !payment.Confirmed() {
		return nil
	}

	if err := s.gateway.Refund(ctx, payment.ProviderRef, "dispute-"+disputeID.String()); err != nil {
		return fmt.Errorf("%w: refund failed: %v", domain.ErrPaymentFailed, err)
	}

	return s.payments.UpdateStatus(ctx, paymentID, domain.PaymentRefunded)
}

func (s *DisputeService) publish(ctx context.Context, eventType string, d *domain.Dispute) {
	payload := map[string]any{
		"dispute_id": d.ID.String(),
		"booking_id": d.BookingID.String(),
		"status":     string(d.Status),
	}
	if err := s.publisher.Publish(ctx, eventType, d.BookingID.String(), payload); err != nil {
		s.logger.Warn("failed to publish event", "event", eventType, "dispute_id", d.ID, "err", err)
	}
}
