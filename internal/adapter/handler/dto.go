package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

const dateLayout = "2006-01-02"

type serviceResponse struct {
	ID          uuid.UUID `json:"id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	Capacity    int       `json:"capacity"`
	OpensAt     string    `json:"opens_at"`
	ClosesAt    string    `json:"closes_at"`
	ActiveDays  []string  `json:"active_days"`
	Active      bool      `json:"active"`
}

func toServiceResponse(s *domain.Service) serviceResponse {
	return serviceResponse{
		ID:          s.ID,
		ProviderID:  s.ProviderID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		Currency:    s.Currency,
		Capacity:    s.Capacity,
		OpensAt:     s.OpensAt.String(),
		ClosesAt:    s.ClosesAt.String(),
		ActiveDays:  s.ActiveDays.Names(),
		Active:      s.Active,
	}
}

type dateResponse struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

type slotResponse struct {
	Time  string `json:"time"`
	Label string `json:"label"`
}

type bookingResponse struct {
	ID          uuid.UUID  `json:"id"`
	ServiceID   uuid.UUID  `json:"service_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	AppointedAt time.Time  `json:"appointed_at"`
	Status      string     `json:"status"`
	Price       int64      `json:"price"`
	Currency    string     `json:"currency"`
	PaymentID   *uuid.UUID `json:"payment_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// toBookingResponse renders the appointment in the marketplace time zone.
func toBookingResponse(b *domain.Booking, loc *time.Location) bookingResponse {
	local := b.AppointedAt.In(loc)
	return bookingResponse{
		ID:          b.ID,
		ServiceID:   b.ServiceID,
		UserID:      b.UserID,
		Date:        local.Format(dateLayout),
		Time:        domain.TimeOfDayOf(b.AppointedAt, loc).String(),
		AppointedAt: local,
		Status:      string(b.Status),
		Price:       b.Price,
		Currency:    b.Currency,
		PaymentID:   b.PaymentID,
		CreatedAt:   b.CreatedAt,
	}
}

type disputeResponse struct {
	ID            uuid.UUID  `json:"id"`
	BookingID     uuid.UUID  `json:"booking_id"`
	FilerID       uuid.UUID  `json:"filer_id"`
	Reason        string     `json:"reason"`
	ProviderReply string     `json:"provider_reply,omitempty"`
	Resolution    string     `json:"resolution,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func toDisputeResponse(d *domain.Dispute) disputeResponse {
	return disputeResponse{
		ID:            d.ID,
		BookingID:     d.BookingID,
		FilerID:       d.FilerID,
		Reason:        d.Reason,
		ProviderReply: d.ProviderReply,
		Resolution:    d.Resolution,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
		ResolvedAt:    d.ResolvedAt,
	}
}
