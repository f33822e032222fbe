package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/services"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	svc    *services.BookingService
	loc    *time.Location
	logger *slog.Logger
}

func NewBookingHandler(svc *services.BookingService, loc *time.Location, logger *slog.Logger) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{svc: svc, loc: loc, logger: logger}
}

// CheckSlot answers whether the selection would pass the commit preconditions right now.
func (h *BookingHandler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	var req services.CommitBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.CheckSlot(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": true})
}

// CreateBooking commits the selection. A booking still waiting on payment
// settlement is answered with 202.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req services.CommitBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyHeader))

	booking, err := h.svc.CommitBooking(r.Context(), p.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := http.StatusCreated
	if booking.Status == domain.BookingPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, toBookingResponse(booking, h.loc))
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	list, err := h.svc.ListBookings(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := make([]bookingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toBookingResponse(&list[i], h.loc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": resp})
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.svc.CancelBooking(r.Context(), p.UserID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking, h.loc))
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.svc.CompleteBooking(r.Context(), p.UserID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking, h.loc))
}
