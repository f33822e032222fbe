package handler

import (
	"log/slog"
	"net/http"

	"github.com/srgjo27/wellness_booking/internal/core/services"
)

type DisputeHandler struct {
	svc    *services.DisputeService
	logger *slog.Logger
}

func NewDisputeHandler(svc *services.DisputeService, logger *slog.Logger) *DisputeHandler {
	return &DisputeHandler{svc: svc, logger: logger}
}

func (h *DisputeHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.svc.OpenDispute(r.Context(), p.UserID, bookingID, req.Reason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDisputeResponse(d))
}

func (h *DisputeHandler) Reply(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Reply string `json:"reply"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.svc.Reply(r.Context(), p.UserID, id, req.Reply)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeResponse(d))
}

func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.ResolveDisputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.svc.Resolve(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeResponse(d))
}
