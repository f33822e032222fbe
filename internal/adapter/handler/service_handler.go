package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/services"
)

// ServiceHandler serves the provider catalog and the customer-facing
// date and slot pickers.
type ServiceHandler struct {
	catalog      *services.CatalogService
	availability *services.AvailabilityService
	logger       *slog.Logger
}

func NewServiceHandler(catalog *services.CatalogService, availability *services.AvailabilityService, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{catalog: catalog, availability: availability, logger: logger}
}

func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	list, err := h.catalog.ListServices(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := make([]serviceResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toServiceResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": resp})
}

func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	svc, err := h.catalog.GetService(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req services.CreateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.catalog.CreateService(r.Context(), p.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

func (h *ServiceHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.catalog.UpdateSchedule(r.Context(), p.UserID, id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (h *ServiceHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "active is required"})
		return
	}

	svc, err := h.catalog.SetActive(r.Context(), p.UserID, id, *req.Active)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

// AvailableDates lists the bookable dates in the horizon. A service with none
// answers 200 with an empty list and a message for the picker.
func (h *ServiceHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	dates, err := h.availability.AvailableDates(r.Context(), id)
	if errors.Is(err, domain.ErrNoAvailability) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service_id": id,
			"dates":      []dateResponse{},
			"message":    "no available dates",
		})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := make([]dateResponse, 0, len(dates))
	for _, d := range dates {
		resp = append(resp, dateResponse{Date: d.Format(dateLayout), Label: d.Format("Mon, Jan 2")})
	}
	writeJSON(w, http.StatusOK, map[string]any{"service_id": id, "dates": resp})
}

func (h *ServiceHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	date, err := h.availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	slots, err := h.availability.AvailableSlots(r.Context(), id, date)
	if errors.Is(err, domain.ErrNoAvailability) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service_id": id,
			"date":       date.Format(dateLayout),
			"slots":      []slotResponse{},
			"message":    "no available times on this date",
		})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := make([]slotResponse, 0, len(slots))
	for _, t := range slots {
		resp = append(resp, slotResponse{Time: t.String(), Label: t.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service_id": id,
		"date":       date.Format(dateLayout),
		"slots":      resp,
	})
}
