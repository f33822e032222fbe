package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/platform/httpx"
)

type errorResponse struct {
	Error     string `json:"error,omitempty"`
	SupportID string `json:"support_id,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func principal(w http.ResponseWriter, r *http.Request) (httpx.Principal, bool) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization required"})
	}
	return p, ok
}

// writeError maps domain errors to status codes. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		logger.Error("booking persistence failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"support_id", perr.PaymentRef,
			"err", perr.Err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "your payment went through but the booking could not be saved; contact support",
			SupportID: perr.PaymentRef,
		})
		return
	}

	var rerr *domain.RefundError
	if errors.As(err, &rerr) {
		logger.Error("payment not returned",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"support_id", rerr.PaymentRef,
			"err", rerr.Err,
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:     "your booking was cancelled but the payment could not be returned yet; contact support",
			SupportID: rerr.PaymentRef,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrPaymentCancelled):
		writeJSON(w, http.StatusConflict, errorResponse{Cancelled: true})
	case errors.Is(err, domain.ErrCommitTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "booking timed out, please try again", Retryable: true})
	case errors.Is(err, domain.ErrCommitInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Retryable: true})
	case errors.Is(err, domain.ErrSlotNoLongerAvailable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "this slot is no longer available, please pick another"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPaymentRequired), errors.Is(err, domain.ErrPaymentFailed):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConfiguration):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
