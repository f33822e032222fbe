package handler

import (
	"net/http"

	"github.com/srgjo27/wellness_booking/internal/platform/httpx"
)

type RouterConfig struct {
	JWTSecret string
	// CommitLimit guards booking commits. Nil disables rate limiting.
	CommitLimit httpx.Middleware
}

// NewRouter registers every route. All routes except /healthz require a bearer token.
func NewRouter(cfg RouterConfig, services *ServiceHandler, bookings *BookingHandler, disputes *DisputeHandler) http.Handler {
	providerOnly := httpx.RequireRole(httpx.RoleProvider, httpx.RoleAdmin)
	adminOnly := httpx.RequireRole(httpx.RoleAdmin)

	commitLimit := cfg.CommitLimit
	if commitLimit == nil {
		commitLimit = func(next http.Handler) http.Handler { return next }
	}

	api := http.NewServeMux()

	api.HandleFunc("GET /services", services.ListServices)
	api.HandleFunc("GET /services/{id}", services.GetService)
	api.HandleFunc("GET /services/{id}/dates", services.AvailableDates)
	api.HandleFunc("GET /services/{id}/slots", services.AvailableSlots)
	api.Handle("POST /services", providerOnly(http.HandlerFunc(services.CreateService)))
	api.Handle("PUT /services/{id}/schedule", providerOnly(http.HandlerFunc(services.UpdateSchedule)))
	api.Handle("PATCH /services/{id}/active", providerOnly(http.HandlerFunc(services.SetActive)))

	api.HandleFunc("POST /bookings/check", bookings.CheckSlot)
	api.Handle("POST /bookings", commitLimit(http.HandlerFunc(bookings.CreateBooking)))
	api.HandleFunc("GET /bookings", bookings.ListBookings)
	api.HandleFunc("POST /bookings/{id}/cancel", bookings.CancelBooking)
	api.Handle("POST /bookings/{id}/complete", providerOnly(http.HandlerFunc(bookings.CompleteBooking)))

	api.HandleFunc("POST /bookings/{id}/disputes", disputes.OpenDispute)
	api.Handle("POST /disputes/{id}/reply", providerOnly(http.HandlerFunc(disputes.Reply)))
	api.Handle("POST /disputes/{id}/resolve", adminOnly(http.HandlerFunc(disputes.Resolve)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/", httpx.RequireAuth(cfg.JWTSecret)(api))

	return mux
}
