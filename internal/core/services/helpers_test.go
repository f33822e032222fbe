package services_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// 2026-10-13 is a Tuesday.
var testNow = time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC)

var wednesday = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tod(h, m int) domain.TimeOfDay {
	return domain.MustTimeOfDay(h, m)
}

func yogaService(price int64) *domain.Service {
	return &domain.Service{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		Name:       "Vinyasa flow",
		Price:      price,
		Currency:   "usd",
		Capacity:   1,
		OpensAt:    tod(9, 0),
		ClosesAt:   tod(12, 0),
		ActiveDays: domain.NewWeekdaySet(time.Monday, time.Wednesday, time.Friday),
		Active:     true,
	}
}
