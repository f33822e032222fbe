package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/availability"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
)

const dateLayout = "2006-01-02"

type AvailabilityService struct {
	services ports.ServiceRepository
	bookings ports.BookingRepository
	policy   availability.Policy
	clock    ports.Clock
}

func NewAvailabilityService(services ports.ServiceRepository, bookings ports.BookingRepository, policy availability.Policy, clock ports.Clock) *AvailabilityService {
	return &AvailabilityService{
		services: services,
		bookings: bookings,
		policy:   policy,
		clock:    clock,
	}
}

func (s *AvailabilityService) Policy() availability.Policy {
	return s.policy
}

func (s *AvailabilityService) today() time.Time {
	return availability.DateOf(s.clock.Now(), s.policy.Location)
}

// ParseDate reads a YYYY-MM-DD calendar date in the booking timezone.
func (s *AvailabilityService) ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.policy.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrValidation, raw)
	}
	return d, nil
}

func (s *AvailabilityService) AvailableDates(ctx context.Context, serviceID uuid.UUID) ([]time.Time, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	dates := s.resolveDates(svc)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: service %s has no bookable dates", domain.ErrNoAvailability, serviceID)
	}

	return dates, nil
}

func (s *AvailabilityService) AvailableSlots(ctx context.Context, serviceID uuid.UUID, date time.Time) ([]domain.TimeOfDay, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	date = availability.DateOf(date, s.policy.Location)
	if !availability.ContainsDate(s.resolveDates(svc), date) {
		return nil, fmt.Errorf("%w: %s is not a bookable date", domain.ErrValidation, date.Format(dateLayout))
	}

	free, err := s.freeSlots(ctx, svc, date)
	if err != nil {
		return nil, err
	}

	if len(free) == 0 {
		return nil, fmt.Errorf("%w: no slots left on %s", domain.ErrNoAvailability, date.Format(dateLayout))
	}

	return free, nil
}

// Verify re-runs the resolver, generator and conflict filter against a fresh read of
// bookings. It has no side effects, so repeating it without intervening writes gives
// the same answer.
func (s *AvailabilityService) Verify(ctx context.Context, svc *domain.Service, date time.Time, at domain.TimeOfDay) error {
	date = availability.DateOf(date, s.policy.Location)

	if !availability.ContainsDate(s.resolveDates(svc), date) {
		return fmt.Errorf("%w: %s is not a bookable date", domain.ErrValidation, date.Format(dateLayout))
	}

	if !availability.ContainsTime(availability.GenerateSlots(*svc, s.policy.SlotDuration), at) {
		return fmt.Errorf("%w: %s is not a slot of this service", domain.ErrValidation, at)
	}

	free, err := s.freeSlots(ctx, svc, date)
	if err != nil {
		return err
	}

	if !availability.ContainsTime(free, at) {
		return fmt.Errorf("%w: %s %s", domain.ErrSlotNoLongerAvailable, date.Format(dateLayout), at)
	}

	return nil
}

func (s *AvailabilityService) resolveDates(svc *domain.Service) []time.Time {
	if !svc.IsBookable() {
		return nil
	}
	return availability.ResolveAvailableDates(*svc, s.policy.HorizonDays, s.today())
}

func (s *AvailabilityService) freeSlots(ctx context.Context, svc *domain.Service, date time.Time) ([]domain.TimeOfDay, error) {
	booked, err := s.bookings.ListActiveByServiceBetween(ctx, svc.ID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	return availability.FilterAvailable(
		availability.GenerateSlots(*svc, s.policy.SlotDuration),
		availability.BookedTimes(booked, date),
	), nil
}
