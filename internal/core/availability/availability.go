package availability

import (
	"fmt"
	"time"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

// Policy holds the booking rules applied to every service.
type Policy struct {
	HorizonDays  int
	SlotDuration time.Duration
	Location     *time.Location
}

func DefaultPolicy() Policy {
	return Policy{HorizonDays: 7, SlotDuration: time.Hour, Location: time.UTC}
}

func (p Policy) Validate() error {
	if p.HorizonDays <= 0 {
		return fmt.Errorf("horizon must be positive, got %d days", p.HorizonDays)
	}
	if p.SlotDuration < time.Minute || p.SlotDuration%time.Minute != 0 {
		return fmt.Errorf("slot duration must be a whole number of minutes, got %s", p.SlotDuration)
	}
	if p.Location == nil {
		return fmt.Errorf("location is required")
	}
	return nil
}

// DateOf truncates t to midnight of its calendar day in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ResolveAvailableDates lists the dates in (today, today+horizonDays] that fall on
// one of the service's active weekdays. Same-day booking is never offered.
func ResolveAvailableDates(svc domain.Service, horizonDays int, today time.Time) []time.Time {
	if svc.ActiveDays.Empty() || horizonDays <= 0 {
		return nil
	}

	start := DateOf(today, today.Location())
	var dates []time.Time
	for i := 1; i <= horizonDays; i++ {
		d := start.AddDate(0, 0, i)
		if svc.ActiveDays.Contains(d.Weekday()) {
			dates = append(dates, d)
		}
	}
	return dates
}

// GenerateSlots emits start times from the opening time in steps of slot while the
// start is strictly before closing. A window shorter than one slot yields nothing.
func GenerateSlots(svc domain.Service, slot time.Duration) []domain.TimeOfDay {
	if slot < time.Minute {
		return nil
	}
	if svc.ClosesAt.Sub(svc.OpensAt) < slot {
		return nil
	}

	var slots []domain.TimeOfDay
	for t := svc.OpensAt; t < svc.ClosesAt; t = t.Add(slot) {
		slots = append(slots, t)
	}
	return slots
}

// FilterAvailable returns candidates minus booked, keeping candidate order.
func FilterAvailable(candidates, booked []domain.TimeOfDay) []domain.TimeOfDay {
	taken := make(map[domain.TimeOfDay]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	out := make([]domain.TimeOfDay, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// BookedTimes extracts the start times held by slot-holding bookings on day.
func BookedTimes(bookings []domain.Booking, day time.Time) []domain.TimeOfDay {
	loc := day.Location()
	day = DateOf(day, loc)

	var times []domain.TimeOfDay
	for _, b := range bookings {
		if !b.Status.HoldsSlot() {
			continue
		}
		if !DateOf(b.AppointedAt, loc).Equal(day) {
			continue
		}
		times = append(times, domain.TimeOfDayOf(b.AppointedAt, loc))
	}
	return times
}

func ContainsDate(dates []time.Time, d time.Time) bool {
	for _, x := range dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

func ContainsTime(times []domain.TimeOfDay, t domain.TimeOfDay) bool {
	for _, x := range times {
		if x == t {
			return true
		}
	}
	return false
}
