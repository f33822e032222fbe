package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WeekdaySet is a bitmask of time.Weekday values.
type WeekdaySet uint8

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// ParseWeekdays accepts short or long English day names in any case ("mon", "Monday").
func ParseWeekdays(names []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		d, ok := weekdayNames[key]
		if !ok && len(key) > 3 {
			d, ok = weekdayNames[key[:3]]
			ok = ok && key == strings.ToLower(d.String())
		}
		if !ok {
			return 0, fmt.Errorf("%w: unknown weekday %q", ErrConfiguration, n)
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s&0x7f == 0
}

func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// Names returns the lower-case short names in week order, the form stored in Postgres.
func (s WeekdaySet) Names() []string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, strings.ToLower(d.String()[:3]))
	}
	return names
}

type Service struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Name        string
	Description string
	Price       int64
	Currency    string
	Capacity    int
	OpensAt     TimeOfDay
	ClosesAt    TimeOfDay
	ActiveDays  WeekdaySet
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the schedule and pricing invariants a provider must satisfy
// before a service can be offered.
func (s *Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrConfiguration)
	}
	if !s.OpensAt.Valid() || !s.ClosesAt.Valid() {
		return fmt.Errorf("%w: opening hours out of range", ErrConfiguration)
	}
	if s.ClosesAt <= s.OpensAt {
		return fmt.Errorf("%w: closing time %s must be after opening time %s", ErrConfiguration, s.ClosesAt, s.OpensAt)
	}
	if s.ActiveDays.Empty() {
		return fmt.Errorf("%w: at least one active weekday is required", ErrConfiguration)
	}
	if s.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrConfiguration)
	}
	if s.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrConfiguration)
	}
	return nil
}

func (s *Service) IsBookable() bool {
	return s.Active && s.Validate() == nil
}

func (s *Service) IsFree() bool {
	return s.Price == 0
}
