package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingBooked    BookingStatus = "booked"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingDisputed  BookingStatus = "disputed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingBooked, BookingCancelled},
	BookingBooked:    {BookingCompleted, BookingCancelled, BookingDisputed},
	BookingCompleted: {BookingDisputed},
	BookingDisputed:  {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingBooked, BookingCompleted, BookingCancelled, BookingDisputed:
		return true
	}
	return false
}

// HoldsSlot reports whether a booking in this status occupies its time slot.
func (s BookingStatus) HoldsSlot() bool {
	return s.Valid() && s != BookingCancelled
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID          uuid.UUID
	ServiceID   uuid.UUID
	UserID      uuid.UUID
	AppointedAt time.Time
	Status      BookingStatus
	Price       int64
	Currency    string
	PaymentID   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b *Booking) TransitionTo(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: booking %s cannot move from %s to %s", ErrInvalidTransition, b.ID, b.Status, next)
	}
	b.Status = next
	return nil
}

// EndsAt is the end of the booked slot given the slot length in force.
func (b *Booking) EndsAt(slot time.Duration) time.Time {
	return b.AppointedAt.Add(slot)
}
