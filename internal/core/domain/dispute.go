package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DisputeStatus string

const (
	DisputeOpen            DisputeStatus = "open"
	DisputeProviderReplied DisputeStatus = "provider_replied"
	DisputeResolvedRefund  DisputeStatus = "resolved_refund"
	DisputeResolvedPayout  DisputeStatus = "resolved_payout"
	DisputeClosed          DisputeStatus = "closed"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeOpen:            {DisputeProviderReplied, DisputeResolvedRefund, DisputeResolvedPayout, DisputeClosed},
	DisputeProviderReplied: {DisputeResolvedRefund, DisputeResolvedPayout, DisputeClosed},
}

func (s DisputeStatus) Terminal() bool {
	return s == DisputeResolvedRefund || s == DisputeResolvedPayout || s == DisputeClosed
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	for _, allowed := range disputeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BookingOutcome is the status the disputed booking takes once the dispute ends.
func (s DisputeStatus) BookingOutcome() (BookingStatus, bool) {
	switch s {
	case DisputeResolvedRefund:
		return BookingCancelled, true
	case DisputeResolvedPayout, DisputeClosed:
		return BookingCompleted, true
	}
	return "", false
}

type Dispute struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	FilerID       uuid.UUID
	Reason        string
	ProviderReply string
	Resolution    string
	Status        DisputeStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

func (d *Dispute) TransitionTo(next DisputeStatus) error {
	if !d.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: dispute %s cannot move from %s to %s", ErrInvalidTransition, d.ID, d.Status, next)
	}
	d.Status = next
	return nil
}
