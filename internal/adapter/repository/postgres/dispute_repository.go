package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

type DisputeRepository struct {
	db *sql.DB
}

func NewDisputeRepository(db *sql.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Open(ctx context.Context, dispute *domain.Dispute, bookingFrom domain.BookingStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := moveBooking(ctx, tx, dispute.BookingID, bookingFrom, domain.BookingDisputed); err != nil {
		return err
	}

	query := `
	INSERT INTO disputes (id, booking_id, filer_id, reason, provider_reply, resolution, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.ExecContext(ctx, query,
		dispute.ID,
		dispute.BookingID,
		dispute.FilerID,
		dispute.Reason,
		dispute.ProviderReply,
		dispute.Resolution,
		dispute.Status,
		dispute.CreatedAt,
		dispute.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: booking %s already has an open dispute", domain.ErrInvalidTransition, dispute.BookingID)
		}
		return fmt.Errorf("failed to insert dispute: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, disputeID uuid.UUID) (*domain.Dispute, error) {
	query := `
	SELECT id, booking_id, filer_id, reason, provider_reply, resolution, status, created_at, updated_at, resolved_at
	FROM disputes
	WHERE id = $1
	`

	var dispute domain.Dispute
	var resolvedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, disputeID).Scan(
		&dispute.ID,
		&dispute.BookingID,
		&dispute.FilerID,
		&dispute.Reason,
		&dispute.ProviderReply,
		&dispute.Resolution,
		&dispute.Status,
		&dispute.CreatedAt,
		&dispute.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: dispute %s", domain.ErrNotFound, disputeID)
		}
		return nil, err
	}

	if resolvedAt.Valid {
		dispute.ResolvedAt = &resolvedAt.Time
	}

	return &dispute, nil
}

func (r *DisputeRepository) Save(ctx context.Context, dispute *domain.Dispute) error {
	return saveDispute(ctx, r.db, dispute)
}

func (r *DisputeRepository) Resolve(ctx context.Context, dispute *domain.Dispute, outcome domain.BookingStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := saveDispute(ctx, tx, dispute); err != nil {
		return err
	}

	if err := moveBooking(ctx, tx, dispute.BookingID, domain.BookingDisputed, outcome); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveDispute(ctx context.Context, db execer, dispute *domain.Dispute) error {
	query := `
	UPDATE disputes
	SET provider_reply = $1,
		resolution = $2,
		status = $3,
		updated_at = $4,
		resolved_at = $5
	WHERE id = $6
	`

	var resolvedAt sql.NullTime
	if dispute.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *dispute.ResolvedAt, Valid: true}
	}

	result, err := db.ExecContext(ctx, query,
		dispute.ProviderReply,
		dispute.Resolution,
		dispute.Status,
		dispute.UpdatedAt,
		resolvedAt,
		dispute.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: dispute %s", domain.ErrNotFound, dispute.ID)
	}

	return nil
}

func moveBooking(ctx context.Context, db execer, bookingID uuid.UUID, from, to domain.BookingStatus) error {
	result, err := db.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, bookingID, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: booking %s is no longer %s", domain.ErrInvalidTransition, bookingID, from)
	}

	return nil
}
