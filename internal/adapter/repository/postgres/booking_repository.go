package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

const uniqueViolation = "23505"

type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, service_id, user_id, appointed_at, status, price, currency, payment_id, created_at, updated_at`

// CreateBooking writes the payment (if any) and the booking in one transaction. The
// partial unique index on (service_id, appointed_at) rejects a second live booking
// for the same slot.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking *domain.Booking, payment *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if payment != nil {
		queryPayment := `
		INSERT INTO payments (id, user_id, service_id, amount, currency, status, provider_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err = tx.ExecContext(ctx, queryPayment, payment.ID, payment.UserID, payment.ServiceID, payment.Amount, payment.Currency, payment.Status, payment.ProviderRef, payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}

	queryBooking := `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, queryBooking,
		booking.ID,
		booking.ServiceID,
		booking.UserID,
		booking.AppointedAt,
		booking.Status,
		booking.Price,
		booking.Currency,
		nullUUID(booking.PaymentID),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already booked", domain.ErrSlotNoLongerAvailable, booking.AppointedAt.Format(time.RFC3339))
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `
	SELECT ` + bookingColumns + `
	FROM bookings
	WHERE id = $1
	`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", domain.ErrNotFound, bookingID)
		}
		return nil, err
	}

	return booking, nil
}

func (r *BookingRepository) ListActiveByServiceBetween(ctx context.Context, serviceID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	query := `
	SELECT ` + bookingColumns + `
	FROM bookings
	WHERE service_id = $1 AND appointed_at >= $2 AND appointed_at < $3 AND status <> 'cancelled'
	ORDER BY appointed_at
	`

	return r.list(ctx, query, serviceID, from, to)
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	query := `
	SELECT ` + bookingColumns + `
	FROM bookings
	WHERE user_id = $1
	ORDER BY appointed_at DESC
	`

	return r.list(ctx, query, userID)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

// UpdateStatus moves a booking only if it is still in the from status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) error {
	return moveBooking(ctx, r.db, bookingID, from, to)
}

func (r *BookingRepository) GetStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `
	SELECT id FROM bookings
	WHERE status = 'pending' AND created_at < $1
	ORDER BY created_at
	LIMIT $2
	`

	return r.ids(ctx, query, createdBefore, limit)
}

func (r *BookingRepository) GetElapsedBooked(ctx context.Context, appointedBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `
	SELECT id FROM bookings
	WHERE status = 'booked' AND appointed_at <= $1
	ORDER BY appointed_at
	LIMIT $2
	`

	return r.ids(ctx, query, appointedBefore, limit)
}

func (r *BookingRepository) ids(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var paymentID uuid.NullUUID

	err := row.Scan(
		&booking.ID,
		&booking.ServiceID,
		&booking.UserID,
		&booking.AppointedAt,
		&booking.Status,
		&booking.Price,
		&booking.Currency,
		&paymentID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentID.Valid {
		id := paymentID.UUID
		booking.PaymentID = &id
	}

	return &booking, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
