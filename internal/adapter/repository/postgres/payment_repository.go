package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	query := `
	SELECT id, user_id, service_id, amount, currency, status, provider_ref, created_at
	FROM payments
	WHERE id = $1
	`

	var payment domain.Payment
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.ServiceID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ProviderRef,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment %s", domain.ErrNotFound, paymentID)
		}
		return nil, err
	}

	return &payment, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE payments SET status = $1 WHERE id = $2`, status, paymentID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: payment %s", domain.ErrNotFound, paymentID)
	}

	return nil
}
