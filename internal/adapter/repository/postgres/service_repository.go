package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
)

type ServiceRepository struct {
	db *sql.DB
}

func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

const serviceColumns = `id, provider_id, name, description, price, currency, capacity, opens_at, closes_at, active_days, active, created_at, updated_at`

func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	query := `
	INSERT INTO services (` + serviceColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.ProviderID,
		svc.Name,
		svc.Description,
		svc.Price,
		svc.Currency,
		svc.Capacity,
		int(svc.OpensAt),
		int(svc.ClosesAt),
		pq.Array(svc.ActiveDays.Names()),
		svc.Active,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert service: %w", err)
	}

	return nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error) {
	query := `
	SELECT ` + serviceColumns + `
	FROM services
	WHERE id = $1
	`

	svc, err := scanService(r.db.QueryRowContext(ctx, query, serviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: service %s", domain.ErrNotFound, serviceID)
		}
		return nil, err
	}

	return svc, nil
}

func (r *ServiceRepository) List(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	query := `
	SELECT ` + serviceColumns + `
	FROM services
	WHERE ($1 = FALSE OR active = TRUE)
	ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var list []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}

		list = append(list, *svc)
	}

	return list, rows.Err()
}

func (r *ServiceRepository) Update(ctx context.Context, svc *domain.Service) error {
	query := `
	UPDATE services
	SET name = $1,
		description = $2,
		price = $3,
		currency = $4,
		capacity = $5,
		opens_at = $6,
		closes_at = $7,
		active_days = $8,
		active = $9,
		updated_at = $10
	WHERE id = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		svc.Name,
		svc.Description,
		svc.Price,
		svc.Currency,
		svc.Capacity,
		int(svc.OpensAt),
		int(svc.ClosesAt),
		pq.Array(svc.ActiveDays.Names()),
		svc.Active,
		svc.UpdatedAt,
		svc.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: service %s", domain.ErrNotFound, svc.ID)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*domain.Service, error) {
	var svc domain.Service
	var opensAt, closesAt int
	var days []string

	err := row.Scan(
		&svc.ID,
		&svc.ProviderID,
		&svc.Name,
		&svc.Description,
		&svc.Price,
		&svc.Currency,
		&svc.Capacity,
		&opensAt,
		&closesAt,
		pq.Array(&days),
		&svc.Active,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	set, err := domain.ParseWeekdays(days)
	if err != nil {
		return nil, err
	}

	svc.OpensAt = domain.TimeOfDay(opensAt)
	svc.ClosesAt = domain.TimeOfDay(closesAt)
	svc.ActiveDays = set

	return &svc, nil
}
