package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
)

type CreateServiceRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Capacity    int      `json:"capacity"`
	OpensAt     string   `json:"opens_at"`
	ClosesAt    string   `json:"closes_at"`
	ActiveDays  []string `json:"active_days"`
}

type UpdateScheduleRequest struct {
	OpensAt    string   `json:"opens_at"`
	ClosesAt   string   `json:"closes_at"`
	ActiveDays []string `json:"active_days"`
}

type CatalogService struct {
	repo            ports.ServiceRepository
	clock           ports.Clock
	logger          *slog.Logger
	defaultCurrency string
}

func NewCatalogService(repo ports.ServiceRepository, clock ports.Clock, logger *slog.Logger, defaultCurrency string) *CatalogService {
	return &CatalogService{
		repo:            repo,
		clock:           clock,
		logger:          logger,
		defaultCurrency: strings.ToLower(defaultCurrency),
	}
}

func (s *CatalogService) CreateService(ctx context.Context, providerID uuid.UUID, req CreateServiceRequest) (*domain.Service, error) {
	if providerID == uuid.Nil {
		return nil, fmt.Errorf("%w: provider id is required", domain.ErrValidation)
	}

	opensAt, closesAt, days, err := parseSchedule(req.OpensAt, req.ClosesAt, req.ActiveDays)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	now := s.clock.Now()
	svc := &domain.Service{
		ID:          uuid.New(),
		ProviderID:  providerID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Currency:    currency,
		Capacity:    req.Capacity,
		OpensAt:     opensAt,
		ClosesAt:    closesAt,
		ActiveDays:  days,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := svc.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.logger.Info("service created", "service_id", svc.ID, "provider_id", providerID)
	return svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error) {
	return s.repo.GetByID(ctx, serviceID)
}

func (s *CatalogService) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *CatalogService) UpdateSchedule(ctx context.Context, providerID, serviceID uuid.UUID, req UpdateScheduleRequest) (*domain.Service, error) {
	svc, err := s.ownedService(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	opensAt, closesAt, days, err := parseSchedule(req.OpensAt, req.ClosesAt, req.ActiveDays)
	if err != nil {
		return nil, err
	}

	svc.OpensAt = opensAt
	svc.ClosesAt = closesAt
	svc.ActiveDays = days
	svc.UpdatedAt = s.clock.Now()

	if err := svc.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to update service schedule: %w", err)
	}

	return svc, nil
}

// SetActive toggles the soft-disable flag. Services are never hard-deleted.
func (s *CatalogService) SetActive(ctx context.Context, providerID, serviceID uuid.UUID, active bool) (*domain.Service, error) {
	svc, err := s.ownedService(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.Active == active {
		return svc, nil
	}

	svc.Active = active
	svc.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	s.logger.Info("service availability toggled", "service_id", svc.ID, "active", active)
	return svc, nil
}

func (s *CatalogService) ownedService(ctx context.Context, providerID, serviceID uuid.UUID) (*domain.Service, error) {
	svc, err := s.repo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.ProviderID != providerID {
		return nil, fmt.Errorf("%w: service %s belongs to another provider", domain.ErrForbidden, serviceID)
	}

	return svc, nil
}

func parseSchedule(opens, closes string, days []string) (domain.TimeOfDay, domain.TimeOfDay, domain.WeekdaySet, error) {
	opensAt, err := domain.ParseTimeOfDay(opens)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: opening time: %v", domain.ErrConfiguration, err)
	}

	closesAt, err := domain.ParseTimeOfDay(closes)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: closing time: %v", domain.ErrConfiguration, err)
	}

	set, err := domain.ParseWeekdays(days)
	if err != nil {
		return 0, 0, 0, err
	}

	return opensAt, closesAt, set, nil
}
