package vehicles

import (
	"context"
	"errors"
	"strings"

	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RepositoryInterface is the persistence the vehicle directory needs
type RepositoryInterface interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Vehicle, int64, error)
}

// Service handles vehicle directory business logic
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new vehicles service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Register lists a new vehicle
func (s *Service) Register(ctx context.Context, req *CreateVehicleRequest) (*Vehicle, error) {
	v := &Vehicle{
		OwnerID:         req.OwnerID,
		RegistrationNo:  strings.ToUpper(strings.TrimSpace(req.RegistrationNo)),
		Category:        req.Category,
		VehicleType:     strings.TrimSpace(req.VehicleType),
		VehicleModel:    strings.TrimSpace(req.VehicleModel),
		SeatingCapacity: req.SeatingCapacity,
	}
	if v.VehicleType == "" || v.VehicleModel == "" {
		return nil, common.NewBadRequestError("vehicle_type and vehicle_model are required", nil)
	}

	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			return nil, common.NewConflictError("vehicle already registered", err)
		}
		logger.WithContext(ctx).Error("failed to register vehicle", zap.Error(err))
		return nil, common.NewInternalServerError("failed to register vehicle")
	}
	return v, nil
}

// Get returns a vehicle by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, common.NewNotFoundError("vehicle not found", err)
		}
		return nil, common.NewInternalServerError("failed to get vehicle")
	}
	return v, nil
}

// List returns vehicles with pagination
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Vehicle, int64, error) {
	vehicles, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalServerError("failed to list vehicles")
	}
	return vehicles, total, nil
}
