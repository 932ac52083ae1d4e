package services

import (
	"context"
	"strings"

	"roadassist/internal/models"
	"roadassist/internal/repositories"
)

type VehicleService struct {
	Repo *repositories.VehicleRepository
}

func (s *VehicleService) CreateVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error) {
	vehicle.Plate = strings.ToUpper(strings.TrimSpace(vehicle.Plate))
	if vehicle.OwnerID == 0 || vehicle.Plate == "" {
		return models.Vehicle{}, models.ErrInvalidPayload
	}
	if vehicle.FuelType != "" && !models.KnownFuelType(vehicle.FuelType) {
		return models.Vehicle{}, models.ErrInvalidPayload
	}
	return s.Repo.CreateVehicle(ctx, vehicle)
}

func (s *VehicleService) GetVehicleByID(ctx context.Context, id int64) (models.Vehicle, error) {
	return s.Repo.GetVehicleByID(ctx, id)
}

func (s *VehicleService) GetVehiclesByOwner(ctx context.Context, ownerID int64) ([]models.Vehicle, error) {
	return s.Repo.GetVehiclesByOwner(ctx, ownerID)
}

func (s *VehicleService) UpdateVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error) {
	vehicle.Plate = strings.ToUpper(strings.TrimSpace(vehicle.Plate))
	if vehicle.FuelType != "" && !models.KnownFuelType(vehicle.FuelType) {
		return models.Vehicle{}, models.ErrInvalidPayload
	}
	return s.Repo.UpdateVehicle(ctx, vehicle)
}

func (s *VehicleService) DeleteVehicle(ctx context.Context, id, ownerID int64) error {
	return s.Repo.DeleteVehicle(ctx, id, ownerID)
}
