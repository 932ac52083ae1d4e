package services

import (
	"context"

	"roadassist/internal/models"
	"roadassist/internal/repositories"
)

type FuelService struct {
	Repo         *repositories.FuelRepository
	ProviderRepo *repositories.ProviderRepository
}

// UpsertFuelLine validates and writes one catalogue line. Only petrol pumps
// carry fuel lines.
func (s *FuelService) UpsertFuelLine(ctx context.Context, line models.FuelLine) (models.FuelLine, error) {
	if !models.KnownFuelType(line.FuelType) || line.Price < 0 || line.Stock < 0 || line.LowStockThreshold < 0 {
		return models.FuelLine{}, models.ErrInvalidPayload
	}
	provider, err := s.ProviderRepo.GetProviderByID(ctx, line.ProviderID)
	if err != nil {
		return models.FuelLine{}, err
	}
	if provider.Kind != models.ProviderPetrolPump {
		return models.FuelLine{}, models.ErrInvalidPayload
	}
	return s.Repo.UpsertFuelLine(ctx, line)
}

func (s *FuelService) GetFuelLines(ctx context.Context, providerID int64) ([]models.FuelLine, error) {
	return s.Repo.GetFuelLines(ctx, providerID)
}

func (s *FuelService) GetLowStockLines(ctx context.Context, providerID int64) ([]models.FuelLine, error) {
	return s.Repo.GetLowStockLines(ctx, providerID)
}

func (s *FuelService) AddStock(ctx context.Context, providerID int64, fuelType string, liters float64) (models.FuelLine, error) {
	if !models.KnownFuelType(fuelType) || liters <= 0 {
		return models.FuelLine{}, models.ErrInvalidPayload
	}
	if err := s.Repo.AddStock(ctx, providerID, fuelType, liters); err != nil {
		return models.FuelLine{}, err
	}
	return s.Repo.GetFuelLine(ctx, providerID, fuelType)
}

func (s *FuelService) SetAvailability(ctx context.Context, providerID int64, fuelType string, available bool) error {
	if !models.KnownFuelType(fuelType) {
		return models.ErrInvalidPayload
	}
	return s.Repo.SetAvailability(ctx, providerID, fuelType, available)
}

func (s *FuelService) DeleteFuelLine(ctx context.Context, providerID int64, fuelType string) error {
	return s.Repo.DeleteFuelLine(ctx, providerID, fuelType)
}
