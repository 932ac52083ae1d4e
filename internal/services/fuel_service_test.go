package services

import (
	"context"
	"errors"
	"testing"

	"roadassist/internal/models"
)

func TestUpsertFuelLineValidation(t *testing.T) {
	s := &FuelService{}

	t.Run("unknown fuel type", func(t *testing.T) {
		line := models.FuelLine{ProviderID: 1, FuelType: "kerosene", Price: 200, Stock: 100}
		if _, err := s.UpsertFuelLine(context.Background(), line); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("negative price", func(t *testing.T) {
		line := models.FuelLine{ProviderID: 1, FuelType: models.FuelDiesel, Price: -1, Stock: 100}
		if _, err := s.UpsertFuelLine(context.Background(), line); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("negative stock", func(t *testing.T) {
		line := models.FuelLine{ProviderID: 1, FuelType: models.FuelPetrol, Price: 200, Stock: -5}
		if _, err := s.UpsertFuelLine(context.Background(), line); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})
}

func TestAddStockValidation(t *testing.T) {
	s := &FuelService{}

	if _, err := s.AddStock(context.Background(), 1, models.FuelPetrol, 0); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for zero liters, got %v", err)
	}
	if _, err := s.AddStock(context.Background(), 1, "kerosene", 10); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for unknown fuel type, got %v", err)
	}
}

func TestSetAvailabilityValidation(t *testing.T) {
	s := &FuelService{}
	if err := s.SetAvailability(context.Background(), 1, "kerosene", true); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
