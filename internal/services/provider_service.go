package services

import (
	"context"
	"strings"

	"roadassist/internal/models"
	"roadassist/internal/repositories"
	"roadassist/internal/rescue/fsm"
)

type ProviderService struct {
	Repo *repositories.ProviderRepository
}

func (s *ProviderService) CreateProvider(ctx context.Context, provider models.Provider) (models.Provider, error) {
	provider.Name = strings.TrimSpace(provider.Name)
	provider.City = strings.ToLower(strings.TrimSpace(provider.City))
	if provider.Name == "" || provider.City == "" || provider.UserID == 0 {
		return models.Provider{}, models.ErrInvalidPayload
	}
	switch provider.Kind {
	case models.ProviderMechanic, models.ProviderPetrolPump, models.ProviderWorker:
	default:
		return models.Provider{}, models.ErrInvalidPayload
	}
	if len(provider.Capabilities) == 0 {
		return models.Provider{}, models.ErrInvalidPayload
	}
	for _, capability := range provider.Capabilities {
		if !fsm.KnownType(capability) {
			return models.Provider{}, models.ErrInvalidPayload
		}
	}
	return s.Repo.CreateProvider(ctx, provider)
}

func (s *ProviderService) GetProviderByID(ctx context.Context, id int64) (models.Provider, error) {
	return s.Repo.GetProviderByID(ctx, id)
}

func (s *ProviderService) GetProviders(ctx context.Context, city, kind, capability string, limit int) ([]models.Provider, error) {
	if capability != "" && !fsm.KnownType(capability) {
		return nil, models.ErrInvalidPayload
	}
	return s.Repo.GetProviders(ctx, strings.ToLower(strings.TrimSpace(city)), kind, capability, limit)
}

func (s *ProviderService) UpdateProvider(ctx context.Context, provider models.Provider) (models.Provider, error) {
	provider.City = strings.ToLower(strings.TrimSpace(provider.City))
	for _, capability := range provider.Capabilities {
		if !fsm.KnownType(capability) {
			return models.Provider{}, models.ErrInvalidPayload
		}
	}
	return s.Repo.UpdateProvider(ctx, provider)
}

func (s *ProviderService) DeleteProvider(ctx context.Context, id int64) error {
	return s.Repo.DeleteProvider(ctx, id)
}
