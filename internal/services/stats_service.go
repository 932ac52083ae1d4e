package services

import (
	"context"
	"time"

	"roadassist/internal/models"
	"roadassist/internal/repositories"
)

type StatsService struct {
	Repo *repositories.StatsRepository
}

// GetRequestStats defaults the window to the last 30 days when unset.
func (s *StatsService) GetRequestStats(ctx context.Context, from, to time.Time) (models.RequestStats, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return models.RequestStats{}, models.ErrInvalidPayload
	}
	return s.Repo.GetRequestStats(ctx, from, to)
}

func (s *StatsService) GetProviderStats(ctx context.Context, providerID int64) (models.ProviderStats, error) {
	return s.Repo.GetProviderStats(ctx, providerID)
}
