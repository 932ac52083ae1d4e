package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"roadassist/internal/models"
)

func TestGetRequestStatsRejectsInvertedWindow(t *testing.T) {
	s := &StatsService{}

	from := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -7)
	if _, err := s.GetRequestStats(context.Background(), from, to); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
