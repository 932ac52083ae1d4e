package services

import (
	"context"
	"errors"
	"testing"

	"roadassist/internal/models"
)

func validProvider() models.Provider {
	return models.Provider{
		UserID:       3,
		Name:         "Almaty Towing",
		City:         "Almaty",
		Kind:         models.ProviderWorker,
		Capabilities: []string{"towing"},
	}
}

func TestCreateProviderValidation(t *testing.T) {
	s := &ProviderService{}

	t.Run("unknown kind", func(t *testing.T) {
		p := validProvider()
		p.Kind = "helicopter"
		if _, err := s.CreateProvider(context.Background(), p); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("no capabilities", func(t *testing.T) {
		p := validProvider()
		p.Capabilities = nil
		if _, err := s.CreateProvider(context.Background(), p); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("unknown capability", func(t *testing.T) {
		p := validProvider()
		p.Capabilities = []string{"towing", "catering"}
		if _, err := s.CreateProvider(context.Background(), p); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("missing city", func(t *testing.T) {
		p := validProvider()
		p.City = "  "
		if _, err := s.CreateProvider(context.Background(), p); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})
}

func TestGetProvidersRejectsUnknownCapability(t *testing.T) {
	s := &ProviderService{}
	if _, err := s.GetProviders(context.Background(), "almaty", "", "catering", 10); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
