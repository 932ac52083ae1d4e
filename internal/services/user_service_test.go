package services

import (
	"context"
	"errors"
	"testing"

	"roadassist/internal/models"
)

func TestSignUpValidation(t *testing.T) {
	s := &UserService{}

	cases := []struct {
		name string
		user models.User
	}{
		{"missing name", models.User{Password: "secret", Phone: "+77001234567"}},
		{"missing password", models.User{Name: "Aset", Phone: "+77001234567"}},
		{"missing contact", models.User{Name: "Aset", Password: "secret"}},
		{"unknown role", models.User{Name: "Aset", Password: "secret", Phone: "+77001234567", Role: "superuser"}},
		{"admin not self-served", models.User{Name: "Aset", Password: "secret", Phone: "+77001234567", Role: models.RoleAdmin}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.SignUp(context.Background(), tc.user); !errors.Is(err, models.ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}
