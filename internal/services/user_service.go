package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"roadassist/internal/models"
	"roadassist/internal/repositories"
	"roadassist/utils"
)

const refreshTokenTTL = 30 * 24 * time.Hour

type UserService struct {
	Repo   *repositories.UserRepository
	Tokens *utils.Manager
}

// SignUp registers a customer or provider account. The password is stored as
// a bcrypt hash; duplicate phone or email surfaces as the matching sentinel.
func (s *UserService) SignUp(ctx context.Context, user models.User) (models.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Phone = strings.TrimSpace(user.Phone)
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if user.Name == "" || user.Password == "" || (user.Phone == "" && user.Email == "") {
		return models.User{}, models.ErrInvalidPayload
	}
	switch user.Role {
	case models.RoleCustomer, models.RoleProvider:
	case "":
		user.Role = models.RoleCustomer
	default:
		return models.User{}, models.ErrInvalidPayload
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	user.Password = string(hash)

	return s.Repo.CreateUser(ctx, user)
}

// SignIn checks credentials and issues an access token plus a refresh token
// stored on the user row.
func (s *UserService) SignIn(ctx context.Context, req models.SignInRequest) (models.SignInResponse, error) {
	user, err := s.Repo.GetUserByLogin(ctx, req.Phone, strings.ToLower(req.Email))
	if err != nil {
		return models.SignInResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return models.SignInResponse{}, models.ErrInvalidCredentials
	}
	user.Password = ""

	accessToken, err := s.Tokens.NewJWT(user.ID, user.Role)
	if err != nil {
		return models.SignInResponse{}, err
	}
	refreshToken, err := s.Tokens.NewRefreshToken()
	if err != nil {
		return models.SignInResponse{}, err
	}
	if err := s.Repo.SetSession(ctx, user.ID, models.Session{
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return models.SignInResponse{}, err
	}

	return models.SignInResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *UserService) SignOut(ctx context.Context, userID int64) error {
	return s.Repo.ClearSession(ctx, userID)
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.Repo.GetUserByID(ctx, id)
}

func (s *UserService) GetUserByToken(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.Tokens.Parse(accessToken)
	if err != nil {
		return models.User{}, models.ErrInvalidCredentials
	}
	return s.Repo.GetUserByID(ctx, claims.UserID)
}

func (s *UserService) GetUsers(ctx context.Context, role string, limit int) ([]models.User, error) {
	return s.Repo.GetUsers(ctx, role, limit)
}

func (s *UserService) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	if strings.TrimSpace(user.Name) == "" {
		return models.User{}, models.ErrInvalidPayload
	}
	return s.Repo.UpdateUser(ctx, user)
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.Repo.DeleteUser(ctx, id)
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	stored, err := s.Repo.GetUserByLogin(ctx, user.Phone, user.Email)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(oldPassword)); err != nil {
		return models.ErrInvalidCredentials
	}
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(ctx, userID, string(hash))
}
