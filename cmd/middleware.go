package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"

	"roadassist/internal/models"
)

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Frame-Options", "deny")
		next.ServeHTTP(w, r)
	})
}

func makeResponseJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.infoLog.Printf("%s - %s %s %s", r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.errorLog.Printf("panic: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// JWTMiddleware validates the access token, refreshing it through the stored
// session when expired, and enforces the required role.
func (app *application) JWTMiddleware(next http.Handler, requiredRole string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Authorization header missing or invalid", http.StatusUnauthorized)
			return
		}
		accessToken := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := app.tokens.Parse(accessToken)
		if err != nil {
			claims, err = app.refreshSession(w, r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
		}

		switch requiredRole {
		case models.RoleAdmin:
			if claims.Role != models.RoleAdmin {
				http.Error(w, "Forbidden: only admins allowed", http.StatusForbidden)
				return
			}
		case models.RoleProvider:
			if claims.Role != models.RoleProvider && claims.Role != models.RoleAdmin {
				http.Error(w, "Forbidden: only providers allowed", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), "user_id", claims.UserID)
		ctx = context.WithValue(ctx, "role", claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// refreshSession trades a valid refresh token for a new access token.
func (app *application) refreshSession(w http.ResponseWriter, r *http.Request) (models.Claims, error) {
	refreshToken := r.Header.Get("Refresh-Token")
	if refreshToken == "" {
		return models.Claims{}, errors.New("refresh token missing")
	}

	session, err := app.userRepo.GetSessionByToken(r.Context(), refreshToken)
	if err != nil || session.RefreshToken == "" {
		return models.Claims{}, errors.New("invalid refresh token")
	}
	if session.ExpiresAt.Before(time.Now()) {
		return models.Claims{}, errors.New("expired refresh token")
	}

	accessToken, err := app.tokens.NewJWT(session.UserID, session.Role)
	if err != nil {
		return models.Claims{}, fmt.Errorf("error generating new access token: %w", err)
	}
	w.Header().Set("Authorization", "Bearer "+accessToken)

	return models.Claims{
		UserID: session.UserID,
		Role:   session.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(20 * time.Hour).Unix(),
		},
	}, nil
}

// identityHeaders translates JWT claims into the identity headers the rescue
// module reads at its edge. Providers are resolved to their provider ID.
func (app *application) identityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := r.Context().Value("user_id").(int64)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		role, _ := r.Context().Value("role").(string)

		r.Header.Del("X-User-ID")
		r.Header.Del("X-Provider-ID")
		r.Header.Del("X-Admin-ID")
		switch role {
		case models.RoleAdmin:
			r.Header.Set("X-Admin-ID", strconv.FormatInt(userID, 10))
		case models.RoleProvider:
			provider, err := app.providerRepo.GetProviderByUserID(r.Context(), userID)
			if err != nil {
				http.Error(w, "Provider profile not found", http.StatusForbidden)
				return
			}
			r.Header.Set("X-Provider-ID", strconv.FormatInt(provider.ID, 10))
		default:
			r.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
		}
		next.ServeHTTP(w, r)
	})
}
