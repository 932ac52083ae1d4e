package main

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"roadassist/internal/config"
	"roadassist/internal/handlers"
	"roadassist/internal/repositories"
	"roadassist/internal/rescue"
	"roadassist/internal/services"
	"roadassist/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB

	rescueDeps *rescue.RescueDeps

	userHandler     *handlers.UserHandler
	userRepo        *repositories.UserRepository
	providerHandler *handlers.ProviderHandler
	providerRepo    *repositories.ProviderRepository
	vehicleHandler  *handlers.VehicleHandler
	vehicleRepo     *repositories.VehicleRepository
	fuelHandler     *handlers.FuelHandler
	fuelRepo        *repositories.FuelRepository
	statsHandler    *handlers.StatsHandler
	statsRepo       *repositories.StatsRepository

	tokens *utils.Manager
}

func initializeApp(db *sql.DB, rescueDeps *rescue.RescueDeps, cfg config.Config, errorLog, infoLog *log.Logger) *application {
	tokens, err := utils.NewManager(cfg.JWT.SigningKey, time.Duration(cfg.JWT.AccessTTLHours)*time.Hour)
	if err != nil {
		errorLog.Fatal(err)
	}

	// Repositories
	userRepo := repositories.UserRepository{DB: db}
	providerRepo := repositories.ProviderRepository{DB: db}
	vehicleRepo := repositories.VehicleRepository{DB: db}
	fuelRepo := repositories.FuelRepository{DB: db}
	statsRepo := repositories.StatsRepository{DB: db}

	// Services
	userService := &services.UserService{Repo: &userRepo, Tokens: tokens}
	providerService := &services.ProviderService{Repo: &providerRepo}
	vehicleService := &services.VehicleService{Repo: &vehicleRepo}
	fuelService := &services.FuelService{Repo: &fuelRepo, ProviderRepo: &providerRepo}
	statsService := &services.StatsService{Repo: &statsRepo}

	// Handlers
	userHandler := &handlers.UserHandler{Service: userService}
	providerHandler := &handlers.ProviderHandler{Service: providerService}
	vehicleHandler := &handlers.VehicleHandler{Service: vehicleService}
	fuelHandler := &handlers.FuelHandler{Service: fuelService}
	statsHandler := &handlers.StatsHandler{Service: statsService}

	return &application{
		errorLog:        errorLog,
		infoLog:         infoLog,
		db:              db,
		rescueDeps:      rescueDeps,
		userHandler:     userHandler,
		userRepo:        &userRepo,
		providerHandler: providerHandler,
		providerRepo:    &providerRepo,
		vehicleHandler:  vehicleHandler,
		vehicleRepo:     &vehicleRepo,
		fuelHandler:     fuelHandler,
		fuelRepo:        &fuelRepo,
		statsHandler:    statsHandler,
		statsRepo:       &statsRepo,
		tokens:          tokens,
	}
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
