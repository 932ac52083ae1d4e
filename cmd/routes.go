package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"roadassist/internal/models"
	"roadassist/internal/rescue"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole(""))
	providerAuthMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole(models.RoleProvider))
	adminAuthMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole(models.RoleAdmin))

	mux := pat.New()

	// Users
	mux.Post("/user/sign_up", standardMiddleware.ThenFunc(app.userHandler.SignUp))
	mux.Post("/user/sign_in", standardMiddleware.ThenFunc(app.userHandler.SignIn))
	mux.Post("/user/sign_out", authMiddleware.ThenFunc(app.userHandler.SignOut))
	mux.Get("/user/me", standardMiddleware.ThenFunc(app.userHandler.GetUserByToken))
	mux.Post("/user/change_password", authMiddleware.ThenFunc(app.userHandler.ChangePassword))
	mux.Get("/user", adminAuthMiddleware.ThenFunc(app.userHandler.GetUsers))
	mux.Get("/user/:id", authMiddleware.ThenFunc(app.userHandler.GetUserByID))
	mux.Put("/user/:id", authMiddleware.ThenFunc(app.userHandler.UpdateUser))
	mux.Del("/user/:id", adminAuthMiddleware.ThenFunc(app.userHandler.DeleteUser))

	// Providers
	mux.Post("/provider", authMiddleware.ThenFunc(app.providerHandler.CreateProvider))
	mux.Get("/provider", authMiddleware.ThenFunc(app.providerHandler.GetProviders))
	mux.Get("/provider/:id", authMiddleware.ThenFunc(app.providerHandler.GetProviderByID))
	mux.Put("/provider/:id", providerAuthMiddleware.ThenFunc(app.providerHandler.UpdateProvider))
	mux.Del("/provider/:id", adminAuthMiddleware.ThenFunc(app.providerHandler.DeleteProvider))

	// Vehicles
	mux.Post("/vehicle", authMiddleware.ThenFunc(app.vehicleHandler.CreateVehicle))
	mux.Get("/vehicle", authMiddleware.ThenFunc(app.vehicleHandler.GetMyVehicles))
	mux.Get("/vehicle/:id", authMiddleware.ThenFunc(app.vehicleHandler.GetVehicleByID))
	mux.Put("/vehicle/:id", authMiddleware.ThenFunc(app.vehicleHandler.UpdateVehicle))
	mux.Del("/vehicle/:id", authMiddleware.ThenFunc(app.vehicleHandler.DeleteVehicle))

	// Fuel catalogue
	mux.Get("/fuel/:provider_id/low_stock", providerAuthMiddleware.ThenFunc(app.fuelHandler.GetLowStockLines))
	mux.Get("/fuel/:provider_id", authMiddleware.ThenFunc(app.fuelHandler.GetFuelLines))
	mux.Put("/fuel/:provider_id", providerAuthMiddleware.ThenFunc(app.fuelHandler.UpsertFuelLine))
	mux.Post("/fuel/:provider_id/stock", providerAuthMiddleware.ThenFunc(app.fuelHandler.AddStock))
	mux.Post("/fuel/:provider_id/availability", providerAuthMiddleware.ThenFunc(app.fuelHandler.SetAvailability))
	mux.Del("/fuel/:provider_id/:fuel_type", providerAuthMiddleware.ThenFunc(app.fuelHandler.DeleteFuelLine))

	// Admin stats
	mux.Get("/stats/requests", adminAuthMiddleware.ThenFunc(app.statsHandler.GetRequestStats))
	mux.Get("/stats/provider/:provider_id", adminAuthMiddleware.ThenFunc(app.statsHandler.GetProviderStats))

	rescueMux := http.NewServeMux()
	if err := rescue.RegisterRescueRoutes(rescueMux, app.rescueDeps); err != nil {
		app.errorLog.Fatal(err)
	}

	root := http.NewServeMux()
	root.Handle("/api/v1/", authMiddleware.Append(app.identityHeaders).Then(rescueMux))
	root.Handle("/ws/", alice.New(app.recoverPanic, app.logRequest).Then(rescueMux))
	root.Handle("/", mux)
	return root
}
