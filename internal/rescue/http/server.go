package rescuehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roadassist/internal/models"
	"roadassist/internal/rescue/dispatch"
	"roadassist/internal/rescue/fsm"
	"roadassist/internal/rescue/geo"
	"roadassist/internal/rescue/lifecycle"
	"roadassist/internal/rescue/repo"
	"roadassist/internal/rescue/ws"
)

// Server handles HTTP endpoints for the roadside assistance module.
type Server struct {
	logger        dispatch.Logger
	engine        *lifecycle.Engine
	requestsRepo  *repo.RequestsRepo
	providersRepo *repo.ProvidersRepo
	tokensRepo    *repo.DeviceTokensRepo
	locator       *geo.ProviderLocator
	customerHub   *ws.CustomerHub
	providerHub   *ws.ProviderHub
	dispatcher    *dispatch.Dispatcher
}

// NewServer constructs Server.
func NewServer(logger dispatch.Logger, engine *lifecycle.Engine, requests *repo.RequestsRepo, providers *repo.ProvidersRepo, tokens *repo.DeviceTokensRepo, locator *geo.ProviderLocator, customerHub *ws.CustomerHub, providerHub *ws.ProviderHub, dispatcher *dispatch.Dispatcher) *Server {
	return &Server{
		logger:        logger,
		engine:        engine,
		requestsRepo:  requests,
		providersRepo: providers,
		tokensRepo:    tokens,
		locator:       locator,
		customerHub:   customerHub,
		providerHub:   providerHub,
		dispatcher:    dispatcher,
	}
}

type requestPayload struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	VehicleRef  string  `json:"vehicle_ref"`
	FuelType    string  `json:"fuel_type"`
	FuelLiters  float64 `json:"fuel_liters"`
	Destination string  `json:"destination"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
}

func (p *requestPayload) normalize() {
	p.Type = strings.TrimSpace(strings.ToLower(p.Type))
	p.Description = strings.TrimSpace(p.Description)
	p.VehicleRef = strings.TrimSpace(p.VehicleRef)
	p.FuelType = strings.TrimSpace(strings.ToLower(p.FuelType))
	p.Destination = strings.TrimSpace(p.Destination)
	p.Address = strings.TrimSpace(p.Address)
	p.City = strings.TrimSpace(p.City)
}

type requestResponse struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	RequesterID      int64      `json:"requester_id"`
	ProviderID       *int64     `json:"provider_id,omitempty"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	Description      *string    `json:"description,omitempty"`
	VehicleRef       *string    `json:"vehicle_ref,omitempty"`
	FuelType         *string    `json:"fuel_type,omitempty"`
	FuelLiters       *float64   `json:"fuel_liters,omitempty"`
	Destination      *string    `json:"destination,omitempty"`
	Lon              float64    `json:"lon"`
	Lat              float64    `json:"lat"`
	Address          *string    `json:"address,omitempty"`
	City             string     `json:"city"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	EstimatedPrice   *float64   `json:"estimated_price,omitempty"`
	ActualPrice      *float64   `json:"actual_price,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func newRequestResponse(req repo.Request) requestResponse {
	return requestResponse{
		ID:               req.ID,
		Code:             req.Code,
		RequesterID:      req.RequesterID,
		ProviderID:       nullInt64ToPtr(req.ProviderID),
		Type:             req.Type,
		Status:           req.Status,
		Description:      nullToPtr(req.Description),
		VehicleRef:       nullToPtr(req.VehicleRef),
		FuelType:         nullToPtr(req.FuelType),
		FuelLiters:       nullFloat64ToPtr(req.FuelLiters),
		Destination:      nullToPtr(req.Destination),
		Lon:              req.Lon,
		Lat:              req.Lat,
		Address:          nullToPtr(req.Address),
		City:             req.City,
		EstimatedArrival: nullTimeToPtr(req.EstimatedArrival),
		EstimatedPrice:   nullFloat64ToPtr(req.EstimatedPrice),
		ActualPrice:      nullFloat64ToPtr(req.ActualPrice),
		CancelReason:     nullToPtr(req.CancelReason),
		CreatedAt:        req.CreatedAt,
		UpdatedAt:        req.UpdatedAt,
	}
}

// RegisterRoutes registers HTTP routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/requests", s.handleRequests)
	mux.HandleFunc("/api/v1/requests/", s.handleRequestSubroutes)
	mux.HandleFunc("/api/v1/provider/requests", s.handleProviderRequests)
	mux.HandleFunc("/api/v1/provider/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/providers/", s.handleProviderSubroutes)
	mux.HandleFunc("/api/v1/devices", s.handleDevices)
	mux.HandleFunc("/ws/customer", s.handleCustomerWS)
	mux.HandleFunc("/ws/provider", s.handleProviderWS)
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRequests(w, r)
	case http.MethodPost:
		s.createRequest(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, err := parseAuthID(r, "X-User-ID")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user id")
		return
	}
	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	payload.normalize()

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	req, err := s.engine.Create(ctx, requesterID, lifecycle.CreateParams{
		Type:        payload.Type,
		Description: payload.Description,
		VehicleRef:  payload.VehicleRef,
		FuelType:    payload.FuelType,
		FuelLiters:  payload.FuelLiters,
		Destination: payload.Destination,
		Lon:         payload.Lon,
		Lat:         payload.Lat,
		Address:     payload.Address,
		City:        payload.City,
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.logger.Errorf("create request failed: %v", err)
			writeError(w, status, "create failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.TriggerImmediate(context.Background(), req.ID)
	}
	writeJSON(w, http.StatusCreated, newRequestResponse(req))
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	requesterID, err := parseAuthID(r, "X-User-ID")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user id")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	filter := repo.RequestFilter{
		RequesterID: requesterID,
		Status:      strings.TrimSpace(r.URL.Query().Get("status")),
		Type:        strings.TrimSpace(r.URL.Query().Get("type")),
		Limit:       limit,
	}
	requests, err := s.requestsRepo.List(ctx, filter)
	if err != nil {
		s.logger.Errorf("list requests failed: %v", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	resp := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, newRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": resp, "limit": limit})
}

func (s *Server) handleProviderRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	providerID, err := parseAuthID(r, "X-Provider-ID")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing provider id")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	filter := repo.RequestFilter{
		ProviderID: providerID,
		Status:     strings.TrimSpace(r.URL.Query().Get("status")),
		Type:       strings.TrimSpace(r.URL.Query().Get("type")),
		Limit:      limit,
	}
	requests, err := s.requestsRepo.List(ctx, filter)
	if err != nil {
		s.logger.Errorf("list provider requests failed: %v", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	resp := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, newRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": resp, "limit": limit})
}

func (s *Server) handleRequestSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/requests/")
	path = strings.Trim(path, "/")
	if path == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	if len(parts) == 1 {
		if r.Method == http.MethodGet {
			s.getRequest(w, r, id)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPost && r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleStatus(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := parseActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	req, err := s.requestsRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrRequestNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch failed")
		return
	}
	if !canView(req, actor) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(req))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := parseActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var payload struct {
		Status     string   `json:"status"`
		Reason     string   `json:"reason"`
		FinalPrice *float64 `json:"final_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	target := strings.TrimSpace(strings.ToLower(payload.Status))
	if !fsm.KnownStatus(target) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	req, err := s.engine.Transition(r.Context(), id, actor, target, lifecycle.TransitionOptions{
		Reason:     strings.TrimSpace(payload.Reason),
		FinalPrice: payload.FinalPrice,
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.logger.Errorf("transition %s -> %s failed: %v", id, target, err)
			writeError(w, status, "transition failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(req))
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	providerID, err := parseAuthID(r, "X-Provider-ID")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing provider id")
		return
	}
	s.setAvailability(w, r, providerID)
}

// handleProviderSubroutes serves /api/v1/providers/{id}/availability. Admins
// may toggle any provider; a provider may only toggle itself.
func (s *Server) handleProviderSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/providers/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "availability" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	providerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	if _, err := parseAuthID(r, "X-Admin-ID"); err != nil {
		callerID, err := parseAuthID(r, "X-Provider-ID")
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing provider id")
			return
		}
		if callerID != providerID {
			writeError(w, http.StatusForbidden, "cannot change another provider's availability")
			return
		}
	}
	s.setAvailability(w, r, providerID)
}

func (s *Server) setAvailability(w http.ResponseWriter, r *http.Request, providerID int64) {
	var payload struct {
		Availability string `json:"availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	to := strings.TrimSpace(strings.ToLower(payload.Availability))
	if to != models.AvailabilityActive && to != models.AvailabilityInactive {
		writeError(w, http.StatusBadRequest, "invalid availability")
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := s.providersRepo.SetAvailability(ctx, providerID, to); err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.logger.Errorf("set availability failed: %v", err)
			writeError(w, status, "update failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	if to == models.AvailabilityInactive {
		provider, err := s.providersRepo.Get(ctx, providerID)
		if err == nil {
			if err := s.locator.GoOffline(ctx, providerID, provider.City); err != nil {
				s.logger.Errorf("geo offline failed for provider %d: %v", providerID, err)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"availability": to})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	userID, err := parseAuthID(r, "X-User-ID")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user id")
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	payload.Token = strings.TrimSpace(payload.Token)
	if payload.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	switch r.Method {
	case http.MethodPost:
		if err := s.tokensRepo.Save(ctx, userID, payload.Token); err != nil {
			s.logger.Errorf("save device token failed: %v", err)
			writeError(w, http.StatusInternalServerError, "save failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
	case http.MethodDelete:
		if err := s.tokensRepo.Delete(ctx, payload.Token); err != nil {
			s.logger.Errorf("delete device token failed: %v", err)
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCustomerWS(w http.ResponseWriter, r *http.Request) {
	s.customerHub.ServeWS(w, r)
}

func (s *Server) handleProviderWS(w http.ResponseWriter, r *http.Request) {
	s.providerHub.ServeWS(w, r)
}

// parseActor reads the caller identity headers. Providers and admins use
// dedicated headers so role confusion stays impossible at the edge.
func parseActor(r *http.Request) (lifecycle.Actor, error) {
	if id, err := parseAuthID(r, "X-Admin-ID"); err == nil {
		return lifecycle.Actor{Role: models.RoleAdmin, ID: id}, nil
	}
	if id, err := parseAuthID(r, "X-Provider-ID"); err == nil {
		return lifecycle.Actor{Role: models.RoleProvider, ID: id}, nil
	}
	if id, err := parseAuthID(r, "X-User-ID"); err == nil {
		return lifecycle.Actor{Role: models.RoleCustomer, ID: id}, nil
	}
	return lifecycle.Actor{}, errors.New("missing identity header")
}

func canView(req repo.Request, actor lifecycle.Actor) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return req.RequesterID == actor.ID
	case models.RoleProvider:
		return req.ProviderID.Valid && req.ProviderID.Int64 == actor.ID
	}
	return false
}
