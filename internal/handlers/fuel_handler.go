package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"roadassist/internal/models"
	"roadassist/internal/services"
)

type FuelHandler struct {
	Service *services.FuelService
}

func (h *FuelHandler) UpsertFuelLine(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get(":provider_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var line models.FuelLine
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	line.ProviderID = providerID

	saved, err := h.Service.UpsertFuelLine(r.Context(), line)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidPayload):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, models.ErrProviderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saved)
}

func (h *FuelHandler) GetFuelLines(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get(":provider_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	lines, err := h.Service.GetFuelLines(r.Context(), providerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lines)
}

func (h *FuelHandler) GetLowStockLines(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get(":provider_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	lines, err := h.Service.GetLowStockLines(r.Context(), providerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lines)
}

func (h *FuelHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get(":provider_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var req struct {
		FuelType string  `json:"fuel_type"`
		Liters   float64 `json:"liters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	line, err := h.Service.AddStock(r.Context(), providerID, req.FuelType, req.Liters)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidPayload):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, models.ErrFuelUnavailable):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(line)
}

func (h *FuelHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get(":provider_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var req struct {
		FuelType  string `json:"fuel_type"`
		Available bool   `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.SetAvailability(r.Context(), providerID, req.FuelType, req.Available); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidPayload):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, models.ErrFuelUnavailable):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FuelHandler) DeleteFuelLine(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get(":provider_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}
	fuelType := r.URL.Query().Get(":fuel_type")

	if err := h.Service.DeleteFuelLine(r.Context(), providerID, fuelType); err != nil {
		if errors.Is(err, models.ErrFuelUnavailable) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
