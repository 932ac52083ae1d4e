package models

import "time"

// Fuel types stocked by petrol pumps.
const (
	FuelPetrol  = "petrol"
	FuelPremium = "premium"
	FuelDiesel  = "diesel"
	FuelCNG     = "cng"
)

// FuelLine is one fuel type stocked by a petrol pump. Stock is liters and
// never goes negative; decrements happen only through the reservation
// handler under a row lock.
type FuelLine struct {
	ProviderID        int64      `json:"provider_id"`
	FuelType          string     `json:"fuel_type"`
	Price             float64    `json:"price"`
	Stock             float64    `json:"stock"`
	LowStockThreshold float64    `json:"low_stock_threshold"`
	Available         bool       `json:"available"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// KnownFuelType reports whether ft is one of the supported fuel types.
func KnownFuelType(ft string) bool {
	switch ft {
	case FuelPetrol, FuelPremium, FuelDiesel, FuelCNG:
		return true
	}
	return false
}
