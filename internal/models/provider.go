package models

import "time"

// Provider kinds.
const (
	ProviderMechanic   = "mechanic"
	ProviderPetrolPump = "petrol_pump"
	ProviderWorker     = "worker"
)

// Provider availability states. Busy is owned by the assignment resolver:
// a busy provider holds exactly one non-terminal request.
const (
	AvailabilityActive   = "active"
	AvailabilityInactive = "inactive"
	AvailabilityBusy     = "busy"
)

type Provider struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	City         string     `json:"city"`
	Kind         string     `json:"kind"`
	Availability string     `json:"availability"`
	Capabilities []string   `json:"capabilities"`
	Rating       float64    `json:"rating"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
