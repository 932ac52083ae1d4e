package models

import "time"

type Vehicle struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Make      string     `json:"make"`
	Model     string     `json:"model"`
	Plate     string     `json:"plate"`
	FuelType  string     `json:"fuel_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
