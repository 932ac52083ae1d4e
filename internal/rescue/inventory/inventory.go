package inventory

import (
	"context"
	"database/sql"
	"errors"

	"roadassist/internal/models"
)

// Reservation is the outcome of a successful fuel stock decrement.
type Reservation struct {
	UnitPrice float64
	NewStock  float64
	LowStock  bool
}

// Manager reserves fuel stock against petrol pump inventory. Reserve and
// Restock take the caller's transaction so the decrement commits or rolls
// back together with the request status change.
type Manager struct {
	db *sql.DB
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Reserve decrements stock for (pumpID, fuelType) by liters. The SELECT ...
// FOR UPDATE serializes concurrent reservations on the same row, so stock
// can never go negative under any interleaving.
func (m *Manager) Reserve(ctx context.Context, tx *sql.Tx, pumpID int64, fuelType string, liters float64) (Reservation, error) {
	var (
		price     float64
		stock     float64
		threshold float64
		available bool
	)
	row := tx.QueryRowContext(ctx, `SELECT price, stock, low_stock_threshold, available FROM fuel_inventory WHERE provider_id = ? AND fuel_type = ? FOR UPDATE`, pumpID, fuelType)
	err := row.Scan(&price, &stock, &threshold, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, models.ErrFuelUnavailable
	}
	if err != nil {
		return Reservation{}, err
	}
	if !available {
		return Reservation{}, models.ErrFuelUnavailable
	}
	if liters > stock {
		return Reservation{}, models.ErrInsufficientStock
	}

	res, err := tx.ExecContext(ctx, `UPDATE fuel_inventory SET stock = stock - ? WHERE provider_id = ? AND fuel_type = ? AND stock >= ?`, liters, pumpID, fuelType, liters)
	if err != nil {
		return Reservation{}, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return Reservation{}, err
	}
	if rows == 0 {
		// Unreachable while the row lock is held; treated as a conflict
		// rather than letting stock drift.
		return Reservation{}, models.ErrConflictRetry
	}

	newStock := stock - liters
	return Reservation{
		UnitPrice: price,
		NewStock:  newStock,
		LowStock:  newStock <= threshold,
	}, nil
}

// Restock returns liters to the pump, compensating a reservation when an
// accepted fuel request is cancelled.
func (m *Manager) Restock(ctx context.Context, tx *sql.Tx, pumpID int64, fuelType string, liters float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE fuel_inventory SET stock = stock + ? WHERE provider_id = ? AND fuel_type = ?`, liters, pumpID, fuelType)
	return err
}
