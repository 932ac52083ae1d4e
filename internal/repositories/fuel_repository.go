package repositories

import (
	"context"
	"database/sql"
	"errors"

	"roadassist/internal/models"
)

// FuelRepository is the pump-side view of the fuel catalogue: price, stock
// top-ups and availability flags. Stock decrements for deliveries go through
// the reservation path in the lifecycle engine, never through here.
type FuelRepository struct {
	DB *sql.DB
}

// UpsertFuelLine creates or rewrites one fuel line for a pump.
func (r *FuelRepository) UpsertFuelLine(ctx context.Context, line models.FuelLine) (models.FuelLine, error) {
	query := `
        INSERT INTO fuel_inventory (provider_id, fuel_type, price, stock, low_stock_threshold, available, created_at)
        VALUES (?, ?, ?, ?, ?, ?, NOW())
        ON DUPLICATE KEY UPDATE
            price = VALUES(price),
            stock = VALUES(stock),
            low_stock_threshold = VALUES(low_stock_threshold),
            available = VALUES(available),
            updated_at = NOW()
    `
	_, err := r.DB.ExecContext(ctx, query,
		line.ProviderID, line.FuelType, line.Price, line.Stock, line.LowStockThreshold, line.Available)
	if err != nil {
		return models.FuelLine{}, err
	}
	return r.GetFuelLine(ctx, line.ProviderID, line.FuelType)
}

func (r *FuelRepository) GetFuelLine(ctx context.Context, providerID int64, fuelType string) (models.FuelLine, error) {
	query := `
        SELECT provider_id, fuel_type, price, stock, low_stock_threshold, available, created_at, updated_at
        FROM fuel_inventory
        WHERE provider_id = ? AND fuel_type = ?
    `
	var line models.FuelLine
	err := r.DB.QueryRowContext(ctx, query, providerID, fuelType).Scan(
		&line.ProviderID, &line.FuelType, &line.Price, &line.Stock,
		&line.LowStockThreshold, &line.Available, &line.CreatedAt, &line.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FuelLine{}, models.ErrFuelUnavailable
	}
	if err != nil {
		return models.FuelLine{}, err
	}
	return line, nil
}

func (r *FuelRepository) GetFuelLines(ctx context.Context, providerID int64) ([]models.FuelLine, error) {
	query := `
        SELECT provider_id, fuel_type, price, stock, low_stock_threshold, available, created_at, updated_at
        FROM fuel_inventory
        WHERE provider_id = ?
        ORDER BY fuel_type
    `
	rows, err := r.DB.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.FuelLine
	for rows.Next() {
		var line models.FuelLine
		if err := rows.Scan(&line.ProviderID, &line.FuelType, &line.Price, &line.Stock,
			&line.LowStockThreshold, &line.Available, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// GetLowStockLines lists lines at or below their low-stock threshold.
func (r *FuelRepository) GetLowStockLines(ctx context.Context, providerID int64) ([]models.FuelLine, error) {
	query := `
        SELECT provider_id, fuel_type, price, stock, low_stock_threshold, available, created_at, updated_at
        FROM fuel_inventory
        WHERE provider_id = ? AND stock <= low_stock_threshold
        ORDER BY fuel_type
    `
	rows, err := r.DB.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.FuelLine
	for rows.Next() {
		var line models.FuelLine
		if err := rows.Scan(&line.ProviderID, &line.FuelType, &line.Price, &line.Stock,
			&line.LowStockThreshold, &line.Available, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// AddStock tops the line up by liters. The reservation path only ever
// subtracts, so a plain increment is safe here.
func (r *FuelRepository) AddStock(ctx context.Context, providerID int64, fuelType string, liters float64) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE fuel_inventory
        SET stock = stock + ?, updated_at = NOW()
        WHERE provider_id = ? AND fuel_type = ?
    `, liters, providerID, fuelType)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrFuelUnavailable
	}
	return nil
}

func (r *FuelRepository) SetAvailability(ctx context.Context, providerID int64, fuelType string, available bool) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE fuel_inventory
        SET available = ?, updated_at = NOW()
        WHERE provider_id = ? AND fuel_type = ?
    `, available, providerID, fuelType)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrFuelUnavailable
	}
	return nil
}

func (r *FuelRepository) DeleteFuelLine(ctx context.Context, providerID int64, fuelType string) error {
	res, err := r.DB.ExecContext(ctx, `
        DELETE FROM fuel_inventory WHERE provider_id = ? AND fuel_type = ?
    `, providerID, fuelType)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrFuelUnavailable
	}
	return nil
}
