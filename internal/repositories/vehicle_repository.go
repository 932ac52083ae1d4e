package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"roadassist/internal/models"
)

type VehicleRepository struct {
	DB *sql.DB
}

func (r *VehicleRepository) CreateVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error) {
	query := `
        INSERT INTO vehicles (owner_id, make, model, plate, fuel_type, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	vehicle.CreatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, query,
		vehicle.OwnerID, vehicle.Make, vehicle.Model, vehicle.Plate, vehicle.FuelType, vehicle.CreatedAt)
	if err != nil {
		return models.Vehicle{}, err
	}
	vehicle.ID, err = res.LastInsertId()
	if err != nil {
		return models.Vehicle{}, err
	}
	return vehicle, nil
}

func (r *VehicleRepository) GetVehicleByID(ctx context.Context, id int64) (models.Vehicle, error) {
	query := `
        SELECT id, owner_id, make, model, plate, fuel_type, created_at, updated_at
        FROM vehicles
        WHERE id = ?
    `
	var vehicle models.Vehicle
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&vehicle.ID, &vehicle.OwnerID, &vehicle.Make, &vehicle.Model, &vehicle.Plate,
		&vehicle.FuelType, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vehicle{}, models.ErrVehicleNotFound
	}
	if err != nil {
		return models.Vehicle{}, err
	}
	return vehicle, nil
}

func (r *VehicleRepository) GetVehiclesByOwner(ctx context.Context, ownerID int64) ([]models.Vehicle, error) {
	query := `
        SELECT id, owner_id, make, model, plate, fuel_type, created_at, updated_at
        FROM vehicles
        WHERE owner_id = ?
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var vehicle models.Vehicle
		if err := rows.Scan(&vehicle.ID, &vehicle.OwnerID, &vehicle.Make, &vehicle.Model, &vehicle.Plate,
			&vehicle.FuelType, &vehicle.CreatedAt, &vehicle.UpdatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, rows.Err()
}

func (r *VehicleRepository) UpdateVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error) {
	query := `
        UPDATE vehicles
        SET make = ?, model = ?, plate = ?, fuel_type = ?, updated_at = NOW()
        WHERE id = ? AND owner_id = ?
    `
	res, err := r.DB.ExecContext(ctx, query,
		vehicle.Make, vehicle.Model, vehicle.Plate, vehicle.FuelType, vehicle.ID, vehicle.OwnerID)
	if err != nil {
		return models.Vehicle{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Vehicle{}, err
	}
	if affected == 0 {
		return models.Vehicle{}, models.ErrVehicleNotFound
	}
	return r.GetVehicleByID(ctx, vehicle.ID)
}

func (r *VehicleRepository) DeleteVehicle(ctx context.Context, id, ownerID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrVehicleNotFound
	}
	return nil
}
