package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"roadassist/internal/models"
)

type ProviderRepository struct {
	DB *sql.DB
}

// CreateProvider inserts the provider row plus one row per capability. New
// providers start inactive; they flip to active through the availability
// endpoint once they are ready to take offers.
func (r *ProviderRepository) CreateProvider(ctx context.Context, provider models.Provider) (models.Provider, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Provider{}, err
	}
	defer tx.Rollback()

	provider.Availability = models.AvailabilityInactive
	provider.CreatedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
        INSERT INTO providers (user_id, name, phone, city, kind, availability, rating, created_at)
        VALUES (?, ?, ?, ?, ?, ?, 0, ?)
    `, provider.UserID, provider.Name, provider.Phone, provider.City, provider.Kind, provider.Availability, provider.CreatedAt)
	if err != nil {
		return models.Provider{}, err
	}
	provider.ID, err = res.LastInsertId()
	if err != nil {
		return models.Provider{}, err
	}

	for _, capability := range provider.Capabilities {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO provider_capabilities (provider_id, service_type) VALUES (?, ?)
        `, provider.ID, capability); err != nil {
			return models.Provider{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Provider{}, err
	}
	return provider, nil
}

func (r *ProviderRepository) GetProviderByID(ctx context.Context, id int64) (models.Provider, error) {
	query := `
        SELECT id, user_id, name, phone, city, kind, availability, rating, created_at, updated_at
        FROM providers
        WHERE id = ?
    `
	var provider models.Provider
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&provider.ID, &provider.UserID, &provider.Name, &provider.Phone, &provider.City,
		&provider.Kind, &provider.Availability, &provider.Rating, &provider.CreatedAt, &provider.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Provider{}, models.ErrProviderNotFound
	}
	if err != nil {
		return models.Provider{}, err
	}
	provider.Capabilities, err = r.getCapabilities(ctx, id)
	if err != nil {
		return models.Provider{}, err
	}
	return provider, nil
}

// GetProviderByUserID resolves the provider profile behind a user account.
func (r *ProviderRepository) GetProviderByUserID(ctx context.Context, userID int64) (models.Provider, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM providers WHERE user_id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Provider{}, models.ErrProviderNotFound
	}
	if err != nil {
		return models.Provider{}, err
	}
	return r.GetProviderByID(ctx, id)
}

func (r *ProviderRepository) getCapabilities(ctx context.Context, providerID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT service_type FROM provider_capabilities WHERE provider_id = ?
    `, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capabilities []string
	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, err
		}
		capabilities = append(capabilities, capability)
	}
	return capabilities, rows.Err()
}

// GetProviders lists providers filtered by city, kind and capability. Empty
// filters are skipped.
func (r *ProviderRepository) GetProviders(ctx context.Context, city, kind, capability string, limit int) ([]models.Provider, error) {
	query := `
        SELECT DISTINCT p.id, p.user_id, p.name, p.phone, p.city, p.kind, p.availability, p.rating, p.created_at, p.updated_at
        FROM providers p
    `
	args := []interface{}{}
	where := []string{}
	if capability != "" {
		query += ` JOIN provider_capabilities pc ON pc.provider_id = p.id`
		where = append(where, `pc.service_type = ?`)
		args = append(args, capability)
	}
	if city != "" {
		where = append(where, `p.city = ?`)
		args = append(args, city)
	}
	if kind != "" {
		where = append(where, `p.kind = ?`)
		args = append(args, kind)
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY p.rating DESC, p.id LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []models.Provider
	for rows.Next() {
		var provider models.Provider
		if err := rows.Scan(&provider.ID, &provider.UserID, &provider.Name, &provider.Phone, &provider.City,
			&provider.Kind, &provider.Availability, &provider.Rating, &provider.CreatedAt, &provider.UpdatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range providers {
		providers[i].Capabilities, err = r.getCapabilities(ctx, providers[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return providers, nil
}

// UpdateProvider rewrites the mutable profile fields and replaces the
// capability set when one is supplied.
func (r *ProviderRepository) UpdateProvider(ctx context.Context, provider models.Provider) (models.Provider, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Provider{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE providers
        SET name = ?, phone = ?, city = ?, updated_at = NOW()
        WHERE id = ?
    `, provider.Name, provider.Phone, provider.City, provider.ID)
	if err != nil {
		return models.Provider{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Provider{}, err
	}
	if affected == 0 {
		return models.Provider{}, models.ErrProviderNotFound
	}

	if provider.Capabilities != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM provider_capabilities WHERE provider_id = ?`, provider.ID); err != nil {
			return models.Provider{}, err
		}
		for _, capability := range provider.Capabilities {
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO provider_capabilities (provider_id, service_type) VALUES (?, ?)
            `, provider.ID, capability); err != nil {
				return models.Provider{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Provider{}, err
	}
	return r.GetProviderByID(ctx, provider.ID)
}

func (r *ProviderRepository) DeleteProvider(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM providers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrProviderNotFound
	}
	return nil
}

// SetRating stores a new aggregate rating after a completed request review.
func (r *ProviderRepository) SetRating(ctx context.Context, id int64, rating float64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE providers SET rating = ?, updated_at = NOW() WHERE id = ?`, rating, id)
	return err
}
