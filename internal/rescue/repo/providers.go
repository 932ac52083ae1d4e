package repo

import (
	"context"
	"database/sql"
	"errors"

	"roadassist/internal/models"
)

// ProvidersRepo provides access to provider availability and capabilities.
type ProvidersRepo struct {
	db *sql.DB
}

// NewProvidersRepo constructs a ProvidersRepo.
func NewProvidersRepo(db *sql.DB) *ProvidersRepo {
	return &ProvidersRepo{db: db}
}

// Get fetches a provider with its capability set.
func (r *ProvidersRepo) Get(ctx context.Context, id int64) (models.Provider, error) {
	var p models.Provider
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, name, phone, city, kind, availability, rating, created_at, updated_at FROM providers WHERE id = ?`, id)
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Phone, &p.City, &p.Kind, &p.Availability, &p.Rating, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Provider{}, models.ErrProviderNotFound
	}
	if err != nil {
		return models.Provider{}, err
	}
	p.Capabilities, err = r.capabilities(ctx, id)
	return p, err
}

func (r *ProvidersRepo) capabilities(ctx context.Context, id int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT service_type FROM provider_capabilities WHERE provider_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caps []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}

// MarkBusy flips the provider from active to busy inside tx. Zero affected
// rows means the provider was not active at that instant.
func (r *ProvidersRepo) MarkBusy(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE providers SET availability = 'busy' WHERE id = ? AND availability = 'active'`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrProviderUnavailable
	}
	return nil
}

// Release returns a busy provider to active inside tx. Releasing a provider
// who is not busy is a no-op so terminal transitions stay idempotent at the
// storage level.
func (r *ProvidersRepo) Release(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE providers SET availability = 'active' WHERE id = ? AND availability = 'busy'`, id)
	return err
}

// SetAvailability toggles active/inactive from the provider-facing endpoint.
// Busy is owned by the lifecycle engine and cannot be set or left this way.
func (r *ProvidersRepo) SetAvailability(ctx context.Context, id int64, to string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE providers SET availability = ? WHERE id = ? AND availability <> 'busy'`, to, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM providers WHERE id = ?`, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return models.ErrProviderNotFound
		} else if err != nil {
			return err
		}
		return models.ErrProviderUnavailable
	}
	return nil
}

// FilterCapable keeps only the provider ids able to serve the request type.
func (r *ProvidersRepo) FilterCapable(ctx context.Context, ids []int64, serviceType string) ([]int64, error) {
	capable := make([]int64, 0, len(ids))
	for _, id := range ids {
		var x int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM provider_capabilities WHERE provider_id = ? AND service_type = ? LIMIT 1`, id, serviceType).Scan(&x)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		capable = append(capable, id)
	}
	return capable, nil
}
