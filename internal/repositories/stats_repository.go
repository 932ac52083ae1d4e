package repositories

import (
	"context"
	"database/sql"
	"time"

	"roadassist/internal/models"
)

type StatsRepository struct {
	DB *sql.DB
}

// GetRequestStats aggregates service requests created in [from, to).
func (r *StatsRepository) GetRequestStats(ctx context.Context, from, to time.Time) (models.RequestStats, error) {
	stats := models.RequestStats{
		ByStatus:   map[string]int64{},
		ByType:     map[string]int64{},
		AvgRevenue: map[string]float64{},
	}

	rows, err := r.DB.QueryContext(ctx, `
        SELECT status, COUNT(*)
        FROM service_requests
        WHERE created_at >= ? AND created_at < ?
        GROUP BY status
    `, from, to)
	if err != nil {
		return models.RequestStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return models.RequestStats{}, err
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return models.RequestStats{}, err
	}

	typeRows, err := r.DB.QueryContext(ctx, `
        SELECT type, COUNT(*), COALESCE(SUM(actual_price), 0), COALESCE(AVG(actual_price), 0)
        FROM service_requests
        WHERE created_at >= ? AND created_at < ?
        GROUP BY type
    `, from, to)
	if err != nil {
		return models.RequestStats{}, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var reqType string
		var n int64
		var revenue, avg float64
		if err := typeRows.Scan(&reqType, &n, &revenue, &avg); err != nil {
			return models.RequestStats{}, err
		}
		stats.ByType[reqType] = n
		stats.Revenue += revenue
		stats.AvgRevenue[reqType] = avg
	}
	return stats, typeRows.Err()
}

// GetProviderStats summarizes one provider's finished requests.
func (r *StatsRepository) GetProviderStats(ctx context.Context, providerID int64) (models.ProviderStats, error) {
	stats := models.ProviderStats{ProviderID: providerID}
	err := r.DB.QueryRowContext(ctx, `
        SELECT
            COALESCE(SUM(status IN ('completed', 'delivered')), 0),
            COALESCE(SUM(status = 'cancelled'), 0),
            COALESCE(SUM(CASE WHEN status IN ('completed', 'delivered') THEN actual_price ELSE 0 END), 0)
        FROM service_requests
        WHERE provider_id = ?
    `, providerID).Scan(&stats.Completed, &stats.Cancelled, &stats.Revenue)
	if err != nil {
		return models.ProviderStats{}, err
	}
	return stats, nil
}
