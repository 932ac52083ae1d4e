package repo

import (
	"context"
	"database/sql"
	"time"
)

// DispatchRepo drives the dispatcher's per-request radius loop.
type DispatchRepo struct {
	db *sql.DB
}

// NewDispatchRepo constructs a DispatchRepo.
func NewDispatchRepo(db *sql.DB) *DispatchRepo {
	return &DispatchRepo{db: db}
}

// ListDue returns searching dispatch records whose next tick has come.
func (r *DispatchRepo) ListDue(ctx context.Context, now time.Time) ([]DispatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT request_id, radius_m, next_tick_at, state FROM request_dispatch WHERE state = 'searching' AND next_tick_at <= ?`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		if err := rows.Scan(&rec.RequestID, &rec.RadiusM, &rec.NextTickAt, &rec.State); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateRadius schedules the next tick with a new search radius.
func (r *DispatchRepo) UpdateRadius(ctx context.Context, requestID string, radius int, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE request_dispatch SET radius_m = ?, next_tick_at = ? WHERE request_id = ?`, radius, next, requestID)
	return err
}

// Finish stops dispatching for the request.
func (r *DispatchRepo) Finish(ctx context.Context, requestID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE request_dispatch SET state = 'finished' WHERE request_id = ?`, requestID)
	return err
}
