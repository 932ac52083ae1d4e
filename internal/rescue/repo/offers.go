package repo

import (
	"context"
	"database/sql"
	"time"
)

// OffersRepo tracks which providers were offered which request, with TTLs,
// so the dispatcher never spams the same provider twice.
type OffersRepo struct {
	db *sql.DB
}

// NewOffersRepo constructs an OffersRepo.
func NewOffersRepo(db *sql.DB) *OffersRepo {
	return &OffersRepo{db: db}
}

// AlreadyOffered reports whether the provider has a live or spent offer for
// the request.
func (r *OffersRepo) AlreadyOffered(ctx context.Context, requestID string, providerID int64) (bool, error) {
	var x int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM request_offers WHERE request_id = ? AND provider_id = ? LIMIT 1`, requestID, providerID).Scan(&x)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateOffer records a pending offer valid until ttl.
func (r *OffersRepo) CreateOffer(ctx context.Context, requestID string, providerID int64, ttl time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO request_offers (request_id, provider_id, state, ttl_at) VALUES (?,?,'pending',?)`,
		requestID, providerID, ttl)
	return err
}

// CloseForRequest marks the winner's offer accepted and closes the rest,
// returning the provider ids whose offers were closed.
func (r *OffersRepo) CloseForRequest(ctx context.Context, tx *sql.Tx, requestID string, winnerID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT provider_id FROM request_offers WHERE request_id = ? AND provider_id <> ? AND state = 'pending'`, requestID, winnerID)
	if err != nil {
		return nil, err
	}
	var closed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		closed = append(closed, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE request_offers SET state = 'accepted' WHERE request_id = ? AND provider_id = ? AND state = 'pending'`, requestID, winnerID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE request_offers SET state = 'closed' WHERE request_id = ? AND provider_id <> ? AND state = 'pending'`, requestID, winnerID); err != nil {
		return nil, err
	}
	return closed, nil
}

// ExpireOffers closes pending offers whose TTL has passed.
func (r *OffersRepo) ExpireOffers(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE request_offers SET state = 'expired' WHERE state = 'pending' AND ttl_at < ?`, now)
	return err
}
