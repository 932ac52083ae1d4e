package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"roadassist/internal/models"
)

// Request represents the service_requests table: one lifecycle envelope with
// a type-specific payload (fuel_type/fuel_liters for fuel, vehicle_ref for
// mechanic, destination for towing).
type Request struct {
	ID               string
	Code             string
	RequesterID      int64
	ProviderID       sql.NullInt64
	Type             string
	Status           string
	Description      sql.NullString
	VehicleRef       sql.NullString
	FuelType         sql.NullString
	FuelLiters       sql.NullFloat64
	Destination      sql.NullString
	Lon              float64
	Lat              float64
	Address          sql.NullString
	City             string
	EstimatedArrival sql.NullTime
	EstimatedPrice   sql.NullFloat64
	ActualPrice      sql.NullFloat64
	CancelReason     sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DispatchRecord drives the offer dispatcher radius loop for one request.
type DispatchRecord struct {
	RequestID  string
	RadiusM    int
	NextTickAt time.Time
	State      string
}

// RequestFilter narrows List queries.
type RequestFilter struct {
	Status      string
	Type        string
	RequesterID int64
	ProviderID  int64
	Limit       int
}

const requestColumns = `id, code, requester_id, provider_id, type, status, description, vehicle_ref, fuel_type, fuel_liters, destination, lon, lat, address, city, estimated_arrival, estimated_price, actual_price, cancel_reason, created_at, updated_at`

// RequestsRepo provides access to service request data.
type RequestsRepo struct {
	db *sql.DB
}

// NewRequestsRepo constructs a RequestsRepo.
func NewRequestsRepo(db *sql.DB) *RequestsRepo {
	return &RequestsRepo{db: db}
}

// CreateWithDispatch inserts the request, its one-active-per-type guard row
// and the dispatch record within a single transaction. A guard collision
// surfaces as models.ErrActiveRequestExists.
func (r *RequestsRepo) CreateWithDispatch(ctx context.Context, req Request, dispatch DispatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO active_service_requests (requester_id, type, request_id) VALUES (?,?,?)`,
		req.RequesterID, req.Type, req.ID); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return models.ErrActiveRequestExists
		}
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO service_requests (`+requestColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		req.ID, req.Code, req.RequesterID, req.ProviderID, req.Type, req.Status,
		req.Description, req.VehicleRef, req.FuelType, req.FuelLiters, req.Destination,
		req.Lon, req.Lat, req.Address, req.City,
		req.EstimatedArrival, req.EstimatedPrice, req.ActualPrice, req.CancelReason,
		req.CreatedAt, req.UpdatedAt); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO request_dispatch (request_id, radius_m, next_tick_at, state) VALUES (?,?,?,?) ON DUPLICATE KEY UPDATE radius_m=VALUES(radius_m), next_tick_at=VALUES(next_tick_at), state=VALUES(state)`,
		dispatch.RequestID, dispatch.RadiusM, dispatch.NextTickAt, dispatch.State); err != nil {
		return err
	}

	return tx.Commit()
}

// Get fetches a request by id.
func (r *RequestsRepo) Get(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, models.ErrRequestNotFound
	}
	return req, err
}

// ApplyStatus performs the optimistic status update inside tx: zero affected
// rows means a concurrent writer got there first.
func (r *RequestsRepo) ApplyStatus(ctx context.Context, tx *sql.Tx, id, from, to string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE service_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, to, at, id, from)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrConflictRetry
	}
	return nil
}

// SetAssignment binds the provider and records ETA and estimated price.
func (r *RequestsRepo) SetAssignment(ctx context.Context, tx *sql.Tx, id string, providerID int64, eta *time.Time, estimatedPrice *float64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE service_requests SET provider_id = ?, estimated_arrival = ?, estimated_price = ?, updated_at = ? WHERE id = ?`,
		providerID, eta, estimatedPrice, at, id)
	return err
}

// SetActualPrice records the final price on completion or delivery.
func (r *RequestsRepo) SetActualPrice(ctx context.Context, tx *sql.Tx, id string, price float64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE service_requests SET actual_price = ?, updated_at = ? WHERE id = ?`, price, at, id)
	return err
}

// SetCancelReason stores why the request was cancelled or rejected.
func (r *RequestsRepo) SetCancelReason(ctx context.Context, tx *sql.Tx, id, reason string) error {
	_, err := tx.ExecContext(ctx, `UPDATE service_requests SET cancel_reason = ? WHERE id = ?`, reason, id)
	return err
}

// ClearActive drops the one-active-per-type guard row on terminal transitions.
func (r *RequestsRepo) ClearActive(ctx context.Context, tx *sql.Tx, requesterID int64, reqType string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM active_service_requests WHERE requester_id = ? AND type = ?`, requesterID, reqType)
	return err
}

// FinishDispatch stops the offer loop for the request.
func (r *RequestsRepo) FinishDispatch(ctx context.Context, tx *sql.Tx, requestID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE request_dispatch SET state = 'finished' WHERE request_id = ?`, requestID)
	return err
}

// List returns requests matching the filter, newest first.
func (r *RequestsRepo) List(ctx context.Context, f RequestFilter) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests`
	var conds []string
	var args []interface{}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.RequesterID != 0 {
		conds = append(conds, "requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.ProviderID != 0 {
		conds = append(conds, "provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CountNonTerminalByProvider counts live assignments held by the provider.
func (r *RequestsRepo) CountNonTerminalByProvider(ctx context.Context, tx *sql.Tx, providerID int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM service_requests WHERE provider_id = ? AND status IN ('pending','accepted','on_the_way','in_progress')`, providerID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.Code, &req.RequesterID, &req.ProviderID, &req.Type, &req.Status,
		&req.Description, &req.VehicleRef, &req.FuelType, &req.FuelLiters, &req.Destination,
		&req.Lon, &req.Lat, &req.Address, &req.City,
		&req.EstimatedArrival, &req.EstimatedPrice, &req.ActualPrice, &req.CancelReason,
		&req.CreatedAt, &req.UpdatedAt)
	return req, err
}
