package lifecycle

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roadassist/internal/models"
	"roadassist/internal/rescue/dispatch"
	"roadassist/internal/rescue/fsm"
	"roadassist/internal/rescue/inventory"
	"roadassist/internal/rescue/pricing"
	"roadassist/internal/rescue/repo"
	"roadassist/internal/rescue/timeutil"
)

// Actor identifies who drives a transition.
type Actor struct {
	Role string
	ID   int64
}

// TransitionOptions carries optional transition inputs.
type TransitionOptions struct {
	Reason     string
	FinalPrice *float64
}

// CreateParams is the payload for opening a new service request.
type CreateParams struct {
	Type        string
	Description string
	VehicleRef  string
	FuelType    string
	FuelLiters  float64
	Destination string
	Lon         float64
	Lat         float64
	Address     string
	City        string
}

// Config holds the engine tunables.
type Config struct {
	TransitionTimeout time.Duration
	CalloutBase       float64
	PricePerKM        float64
	SearchRadiusStart int
}

// TxRunner opens a transaction around the mutating part of a transition.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// RequestStore is the request persistence the engine needs.
type RequestStore interface {
	CreateWithDispatch(ctx context.Context, req repo.Request, record repo.DispatchRecord) error
	Get(ctx context.Context, id string) (repo.Request, error)
	ApplyStatus(ctx context.Context, tx *sql.Tx, id, from, to string, at time.Time) error
	SetAssignment(ctx context.Context, tx *sql.Tx, id string, providerID int64, eta *time.Time, estimatedPrice *float64, at time.Time) error
	SetActualPrice(ctx context.Context, tx *sql.Tx, id string, price float64, at time.Time) error
	SetCancelReason(ctx context.Context, tx *sql.Tx, id, reason string) error
	ClearActive(ctx context.Context, tx *sql.Tx, requesterID int64, reqType string) error
	FinishDispatch(ctx context.Context, tx *sql.Tx, requestID string) error
}

// OfferStore closes losing offers once a provider wins the request.
type OfferStore interface {
	CloseForRequest(ctx context.Context, tx *sql.Tx, requestID string, winnerID int64) ([]int64, error)
}

// Assigner binds and releases providers.
type Assigner interface {
	Assign(ctx context.Context, tx *sql.Tx, req repo.Request, providerID int64) (dispatch.Assignment, error)
	Release(ctx context.Context, tx *sql.Tx, providerID int64) error
}

// FuelReserver reserves and restocks pump inventory.
type FuelReserver interface {
	Reserve(ctx context.Context, tx *sql.Tx, pumpID int64, fuelType string, liters float64) (inventory.Reservation, error)
	Restock(ctx context.Context, tx *sql.Tx, pumpID int64, fuelType string, liters float64) error
}

// Notifier fans out lifecycle events after commit.
type Notifier interface {
	RequestCreated(req repo.Request)
	StatusChanged(req repo.Request, oldStatus, newStatus string)
	OffersClosed(requestID string, providerIDs []int64)
}

// Logger is the minimal logger interface the engine needs.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Engine drives the service request state machine. All status writes go
// through one transaction with optimistic status validation, so two
// concurrent transitions of the same request cannot both win.
type Engine struct {
	runner   TxRunner
	requests RequestStore
	offers   OfferStore
	resolver Assigner
	fuel     FuelReserver
	notifier Notifier
	logger   Logger
	cfg      Config
}

// NewEngine constructs an Engine.
func NewEngine(runner TxRunner, requests RequestStore, offers OfferStore, resolver Assigner, fuel FuelReserver, notifier Notifier, logger Logger, cfg Config) *Engine {
	if cfg.TransitionTimeout <= 0 {
		cfg.TransitionTimeout = 5 * time.Second
	}
	return &Engine{runner: runner, requests: requests, offers: offers, resolver: resolver, fuel: fuel, notifier: notifier, logger: logger, cfg: cfg}
}

// Create validates the payload, opens the request in pending and schedules it
// for dispatch. A requester keeps at most one live request per type.
func (e *Engine) Create(ctx context.Context, requesterID int64, params CreateParams) (repo.Request, error) {
	if err := validateCreate(params); err != nil {
		return repo.Request{}, err
	}

	now := timeutil.Now()
	id := uuid.New()
	req := repo.Request{
		ID:          id.String(),
		Code:        newRequestCode(id),
		RequesterID: requesterID,
		Type:        params.Type,
		Status:      fsm.StatusPending,
		Lon:         params.Lon,
		Lat:         params.Lat,
		City:        strings.ToLower(strings.TrimSpace(params.City)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.Description != "" {
		req.Description = sql.NullString{String: params.Description, Valid: true}
	}
	if params.Address != "" {
		req.Address = sql.NullString{String: params.Address, Valid: true}
	}
	switch params.Type {
	case fsm.TypeFuel:
		req.FuelType = sql.NullString{String: params.FuelType, Valid: true}
		req.FuelLiters = sql.NullFloat64{Float64: params.FuelLiters, Valid: true}
	case fsm.TypeTowing:
		if params.Destination != "" {
			req.Destination = sql.NullString{String: params.Destination, Valid: true}
		}
	}
	if params.VehicleRef != "" {
		req.VehicleRef = sql.NullString{String: params.VehicleRef, Valid: true}
	}

	record := repo.DispatchRecord{
		RequestID:  req.ID,
		RadiusM:    e.cfg.SearchRadiusStart,
		NextTickAt: now,
		State:      "searching",
	}
	if err := e.requests.CreateWithDispatch(ctx, req, record); err != nil {
		return repo.Request{}, err
	}

	e.logger.Infof("request %s (%s) created by user %d", req.Code, req.Type, requesterID)
	e.notifier.RequestCreated(req)
	return req, nil
}

// Transition moves a request to the target status on behalf of the actor.
// Returns the request as persisted after the transition.
func (e *Engine) Transition(ctx context.Context, requestID string, actor Actor, target string, opts TransitionOptions) (repo.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TransitionTimeout)
	defer cancel()

	req, err := e.requests.Get(ctx, requestID)
	if err != nil {
		return repo.Request{}, mapTimeout(err)
	}
	return e.transitionFrom(ctx, req, actor, target, opts)
}

// transitionFrom applies the transition against a request snapshot. The
// snapshot may be stale: the in-transaction status update revalidates it.
func (e *Engine) transitionFrom(ctx context.Context, req repo.Request, actor Actor, target string, opts TransitionOptions) (repo.Request, error) {
	if !fsm.KnownStatus(target) || !fsm.CanTransition(req.Status, target) || !fsm.AllowedTarget(req.Type, target) {
		return repo.Request{}, models.ErrInvalidTransition
	}
	if err := checkActor(req, actor, target); err != nil {
		return repo.Request{}, err
	}

	now := timeutil.Now()
	var closedOffers []int64
	err := e.runner.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := e.requests.ApplyStatus(ctx, tx, req.ID, req.Status, target, now); err != nil {
			return err
		}
		if target == fsm.StatusAccepted {
			return e.acceptInTx(ctx, tx, req, actor.ID, now, &closedOffers)
		}
		if fsm.IsTerminal(target) {
			return e.finalizeInTx(ctx, tx, req, target, opts, now)
		}
		return nil
	})
	if err != nil {
		return repo.Request{}, e.mapTransitionErr(ctx, req, target, err)
	}

	updated, err := e.requests.Get(context.WithoutCancel(ctx), req.ID)
	if err != nil {
		updated = req
		updated.Status = target
	}
	e.notifier.StatusChanged(updated, req.Status, target)
	if len(closedOffers) > 0 {
		e.notifier.OffersClosed(req.ID, closedOffers)
	}
	return updated, nil
}

// acceptInTx runs the assignment side effects of pending -> accepted: bind
// the provider, reserve fuel stock for delivery requests, price the job and
// close the remaining offers.
func (e *Engine) acceptInTx(ctx context.Context, tx *sql.Tx, req repo.Request, providerID int64, now time.Time, closed *[]int64) error {
	assignment, err := e.resolver.Assign(ctx, tx, req, providerID)
	if err != nil {
		return err
	}

	var estimated float64
	if req.Type == fsm.TypeFuel {
		reservation, err := e.fuel.Reserve(ctx, tx, providerID, req.FuelType.String, req.FuelLiters.Float64)
		if err != nil {
			return err
		}
		estimated = pricing.FuelTotal(req.FuelLiters.Float64, reservation.UnitPrice)
		if reservation.LowStock {
			e.logger.Infof("pump %d low on %s after reserving %.1f l", providerID, req.FuelType.String, req.FuelLiters.Float64)
		}
	} else {
		estimated = pricing.Callout(assignment.DistanceM, e.cfg.CalloutBase, e.cfg.PricePerKM)
	}

	if err := e.requests.SetAssignment(ctx, tx, req.ID, providerID, assignment.ETA, &estimated, now); err != nil {
		return err
	}
	ids, err := e.offers.CloseForRequest(ctx, tx, req.ID, providerID)
	if err != nil {
		return err
	}
	*closed = ids
	return e.requests.FinishDispatch(ctx, tx, req.ID)
}

// finalizeInTx runs the terminal side effects: drop the one-active guard,
// stop dispatch, free the provider, compensate a reserved fuel stock and
// settle the price.
func (e *Engine) finalizeInTx(ctx context.Context, tx *sql.Tx, req repo.Request, target string, opts TransitionOptions, now time.Time) error {
	if err := e.requests.ClearActive(ctx, tx, req.RequesterID, req.Type); err != nil {
		return err
	}
	if err := e.requests.FinishDispatch(ctx, tx, req.ID); err != nil {
		return err
	}

	if req.ProviderID.Valid {
		if err := e.resolver.Release(ctx, tx, req.ProviderID.Int64); err != nil {
			return err
		}
	}
	if target == fsm.StatusCancelled && req.Status == fsm.StatusAccepted && req.Type == fsm.TypeFuel && req.ProviderID.Valid {
		if err := e.fuel.Restock(ctx, tx, req.ProviderID.Int64, req.FuelType.String, req.FuelLiters.Float64); err != nil {
			return err
		}
	}

	switch target {
	case fsm.StatusCompleted, fsm.StatusDelivered:
		price := 0.0
		switch {
		case opts.FinalPrice != nil:
			price = pricing.RoundMoney(*opts.FinalPrice)
		case req.EstimatedPrice.Valid:
			price = req.EstimatedPrice.Float64
		}
		if err := e.requests.SetActualPrice(ctx, tx, req.ID, price, now); err != nil {
			return err
		}
	case fsm.StatusCancelled, fsm.StatusRejected:
		if opts.Reason != "" {
			if err := e.requests.SetCancelReason(ctx, tx, req.ID, opts.Reason); err != nil {
				return err
			}
		}
	}
	return nil
}

// mapTransitionErr translates low-level failures into the lifecycle taxonomy.
// A lost optimistic update on an accept means another provider won the race.
func (e *Engine) mapTransitionErr(ctx context.Context, req repo.Request, target string, err error) error {
	if errors.Is(err, models.ErrConflictRetry) && req.Status == fsm.StatusPending && target == fsm.StatusAccepted {
		fresh, ferr := e.requests.Get(context.WithoutCancel(ctx), req.ID)
		if ferr == nil && fresh.Status != fsm.StatusPending {
			return models.ErrAlreadyAssigned
		}
	}
	return mapTimeout(err)
}

func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	return err
}

// checkActor enforces who may drive which edge. Admins may force any edge,
// requesters may only cancel their own pending or accepted request, every
// other edge belongs to the provider side, and once assigned only the
// assigned provider may progress the request.
func checkActor(req repo.Request, actor Actor, target string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleCustomer {
		if actor.ID != req.RequesterID {
			return models.ErrForbidden
		}
		if target == fsm.StatusCancelled {
			return nil
		}
		return models.ErrForbidden
	}
	if actor.Role != models.RoleProvider {
		return models.ErrForbidden
	}
	switch target {
	case fsm.StatusAccepted, fsm.StatusRejected:
		// Pre-assignment edges: any capable provider may take or decline.
		if req.ProviderID.Valid && req.ProviderID.Int64 != actor.ID {
			return models.ErrForbidden
		}
		return nil
	case fsm.StatusOnTheWay, fsm.StatusInProgress, fsm.StatusDelivered, fsm.StatusCompleted:
		if !req.ProviderID.Valid || req.ProviderID.Int64 != actor.ID {
			return models.ErrForbidden
		}
		return nil
	}
	return models.ErrForbidden
}

func validateCreate(params CreateParams) error {
	if !fsm.KnownType(params.Type) {
		return fmt.Errorf("%w: unknown request type %q", models.ErrInvalidPayload, params.Type)
	}
	if params.Lon < -180 || params.Lon > 180 || params.Lat < -90 || params.Lat > 90 {
		return fmt.Errorf("%w: coordinates out of range", models.ErrInvalidPayload)
	}
	if strings.TrimSpace(params.City) == "" {
		return fmt.Errorf("%w: city is required", models.ErrInvalidPayload)
	}
	if params.Type == fsm.TypeFuel {
		if !models.KnownFuelType(params.FuelType) {
			return fmt.Errorf("%w: unknown fuel type %q", models.ErrInvalidPayload, params.FuelType)
		}
		if params.FuelLiters <= 0 {
			return fmt.Errorf("%w: fuel volume must be positive", models.ErrInvalidPayload)
		}
	}
	return nil
}

// newRequestCode derives the human-readable code from the request's uuid so
// codes never repeat in lockstep across process restarts.
func newRequestCode(id uuid.UUID) string {
	n := binary.BigEndian.Uint32(id[0:4]) % 1000000
	return fmt.Sprintf("RA-%06d", n)
}
