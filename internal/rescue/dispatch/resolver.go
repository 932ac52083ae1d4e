package dispatch

import (
	"context"
	"database/sql"
	"time"

	"roadassist/internal/models"
	"roadassist/internal/rescue/geo"
	"roadassist/internal/rescue/pricing"
	"roadassist/internal/rescue/repo"
)

// ProviderStore is the provider access the resolver needs.
type ProviderStore interface {
	Get(ctx context.Context, id int64) (models.Provider, error)
	MarkBusy(ctx context.Context, tx *sql.Tx, id int64) error
	Release(ctx context.Context, tx *sql.Tx, id int64) error
}

// AssignmentCounter counts live assignments of a provider inside tx.
type AssignmentCounter interface {
	CountNonTerminalByProvider(ctx context.Context, tx *sql.Tx, providerID int64) (int, error)
}

// PositionSource reads last known provider coordinates.
type PositionSource interface {
	Position(ctx context.Context, providerID int64, city, status string) (lon, lat float64, ok bool, err error)
	MoveProvider(ctx context.Context, providerID int64, city, fromStatus, toStatus string) error
}

// Resolver binds providers to requests, enforcing one active assignment per
// provider and the capability set. Assign and Release run inside the
// lifecycle engine's transaction.
type Resolver struct {
	providers ProviderStore
	requests  AssignmentCounter
	locator   PositionSource
	logger    Logger
	cfg       Config
}

// NewResolver constructs a Resolver.
func NewResolver(providers ProviderStore, requests AssignmentCounter, locator PositionSource, logger Logger, cfg Config) *Resolver {
	return &Resolver{providers: providers, requests: requests, locator: locator, logger: logger, cfg: cfg}
}

// Assignment is the outcome of a successful Assign call. DistanceM is zero
// and ETA nil when the provider has no known position.
type Assignment struct {
	ETA       *time.Time
	DistanceM float64
}

// Assign validates the provider against the request and flips it to busy.
func (r *Resolver) Assign(ctx context.Context, tx *sql.Tx, req repo.Request, providerID int64) (Assignment, error) {
	provider, err := r.providers.Get(ctx, providerID)
	if err != nil {
		return Assignment{}, err
	}

	if !hasCapability(provider.Capabilities, req.Type) {
		return Assignment{}, models.ErrCapabilityMismatch
	}
	if provider.Availability != models.AvailabilityActive {
		return Assignment{}, models.ErrProviderUnavailable
	}
	held, err := r.requests.CountNonTerminalByProvider(ctx, tx, providerID)
	if err != nil {
		return Assignment{}, err
	}
	if held > 0 {
		return Assignment{}, models.ErrProviderUnavailable
	}
	if err := r.providers.MarkBusy(ctx, tx, providerID); err != nil {
		return Assignment{}, err
	}

	out := r.estimateArrival(ctx, req, providerID, provider.City)

	// Best effort: keep the geo index in step with availability. The index
	// self-heals on the provider's next location report.
	if err := r.locator.MoveProvider(ctx, providerID, provider.City, "active", "busy"); err != nil {
		r.logger.Errorf("resolver: move provider %d to busy set failed: %v", providerID, err)
	}
	return out, nil
}

// Release returns the provider to the active pool. Triggered by the
// lifecycle engine on every terminal transition of an assigned request.
func (r *Resolver) Release(ctx context.Context, tx *sql.Tx, providerID int64) error {
	if err := r.providers.Release(ctx, tx, providerID); err != nil {
		return err
	}
	provider, err := r.providers.Get(ctx, providerID)
	if err != nil {
		return nil
	}
	if err := r.locator.MoveProvider(ctx, providerID, provider.City, "busy", "active"); err != nil {
		r.logger.Errorf("resolver: move provider %d to active set failed: %v", providerID, err)
	}
	return nil
}

func (r *Resolver) estimateArrival(ctx context.Context, req repo.Request, providerID int64, city string) Assignment {
	lon, lat, ok, err := r.locator.Position(ctx, providerID, city, "active")
	if err != nil || !ok {
		return Assignment{}
	}
	dist := geo.Haversine(lon, lat, req.Lon, req.Lat)
	out := Assignment{DistanceM: dist}
	secs := pricing.TravelSeconds(dist, r.cfg.GetAvgSpeedKPH())
	if secs > 0 {
		eta := time.Now().Add(time.Duration(secs) * time.Second)
		out.ETA = &eta
	}
	return out
}

func hasCapability(caps []string, serviceType string) bool {
	for _, c := range caps {
		if c == serviceType {
			return true
		}
	}
	return false
}
