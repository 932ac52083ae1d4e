package dispatch

import (
	"context"
	"errors"
	"time"

	"roadassist/internal/rescue/geo"
	"roadassist/internal/rescue/repo"
	"roadassist/internal/rescue/ws"
)

// Logger is a minimal logger interface required by dispatcher.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config holds required configuration subset.
type Config interface {
	GetCalloutBase() float64
	GetPricePerKM() float64
	GetAvgSpeedKPH() float64
	GetSearchRadiusStart() int
	GetSearchRadiusStep() int
	GetSearchRadiusMax() int
	GetDispatchTick() time.Duration
	GetOfferTTL() time.Duration
}

// Dispatcher performs periodic matching between service requests and providers.
type RequestsRepository interface {
	Get(ctx context.Context, id string) (repo.Request, error)
}

type DispatchRepository interface {
	ListDue(ctx context.Context, now time.Time) ([]repo.DispatchRecord, error)
	UpdateRadius(ctx context.Context, requestID string, radius int, next time.Time) error
	Finish(ctx context.Context, requestID string) error
}

type OffersRepository interface {
	AlreadyOffered(ctx context.Context, requestID string, providerID int64) (bool, error)
	CreateOffer(ctx context.Context, requestID string, providerID int64, ttl time.Time) error
}

type CapabilityFilter interface {
	FilterCapable(ctx context.Context, ids []int64, serviceType string) ([]int64, error)
}

type ProviderNotifier interface {
	SendOffer(providerID int64, payload ws.OfferPayload)
}

type CustomerNotifier interface {
	PushRequestEvent(customerID int64, event ws.CustomerEvent)
}

type providerLocator interface {
	Nearby(ctx context.Context, lon, lat float64, radiusMeters float64, limit int, city string) ([]geo.NearbyProvider, error)
}

type Dispatcher struct {
	requests   RequestsRepository
	dispatch   DispatchRepository
	offers     OffersRepository
	capable    CapabilityFilter
	locator    providerLocator
	providerWS ProviderNotifier
	customerWS CustomerNotifier
	logger     Logger
	cfg        Config
}

// New creates a dispatcher instance.
func New(requests RequestsRepository, dispatch DispatchRepository, offers OffersRepository, capable CapabilityFilter, locator providerLocator, providerWS ProviderNotifier, customerWS CustomerNotifier, logger Logger, cfg Config) *Dispatcher {
	return &Dispatcher{requests: requests, dispatch: dispatch, offers: offers, capable: capable, locator: locator, providerWS: providerWS, customerWS: customerWS, logger: logger, cfg: cfg}
}

// Run starts the dispatcher loop.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.GetDispatchTick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	now := time.Now()
	records, err := d.dispatch.ListDue(ctx, now)
	if err != nil {
		d.logger.Errorf("dispatch: list due failed: %v", err)
		return
	}
	for _, rec := range records {
		if err := d.processRecord(ctx, rec, now); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Errorf("dispatch: process request %s failed: %v", rec.RequestID, err)
		}
	}
}

func (d *Dispatcher) processRecord(ctx context.Context, rec repo.DispatchRecord, now time.Time) error {
	req, err := d.requests.Get(ctx, rec.RequestID)
	if err != nil {
		return err
	}
	if req.Status != "pending" {
		return d.dispatch.Finish(ctx, rec.RequestID)
	}

	providers, err := d.locator.Nearby(ctx, req.Lon, req.Lat, float64(rec.RadiusM), 20, req.City)
	if err != nil {
		return err
	}
	candidateIDs := make([]int64, 0, len(providers))
	distances := make(map[int64]float64, len(providers))
	for _, p := range providers {
		candidateIDs = append(candidateIDs, p.ID)
		distances[p.ID] = p.Dist
	}
	capableIDs := candidateIDs
	if len(candidateIDs) > 0 {
		capableIDs, err = d.capable.FilterCapable(ctx, candidateIDs, req.Type)
		if err != nil {
			return err
		}
	}

	ttl := now.Add(d.cfg.GetOfferTTL())
	sentOffers := 0
	for _, providerID := range capableIDs {
		offered, err := d.offers.AlreadyOffered(ctx, req.ID, providerID)
		if err != nil {
			return err
		}
		if offered {
			continue
		}
		if err := d.offers.CreateOffer(ctx, req.ID, providerID, ttl); err != nil {
			return err
		}
		payload := ws.OfferPayload{
			RequestID:    req.ID,
			RequestType:  req.Type,
			Lon:          req.Lon,
			Lat:          req.Lat,
			DistanceM:    distances[providerID],
			ExpiresInSec: int(d.cfg.GetOfferTTL().Seconds()),
		}
		if req.Address.Valid {
			payload.Address = req.Address.String
		}
		if req.FuelType.Valid {
			payload.FuelType = req.FuelType.String
		}
		if req.FuelLiters.Valid {
			payload.FuelLiters = req.FuelLiters.Float64
		}
		d.providerWS.SendOffer(providerID, payload)
		sentOffers++
	}

	if sentOffers == 0 {
		newRadius := rec.RadiusM + d.cfg.GetSearchRadiusStep()
		if newRadius > d.cfg.GetSearchRadiusMax() {
			newRadius = d.cfg.GetSearchRadiusMax()
		}
		next := rec.NextTickAt.Add(d.cfg.GetDispatchTick())
		if rec.NextTickAt.IsZero() || !next.After(now) {
			next = now.Add(d.cfg.GetDispatchTick())
		}
		if err := d.dispatch.UpdateRadius(ctx, rec.RequestID, newRadius, next); err != nil {
			return err
		}
		d.customerWS.PushRequestEvent(req.RequesterID, ws.CustomerEvent{Type: "search_progress", RequestID: req.ID, Radius: newRadius})
	} else {
		d.customerWS.PushRequestEvent(req.RequesterID, ws.CustomerEvent{Type: "searching", RequestID: req.ID, Radius: rec.RadiusM})
	}
	return nil
}

// TriggerImmediate schedules a request for immediate dispatch tick.
func (d *Dispatcher) TriggerImmediate(ctx context.Context, requestID string) error {
	return d.dispatch.UpdateRadius(ctx, requestID, d.cfg.GetSearchRadiusStart(), time.Now())
}

// ConfigAdapter allows module configuration to satisfy Config interface.
type ConfigAdapter struct {
	CalloutBase       float64
	PricePerKM        float64
	AvgSpeedKPH       float64
	SearchRadiusStart int
	SearchRadiusStep  int
	SearchRadiusMax   int
	DispatchTick      time.Duration
	OfferTTL          time.Duration
}

func (c ConfigAdapter) GetCalloutBase() float64         { return c.CalloutBase }
func (c ConfigAdapter) GetPricePerKM() float64          { return c.PricePerKM }
func (c ConfigAdapter) GetAvgSpeedKPH() float64         { return c.AvgSpeedKPH }
func (c ConfigAdapter) GetSearchRadiusStart() int       { return c.SearchRadiusStart }
func (c ConfigAdapter) GetSearchRadiusStep() int        { return c.SearchRadiusStep }
func (c ConfigAdapter) GetSearchRadiusMax() int         { return c.SearchRadiusMax }
func (c ConfigAdapter) GetDispatchTick() time.Duration  { return c.DispatchTick }
func (c ConfigAdapter) GetOfferTTL() time.Duration      { return c.OfferTTL }
