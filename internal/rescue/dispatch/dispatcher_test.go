package dispatch

import (
	"context"
	"testing"
	"time"

	"roadassist/internal/rescue/geo"
	"roadassist/internal/rescue/repo"
	"roadassist/internal/rescue/ws"
)

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

type stubRequests struct {
	req repo.Request
}

func (s *stubRequests) Get(ctx context.Context, id string) (repo.Request, error) {
	return s.req, nil
}

type stubDispatch struct {
	radius   int
	next     time.Time
	finished bool
}

func (s *stubDispatch) ListDue(ctx context.Context, now time.Time) ([]repo.DispatchRecord, error) {
	return nil, nil
}

func (s *stubDispatch) UpdateRadius(ctx context.Context, requestID string, radius int, next time.Time) error {
	s.radius = radius
	s.next = next
	return nil
}

func (s *stubDispatch) Finish(ctx context.Context, requestID string) error {
	s.finished = true
	return nil
}

type stubOffers struct {
	created []int64
}

func (s *stubOffers) AlreadyOffered(ctx context.Context, requestID string, providerID int64) (bool, error) {
	return false, nil
}

func (s *stubOffers) CreateOffer(ctx context.Context, requestID string, providerID int64, ttl time.Time) error {
	s.created = append(s.created, providerID)
	return nil
}

type stubCapable struct {
	allowed map[int64]bool
}

func (s *stubCapable) FilterCapable(ctx context.Context, ids []int64, serviceType string) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if s.allowed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type stubLocator struct {
	nearby []geo.NearbyProvider
}

func (s *stubLocator) Nearby(ctx context.Context, lon, lat float64, radiusMeters float64, limit int, city string) ([]geo.NearbyProvider, error) {
	return s.nearby, nil
}

type stubProviderHub struct {
	offers []ws.OfferPayload
}

func (s *stubProviderHub) SendOffer(providerID int64, payload ws.OfferPayload) {
	s.offers = append(s.offers, payload)
}

type stubCustomerHub struct {
	events []ws.CustomerEvent
}

func (s *stubCustomerHub) PushRequestEvent(customerID int64, event ws.CustomerEvent) {
	s.events = append(s.events, event)
}

func testConfig() ConfigAdapter {
	return ConfigAdapter{
		CalloutBase:       500,
		PricePerKM:        120,
		AvgSpeedKPH:       30,
		SearchRadiusStart: 800,
		SearchRadiusStep:  400,
		SearchRadiusMax:   3000,
		DispatchTick:      time.Minute,
		OfferTTL:          20 * time.Second,
	}
}

func TestDispatcherRadiusExpansion(t *testing.T) {
	requests := &stubRequests{req: repo.Request{ID: "req-1", RequesterID: 10, Lon: 76.9, Lat: 43.2, Type: "towing", Status: "pending", City: "almaty"}}
	dispatchRepo := &stubDispatch{}
	offers := &stubOffers{}
	providerHub := &stubProviderHub{}
	customerHub := &stubCustomerHub{}
	cfg := testConfig()

	d := New(requests, dispatchRepo, offers, &stubCapable{}, &stubLocator{}, providerHub, customerHub, testLogger{}, cfg)

	rec := repo.DispatchRecord{RequestID: "req-1", RadiusM: cfg.SearchRadiusStart}
	if err := d.processRecord(context.Background(), rec, time.Now()); err != nil {
		t.Fatalf("processRecord error: %v", err)
	}
	if dispatchRepo.radius != cfg.SearchRadiusStart+cfg.SearchRadiusStep {
		t.Fatalf("expected radius to increase, got %d", dispatchRepo.radius)
	}
	if len(customerHub.events) == 0 || customerHub.events[0].Type != "search_progress" {
		t.Fatalf("expected search_progress event")
	}
}

func TestDispatcherRadiusCappedAtMax(t *testing.T) {
	requests := &stubRequests{req: repo.Request{ID: "req-1", RequesterID: 10, Type: "towing", Status: "pending"}}
	dispatchRepo := &stubDispatch{}
	cfg := testConfig()

	d := New(requests, dispatchRepo, &stubOffers{}, &stubCapable{}, &stubLocator{}, &stubProviderHub{}, &stubCustomerHub{}, testLogger{}, cfg)

	rec := repo.DispatchRecord{RequestID: "req-1", RadiusM: cfg.SearchRadiusMax}
	if err := d.processRecord(context.Background(), rec, time.Now()); err != nil {
		t.Fatalf("processRecord error: %v", err)
	}
	if dispatchRepo.radius != cfg.SearchRadiusMax {
		t.Fatalf("expected radius capped at %d, got %d", cfg.SearchRadiusMax, dispatchRepo.radius)
	}
}

func TestDispatcherOffersOnlyCapableProviders(t *testing.T) {
	requests := &stubRequests{req: repo.Request{ID: "req-2", RequesterID: 11, Type: "mechanic", Status: "pending", City: "almaty"}}
	dispatchRepo := &stubDispatch{}
	offers := &stubOffers{}
	providerHub := &stubProviderHub{}
	customerHub := &stubCustomerHub{}
	locator := &stubLocator{nearby: []geo.NearbyProvider{{ID: 1, Dist: 350}, {ID: 2, Dist: 700}}}
	capable := &stubCapable{allowed: map[int64]bool{2: true}}
	cfg := testConfig()

	d := New(requests, dispatchRepo, offers, capable, locator, providerHub, customerHub, testLogger{}, cfg)

	rec := repo.DispatchRecord{RequestID: "req-2", RadiusM: cfg.SearchRadiusStart}
	if err := d.processRecord(context.Background(), rec, time.Now()); err != nil {
		t.Fatalf("processRecord error: %v", err)
	}
	if len(offers.created) != 1 || offers.created[0] != 2 {
		t.Fatalf("expected single offer to provider 2, got %v", offers.created)
	}
	if len(providerHub.offers) != 1 || providerHub.offers[0].DistanceM != 700 {
		t.Fatalf("unexpected offer payloads: %+v", providerHub.offers)
	}
	if len(customerHub.events) == 0 || customerHub.events[0].Type != "searching" {
		t.Fatalf("expected searching event")
	}
	if dispatchRepo.radius != 0 {
		t.Fatalf("radius must not change after successful offers")
	}
}

func TestDispatcherFinishesNonPending(t *testing.T) {
	requests := &stubRequests{req: repo.Request{ID: "req-3", Status: "accepted"}}
	dispatchRepo := &stubDispatch{}

	d := New(requests, dispatchRepo, &stubOffers{}, &stubCapable{}, &stubLocator{}, &stubProviderHub{}, &stubCustomerHub{}, testLogger{}, testConfig())

	rec := repo.DispatchRecord{RequestID: "req-3", RadiusM: 800}
	if err := d.processRecord(context.Background(), rec, time.Now()); err != nil {
		t.Fatalf("processRecord error: %v", err)
	}
	if !dispatchRepo.finished {
		t.Fatalf("expected dispatch record to be finished")
	}
}
