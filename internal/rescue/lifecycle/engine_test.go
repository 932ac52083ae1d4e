package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"roadassist/internal/models"
	"roadassist/internal/rescue/dispatch"
	"roadassist/internal/rescue/fsm"
	"roadassist/internal/rescue/inventory"
	"roadassist/internal/rescue/repo"
)

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

// memStore keeps requests in memory and emulates the optimistic status
// update of the real repository.
type memStore struct {
	reqs             map[string]repo.Request
	assignments      int
	clearedActive    int
	finishedDispatch int
	cancelReasons    map[string]string
}

func newMemStore() *memStore {
	return &memStore{reqs: map[string]repo.Request{}, cancelReasons: map[string]string{}}
}

func (s *memStore) snapshot() map[string]repo.Request {
	out := make(map[string]repo.Request, len(s.reqs))
	for k, v := range s.reqs {
		out[k] = v
	}
	return out
}

func (s *memStore) CreateWithDispatch(ctx context.Context, req repo.Request, record repo.DispatchRecord) error {
	for _, existing := range s.reqs {
		if existing.RequesterID == req.RequesterID && existing.Type == req.Type && !fsm.IsTerminal(existing.Status) {
			return models.ErrActiveRequestExists
		}
	}
	s.reqs[req.ID] = req
	return nil
}

func (s *memStore) Get(ctx context.Context, id string) (repo.Request, error) {
	req, ok := s.reqs[id]
	if !ok {
		return repo.Request{}, models.ErrRequestNotFound
	}
	return req, nil
}

func (s *memStore) ApplyStatus(ctx context.Context, tx *sql.Tx, id, from, to string, at time.Time) error {
	req, ok := s.reqs[id]
	if !ok || req.Status != from {
		return models.ErrConflictRetry
	}
	req.Status = to
	req.UpdatedAt = at
	s.reqs[id] = req
	return nil
}

func (s *memStore) SetAssignment(ctx context.Context, tx *sql.Tx, id string, providerID int64, eta *time.Time, estimatedPrice *float64, at time.Time) error {
	req := s.reqs[id]
	req.ProviderID = sql.NullInt64{Int64: providerID, Valid: true}
	if eta != nil {
		req.EstimatedArrival = sql.NullTime{Time: *eta, Valid: true}
	}
	if estimatedPrice != nil {
		req.EstimatedPrice = sql.NullFloat64{Float64: *estimatedPrice, Valid: true}
	}
	s.reqs[id] = req
	s.assignments++
	return nil
}

func (s *memStore) SetActualPrice(ctx context.Context, tx *sql.Tx, id string, price float64, at time.Time) error {
	req := s.reqs[id]
	req.ActualPrice = sql.NullFloat64{Float64: price, Valid: true}
	s.reqs[id] = req
	return nil
}

func (s *memStore) SetCancelReason(ctx context.Context, tx *sql.Tx, id, reason string) error {
	s.cancelReasons[id] = reason
	return nil
}

func (s *memStore) ClearActive(ctx context.Context, tx *sql.Tx, requesterID int64, reqType string) error {
	s.clearedActive++
	return nil
}

func (s *memStore) FinishDispatch(ctx context.Context, tx *sql.Tx, requestID string) error {
	s.finishedDispatch++
	return nil
}

// memRunner restores the store on error, matching transaction rollback.
type memRunner struct {
	store *memStore
}

func (r *memRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.reqs = snap
		return err
	}
	return nil
}

type stubAssigner struct {
	assignErr error
	distance  float64
	assigned  []int64
	released  []int64
}

func (s *stubAssigner) Assign(ctx context.Context, tx *sql.Tx, req repo.Request, providerID int64) (dispatch.Assignment, error) {
	if s.assignErr != nil {
		return dispatch.Assignment{}, s.assignErr
	}
	s.assigned = append(s.assigned, providerID)
	return dispatch.Assignment{DistanceM: s.distance}, nil
}

func (s *stubAssigner) Release(ctx context.Context, tx *sql.Tx, providerID int64) error {
	s.released = append(s.released, providerID)
	return nil
}

type stubFuel struct {
	stock     float64
	unitPrice float64
	reserved  float64
	restocked float64
}

func (s *stubFuel) Reserve(ctx context.Context, tx *sql.Tx, pumpID int64, fuelType string, liters float64) (inventory.Reservation, error) {
	if liters > s.stock {
		return inventory.Reservation{}, models.ErrInsufficientStock
	}
	s.stock -= liters
	s.reserved += liters
	return inventory.Reservation{UnitPrice: s.unitPrice, NewStock: s.stock}, nil
}

func (s *stubFuel) Restock(ctx context.Context, tx *sql.Tx, pumpID int64, fuelType string, liters float64) error {
	s.stock += liters
	s.restocked += liters
	return nil
}

type stubOfferStore struct {
	losers []int64
}

func (s *stubOfferStore) CloseForRequest(ctx context.Context, tx *sql.Tx, requestID string, winnerID int64) ([]int64, error) {
	return s.losers, nil
}

type stubNotifier struct {
	created      []string
	transitions  []string
	offersClosed [][]int64
}

func (s *stubNotifier) RequestCreated(req repo.Request) {
	s.created = append(s.created, req.ID)
}

func (s *stubNotifier) StatusChanged(req repo.Request, oldStatus, newStatus string) {
	s.transitions = append(s.transitions, oldStatus+">"+newStatus)
}

func (s *stubNotifier) OffersClosed(requestID string, providerIDs []int64) {
	s.offersClosed = append(s.offersClosed, providerIDs)
}

type engineFixture struct {
	engine   *Engine
	store    *memStore
	assigner *stubAssigner
	fuel     *stubFuel
	offers   *stubOfferStore
	notifier *stubNotifier
}

func newFixture() *engineFixture {
	store := newMemStore()
	assigner := &stubAssigner{distance: 2500}
	fuel := &stubFuel{stock: 15, unitPrice: 205.35}
	offers := &stubOfferStore{}
	notifier := &stubNotifier{}
	cfg := Config{
		TransitionTimeout: 2 * time.Second,
		CalloutBase:       500,
		PricePerKM:        120,
		SearchRadiusStart: 800,
	}
	engine := NewEngine(&memRunner{store: store}, store, offers, assigner, fuel, notifier, testLogger{}, cfg)
	return &engineFixture{engine: engine, store: store, assigner: assigner, fuel: fuel, offers: offers, notifier: notifier}
}

func (f *engineFixture) createRequest(t *testing.T, params CreateParams) repo.Request {
	t.Helper()
	req, err := f.engine.Create(context.Background(), 10, params)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return req
}

func towingParams() CreateParams {
	return CreateParams{Type: fsm.TypeTowing, Lon: 76.9, Lat: 43.2, City: "Almaty", Destination: "service station"}
}

func fuelParams(liters float64) CreateParams {
	return CreateParams{Type: fsm.TypeFuel, FuelType: models.FuelPetrol, FuelLiters: liters, Lon: 76.9, Lat: 43.2, City: "Almaty"}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	f := newFixture()
	cases := []CreateParams{
		{Type: "carwash", Lon: 76.9, Lat: 43.2, City: "Almaty"},
		{Type: fsm.TypeFuel, FuelType: "kerosene", FuelLiters: 5, Lon: 76.9, Lat: 43.2, City: "Almaty"},
		{Type: fsm.TypeFuel, FuelType: models.FuelPetrol, FuelLiters: 0, Lon: 76.9, Lat: 43.2, City: "Almaty"},
		{Type: fsm.TypeTowing, Lon: 200, Lat: 43.2, City: "Almaty"},
		{Type: fsm.TypeTowing, Lon: 76.9, Lat: 43.2},
	}
	for i, params := range cases {
		if _, err := f.engine.Create(context.Background(), 10, params); !errors.Is(err, models.ErrInvalidPayload) {
			t.Fatalf("case %d: expected ErrInvalidPayload, got %v", i, err)
		}
	}
}

func TestCreateEnforcesOneActivePerType(t *testing.T) {
	f := newFixture()
	f.createRequest(t, towingParams())
	if _, err := f.engine.Create(context.Background(), 10, towingParams()); !errors.Is(err, models.ErrActiveRequestExists) {
		t.Fatalf("expected ErrActiveRequestExists, got %v", err)
	}
	// A different type is still allowed.
	if _, err := f.engine.Create(context.Background(), 10, fuelParams(10)); err != nil {
		t.Fatalf("fuel request should be allowed: %v", err)
	}
}

func TestAcceptAssignsProviderAndPricesCallout(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, towingParams())

	updated, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 7}, fsm.StatusAccepted, TransitionOptions{})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if updated.Status != fsm.StatusAccepted {
		t.Fatalf("expected accepted, got %s", updated.Status)
	}
	if !updated.ProviderID.Valid || updated.ProviderID.Int64 != 7 {
		t.Fatalf("expected provider 7 assigned")
	}
	// 2.5 km at 120 per km on a 500 base.
	if !updated.EstimatedPrice.Valid || updated.EstimatedPrice.Float64 != 800 {
		t.Fatalf("unexpected estimated price: %+v", updated.EstimatedPrice)
	}
	if f.store.finishedDispatch == 0 {
		t.Fatalf("expected dispatch to be finished on accept")
	}
}

func TestAcceptFuelReservesStockAndPrices(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, fuelParams(12.5))

	updated, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 3}, fsm.StatusAccepted, TransitionOptions{})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if f.fuel.reserved != 12.5 {
		t.Fatalf("expected 12.5 l reserved, got %f", f.fuel.reserved)
	}
	if !updated.EstimatedPrice.Valid || updated.EstimatedPrice.Float64 != 2566.88 {
		t.Fatalf("unexpected fuel price: %+v", updated.EstimatedPrice)
	}
}

func TestAcceptFuelInsufficientStockLeavesRequestPending(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, fuelParams(20))

	_, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 3}, fsm.StatusAccepted, TransitionOptions{})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	fresh, _ := f.store.Get(context.Background(), req.ID)
	if fresh.Status != fsm.StatusPending {
		t.Fatalf("request must stay pending, got %s", fresh.Status)
	}
	if fresh.ProviderID.Valid {
		t.Fatalf("no provider must be assigned")
	}
}

func TestSecondAcceptLosesRace(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, towingParams())

	if _, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 7}, fsm.StatusAccepted, TransitionOptions{}); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	_, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 8}, fsm.StatusAccepted, TransitionOptions{})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after assignment, got %v", err)
	}
	fresh, _ := f.store.Get(context.Background(), req.ID)
	if fresh.ProviderID.Int64 != 7 {
		t.Fatalf("winner must stay assigned")
	}
}

func TestLostOptimisticUpdateMapsToAlreadyAssigned(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, towingParams())

	// Another provider wins between the read and the status update.
	if err := f.store.ApplyStatus(context.Background(), nil, req.ID, fsm.StatusPending, fsm.StatusAccepted, time.Now()); err != nil {
		t.Fatalf("seed accept failed: %v", err)
	}
	_, err := f.engine.transitionFrom(context.Background(), req, Actor{Role: models.RoleProvider, ID: 8}, fsm.StatusAccepted, TransitionOptions{})
	if !errors.Is(err, models.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
}

func TestRequesterCancelAcceptedReleasesProviderAndRestocks(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, fuelParams(10))
	if _, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 3}, fsm.StatusAccepted, TransitionOptions{}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	updated, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleCustomer, ID: 10}, fsm.StatusCancelled, TransitionOptions{Reason: "found help nearby"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if updated.Status != fsm.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if len(f.assigner.released) != 1 || f.assigner.released[0] != 3 {
		t.Fatalf("expected provider 3 released, got %v", f.assigner.released)
	}
	if f.fuel.restocked != 10 {
		t.Fatalf("expected 10 l restocked, got %f", f.fuel.restocked)
	}
	if f.store.cancelReasons[req.ID] != "found help nearby" {
		t.Fatalf("cancel reason not recorded")
	}
	if f.store.clearedActive == 0 {
		t.Fatalf("active guard must be cleared")
	}
}

func TestTerminalRequestRejectsFurtherTransitions(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, towingParams())
	customer := Actor{Role: models.RoleCustomer, ID: 10}

	if _, err := f.engine.Transition(context.Background(), req.ID, customer, fsm.StatusCancelled, TransitionOptions{}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	for _, target := range []string{fsm.StatusCancelled, fsm.StatusAccepted, fsm.StatusCompleted} {
		if _, err := f.engine.Transition(context.Background(), req.ID, customer, target, TransitionOptions{}); !errors.Is(err, models.ErrInvalidTransition) {
			t.Fatalf("target %s: expected ErrInvalidTransition, got %v", target, err)
		}
	}
}

func TestRoleGates(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, towingParams())
	provider := Actor{Role: models.RoleProvider, ID: 7}

	// Strangers cannot cancel someone else's request.
	if _, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleCustomer, ID: 99}, fsm.StatusCancelled, TransitionOptions{}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign customer, got %v", err)
	}
	if _, err := f.engine.Transition(context.Background(), req.ID, provider, fsm.StatusAccepted, TransitionOptions{}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	// The requester cannot drive provider-side progress.
	if _, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleCustomer, ID: 10}, fsm.StatusOnTheWay, TransitionOptions{}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for customer on_the_way, got %v", err)
	}
	// Only the assigned provider may progress.
	if _, err := f.engine.Transition(context.Background(), req.ID, Actor{Role: models.RoleProvider, ID: 8}, fsm.StatusOnTheWay, TransitionOptions{}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign provider, got %v", err)
	}
	if _, err := f.engine.Transition(context.Background(), req.ID, provider, fsm.StatusOnTheWay, TransitionOptions{}); err != nil {
		t.Fatalf("on_the_way failed: %v", err)
	}
}

func TestTypeSpecificEdges(t *testing.T) {
	f := newFixture()
	fuelReq := f.createRequest(t, fuelParams(5))
	provider := Actor{Role: models.RoleProvider, ID: 3}
	if _, err := f.engine.Transition(context.Background(), fuelReq.ID, provider, fsm.StatusAccepted, TransitionOptions{}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := f.engine.Transition(context.Background(), fuelReq.ID, provider, fsm.StatusOnTheWay, TransitionOptions{}); err != nil {
		t.Fatalf("on_the_way failed: %v", err)
	}
	// Fuel deliveries never enter in_progress.
	if _, err := f.engine.Transition(context.Background(), fuelReq.ID, provider, fsm.StatusInProgress, TransitionOptions{}); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for fuel in_progress, got %v", err)
	}
	updated, err := f.engine.Transition(context.Background(), fuelReq.ID, provider, fsm.StatusDelivered, TransitionOptions{})
	if err != nil {
		t.Fatalf("delivered failed: %v", err)
	}
	if !updated.ActualPrice.Valid {
		t.Fatalf("delivered must settle the actual price")
	}
}

func TestCompleteSettlesFinalPrice(t *testing.T) {
	f := newFixture()
	req := f.createRequest(t, CreateParams{Type: fsm.TypeMechanic, Lon: 76.9, Lat: 43.2, City: "Almaty", VehicleRef: "KZ 777 ABC"})
	provider := Actor{Role: models.RoleProvider, ID: 5}

	for _, target := range []string{fsm.StatusAccepted, fsm.StatusOnTheWay, fsm.StatusInProgress} {
		if _, err := f.engine.Transition(context.Background(), req.ID, provider, target, TransitionOptions{}); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}
	final := 1234.505
	updated, err := f.engine.Transition(context.Background(), req.ID, provider, fsm.StatusCompleted, TransitionOptions{FinalPrice: &final})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !updated.ActualPrice.Valid || updated.ActualPrice.Float64 != 1234.51 {
		t.Fatalf("unexpected actual price: %+v", updated.ActualPrice)
	}
	if len(f.assigner.released) != 1 || f.assigner.released[0] != 5 {
		t.Fatalf("provider must be released on completion")
	}
}

func TestUnknownRequest(t *testing.T) {
	f := newFixture()
	_, err := f.engine.Transition(context.Background(), "missing", Actor{Role: models.RoleAdmin}, fsm.StatusCancelled, TransitionOptions{})
	if !errors.Is(err, models.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRequestCodeDerivedFromID(t *testing.T) {
	a := newRequestCode(uuid.MustParse("00000001-0000-0000-0000-000000000000"))
	if a != "RA-000001" {
		t.Fatalf("newRequestCode = %q, want RA-000001", a)
	}
	// 0x075BCD15 = 123456789 -> 456789 after mod.
	b := newRequestCode(uuid.MustParse("075bcd15-0000-0000-0000-000000000000"))
	if b != "RA-456789" {
		t.Fatalf("newRequestCode = %q, want RA-456789", b)
	}
	if c := newRequestCode(uuid.New()); len(c) != 9 || c[:3] != "RA-" {
		t.Fatalf("unexpected code shape %q", c)
	}
}
