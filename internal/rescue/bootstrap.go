package rescue

import (
	"context"
	"net/http"
	"time"

	"roadassist/internal/rescue/dispatch"
	"roadassist/internal/rescue/geo"
	rescuehttp "roadassist/internal/rescue/http"
	"roadassist/internal/rescue/inventory"
	"roadassist/internal/rescue/lifecycle"
	"roadassist/internal/rescue/notify"
	"roadassist/internal/rescue/repo"
	"roadassist/internal/rescue/timeutil"
	"roadassist/internal/rescue/ws"
)

type moduleState struct {
	locator       *geo.ProviderLocator
	requestsRepo  *repo.RequestsRepo
	providersRepo *repo.ProvidersRepo
	dispatchRepo  *repo.DispatchRepo
	offersRepo    *repo.OffersRepo
	tokensRepo    *repo.DeviceTokensRepo
	inventoryMgr  *inventory.Manager
	customerHub   *ws.CustomerHub
	providerHub   *ws.ProviderHub
	resolver      *dispatch.Resolver
	dispatcher    *dispatch.Dispatcher
	notifier      *notify.Dispatcher
	engine        *lifecycle.Engine
	server        *rescuehttp.Server
	cfgAdapter    dispatch.ConfigAdapter
}

func ensureModule(deps *RescueDeps) (*moduleState, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}

	cfgAdapter := dispatch.ConfigAdapter{
		CalloutBase:       deps.Config.CalloutBase,
		PricePerKM:        deps.Config.PricePerKM,
		AvgSpeedKPH:       deps.Config.AvgSpeedKPH,
		SearchRadiusStart: deps.Config.SearchRadiusStart,
		SearchRadiusStep:  deps.Config.SearchRadiusStep,
		SearchRadiusMax:   deps.Config.SearchRadiusMax,
		DispatchTick:      deps.Config.DispatchTick,
		OfferTTL:          deps.Config.OfferTTL,
	}

	locator := geo.NewProviderLocator(deps.RDB)
	customerHub := ws.NewCustomerHub(deps.Logger)
	providerHub := ws.NewProviderHub(locator, deps.Logger)

	requestsRepo := repo.NewRequestsRepo(deps.DB)
	providersRepo := repo.NewProvidersRepo(deps.DB)
	dispatchRepo := repo.NewDispatchRepo(deps.DB)
	offersRepo := repo.NewOffersRepo(deps.DB)
	tokensRepo := repo.NewDeviceTokensRepo(deps.DB)
	inventoryMgr := inventory.NewManager(deps.DB)

	var pusher notify.Pusher
	if deps.FCM != nil {
		pusher = notify.NewFCMPusher(deps.FCM)
	}
	notifier := notify.NewDispatcher(customerHub, providerHub, tokensRepo, pusher, deps.Logger)

	resolver := dispatch.NewResolver(providersRepo, requestsRepo, locator, deps.Logger, cfgAdapter)
	dispatcher := dispatch.New(requestsRepo, dispatchRepo, offersRepo, providersRepo, locator, providerHub, customerHub, deps.Logger, cfgAdapter)

	engine := lifecycle.NewEngine(repo.TxRunner{DB: deps.DB}, requestsRepo, offersRepo, resolver, inventoryMgr, notifier, deps.Logger, lifecycle.Config{
		TransitionTimeout: deps.Config.TransitionTimeout,
		CalloutBase:       deps.Config.CalloutBase,
		PricePerKM:        deps.Config.PricePerKM,
		SearchRadiusStart: deps.Config.SearchRadiusStart,
	})

	server := rescuehttp.NewServer(deps.Logger, engine, requestsRepo, providersRepo, tokensRepo, locator, customerHub, providerHub, dispatcher)

	deps.module = &moduleState{
		locator:       locator,
		requestsRepo:  requestsRepo,
		providersRepo: providersRepo,
		dispatchRepo:  dispatchRepo,
		offersRepo:    offersRepo,
		tokensRepo:    tokensRepo,
		inventoryMgr:  inventoryMgr,
		customerHub:   customerHub,
		providerHub:   providerHub,
		resolver:      resolver,
		dispatcher:    dispatcher,
		notifier:      notifier,
		engine:        engine,
		server:        server,
		cfgAdapter:    cfgAdapter,
	}
	return deps.module, nil
}

// RegisterRescueRoutes wires HTTP and WebSocket routes into the provided mux.
func RegisterRescueRoutes(mux *http.ServeMux, deps *RescueDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	module.server.RegisterRoutes(mux)
	return nil
}

// StartRescueWorkers launches background workers for dispatcher and maintenance.
func StartRescueWorkers(ctx context.Context, deps *RescueDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	go module.dispatcher.Run(ctx)
	go module.startOfferCleanup(ctx)
	return nil
}

func (m *moduleState) startOfferCleanup(ctx context.Context) {
	ticker := time.NewTicker(m.cfgAdapter.OfferTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.offersRepo.ExpireOffers(ctx, timeutil.Now())
		}
	}
}
