package rescue

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultCalloutBase       = 500.0
	defaultPricePerKM        = 120.0
	defaultAvgSpeedKPH       = 30.0
	defaultSearchRadiusStart = 800
	defaultSearchRadiusStep  = 400
	defaultSearchRadiusMax   = 3000
	defaultDispatchTick      = 10 * time.Second
	defaultOfferTTL          = 20 * time.Second
	defaultTransitionTimeout = 5 * time.Second
)

// RescueConfig holds runtime configuration for the roadside assistance module.
type RescueConfig struct {
	CalloutBase       float64
	PricePerKM        float64
	AvgSpeedKPH       float64
	SearchRadiusStart int
	SearchRadiusStep  int
	SearchRadiusMax   int
	DispatchTick      time.Duration
	OfferTTL          time.Duration
	TransitionTimeout time.Duration
}

// LoadRescueConfig reads configuration from environment variables and applies defaults.
func LoadRescueConfig() (RescueConfig, error) {
	cfg := RescueConfig{
		CalloutBase:       defaultCalloutBase,
		PricePerKM:        defaultPricePerKM,
		AvgSpeedKPH:       defaultAvgSpeedKPH,
		SearchRadiusStart: defaultSearchRadiusStart,
		SearchRadiusStep:  defaultSearchRadiusStep,
		SearchRadiusMax:   defaultSearchRadiusMax,
		DispatchTick:      defaultDispatchTick,
		OfferTTL:          defaultOfferTTL,
		TransitionTimeout: defaultTransitionTimeout,
	}

	if v, err := readFloatEnv("CALLOUT_BASE_PRICE"); err != nil {
		return RescueConfig{}, fmt.Errorf("parse CALLOUT_BASE_PRICE: %w", err)
	} else if v != nil {
		cfg.CalloutBase = *v
	}

	if v, err := readFloatEnv("PRICE_PER_KM"); err != nil {
		return RescueConfig{}, fmt.Errorf("parse PRICE_PER_KM: %w", err)
	} else if v != nil {
		cfg.PricePerKM = *v
	}

	if v, err := readFloatEnv("AVG_SPEED_KPH"); err != nil {
		return RescueConfig{}, fmt.Errorf("parse AVG_SPEED_KPH: %w", err)
	} else if v != nil {
		cfg.AvgSpeedKPH = *v
	}

	if v, err := readIntEnv("SEARCH_RADIUS_START"); err != nil {
		return RescueConfig{}, fmt.Errorf("parse SEARCH_RADIUS_START: %w", err)
	} else if v != nil {
		cfg.SearchRadiusStart = *v
	}

	if v, err := readIntEnv("SEARCH_RADIUS_STEP"); err != nil {
		return RescueConfig{}, fmt.Errorf("parse SEARCH_RADIUS_STEP: %w", err)
	} else if v != nil {
		cfg.SearchRadiusStep = *v
	}

	if v, err := readIntEnv("SEARCH_RADIUS_MAX"); err != nil {
		return RescueConfig{}, fmt.Errorf("parse SEARCH_RADIUS_MAX: %w", err)
	} else if v != nil {
		cfg.SearchRadiusMax = *v
	}

	if v := os.Getenv("DISPATCH_TICK_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return RescueConfig{}, fmt.Errorf("parse DISPATCH_TICK_SECONDS: %w", err)
		}
		cfg.DispatchTick = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("OFFER_TTL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return RescueConfig{}, fmt.Errorf("parse OFFER_TTL_SECONDS: %w", err)
		}
		cfg.OfferTTL = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("TRANSITION_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return RescueConfig{}, fmt.Errorf("parse TRANSITION_TIMEOUT_SECONDS: %w", err)
		}
		cfg.TransitionTimeout = time.Duration(secs) * time.Second
	}

	if cfg.SearchRadiusStart <= 0 || cfg.SearchRadiusStep <= 0 || cfg.SearchRadiusMax <= 0 {
		return RescueConfig{}, fmt.Errorf("search radius values must be positive")
	}
	if cfg.SearchRadiusStart > cfg.SearchRadiusMax {
		return RescueConfig{}, fmt.Errorf("SEARCH_RADIUS_START must be <= SEARCH_RADIUS_MAX")
	}
	if cfg.CalloutBase < 0 || cfg.PricePerKM < 0 {
		return RescueConfig{}, fmt.Errorf("pricing values must not be negative")
	}

	return cfg, nil
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readFloatEnv(name string) (*float64, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
