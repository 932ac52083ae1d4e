package geo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// NearbyProvider represents a provider returned from Redis GEO queries.
type NearbyProvider struct {
	ID   int64
	Dist float64
	Lon  float64
	Lat  float64
}

// ProviderLocator tracks active provider positions per city in Redis GEO
// sets. Only discovery and ETA math read from here; MySQL stays the source
// of truth for availability.
type ProviderLocator struct {
	rdb *redis.Client
}

// NewProviderLocator creates a new locator.
func NewProviderLocator(rdb *redis.Client) *ProviderLocator {
	return &ProviderLocator{rdb: rdb}
}

func redisKey(city, status string) string {
	return fmt.Sprintf("providers:%s:%s", strings.ToLower(city), status)
}

func memberName(providerID int64) string {
	return fmt.Sprintf("provider:%d", providerID)
}

func parseProviderMember(member string) (int64, error) {
	parts := strings.Split(member, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid member %q", member)
	}
	return strconv.ParseInt(parts[1], 10, 64)
}

// UpdateProvider stores a provider position after validating the coordinates.
func (l *ProviderLocator) UpdateProvider(ctx context.Context, providerID int64, lon, lat float64, city, status string) error {
	city = strings.ToLower(strings.TrimSpace(city))
	if city == "" {
		return fmt.Errorf("UpdateProvider: empty city")
	}
	if status == "" {
		status = "active"
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return fmt.Errorf("UpdateProvider: invalid coords lon=%.8f lat=%.8f", lon, lat)
	}
	if math.Abs(lon) < 1e-4 && math.Abs(lat) < 1e-4 {
		return fmt.Errorf("UpdateProvider: near-zero coords lon=%.8f lat=%.8f", lon, lat)
	}
	return l.rdb.GeoAdd(ctx, redisKey(city, status), &redis.GeoLocation{
		Name:      memberName(providerID),
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

// MoveProvider moves a provider between status sets, preserving coordinates.
func (l *ProviderLocator) MoveProvider(ctx context.Context, providerID int64, city, fromStatus, toStatus string) error {
	if fromStatus == toStatus {
		return nil
	}
	src := redisKey(city, fromStatus)
	dst := redisKey(city, toStatus)
	mem := memberName(providerID)

	pos, err := l.rdb.GeoPos(ctx, src, mem).Result()
	if err != nil {
		return err
	}
	if len(pos) == 0 || pos[0] == nil {
		return fmt.Errorf("MoveProvider: coordinates not found for %s in %s", mem, src)
	}
	if err := l.rdb.GeoAdd(ctx, dst, &redis.GeoLocation{
		Name:      mem,
		Longitude: pos[0].Longitude,
		Latitude:  pos[0].Latitude,
	}).Err(); err != nil {
		return err
	}
	return l.rdb.ZRem(ctx, src, mem).Err()
}

// GoOffline removes a provider from every status set of the city.
func (l *ProviderLocator) GoOffline(ctx context.Context, providerID int64, city string) error {
	mem := memberName(providerID)
	for _, st := range []string{"active", "busy"} {
		if err := l.rdb.ZRem(ctx, redisKey(city, st), mem).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Position returns the last known coordinates of a provider, or ok=false
// when the provider has never reported a position in this city.
func (l *ProviderLocator) Position(ctx context.Context, providerID int64, city, status string) (lon, lat float64, ok bool, err error) {
	pos, err := l.rdb.GeoPos(ctx, redisKey(city, status), memberName(providerID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return 0, 0, false, nil
	}
	return pos[0].Longitude, pos[0].Latitude, true, nil
}

// Nearby returns active providers within radius sorted by distance (ascending).
func (l *ProviderLocator) Nearby(ctx context.Context, lon, lat float64, radiusMeters float64, limit int, city string) ([]NearbyProvider, error) {
	key := redisKey(city, "active")

	res, err := l.rdb.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	providers := make([]NearbyProvider, 0, len(res))
	for _, item := range res {
		id, err := parseProviderMember(item.Name)
		if err != nil {
			continue
		}
		providers = append(providers, NearbyProvider{
			ID:   id,
			Dist: item.Dist,
			Lon:  item.Longitude,
			Lat:  item.Latitude,
		})
	}
	return providers, nil
}

// Haversine returns the distance in meters between two WGS84 points.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	const earthRadius = 6371000.0
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	rLat1 := toRad(lat1)
	rLat2 := toRad(lat2)
	dLat := rLat2 - rLat1
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
