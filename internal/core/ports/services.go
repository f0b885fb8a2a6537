package ports

import (
	"context"
	"errors"
	"time"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// Geocoder resolves free text or points into place candidates.
type Geocoder interface {
	// Geocode looks up query restricted to the ISO 3166-1 country code.
	Geocode(ctx context.Context, query, country string) ([]domain.PlaceCandidate, error)
	ReverseGeocode(ctx context.Context, point domain.Position) ([]domain.PlaceCandidate, error)
}

// Router computes driving routes between two points.
type Router interface {
	Route(ctx context.Context, origin, destination domain.Position) (*domain.RouteResult, error)
}

// WatchOptions configures a continuous location subscription.
type WatchOptions struct {
	HighAccuracy bool
	// Timeout bounds how long the source waits for a fix before reporting a
	// timeout error. Zero disables it.
	Timeout time.Duration
	// MaximumAge is the oldest cached fix the source may deliver. Zero means
	// cached fixes are never delivered.
	MaximumAge time.Duration
}

// LocationSource yields device fixes until the returned stop func is called.
type LocationSource interface {
	Watch(ctx context.Context, opts WatchOptions, onFix func(domain.Fix), onError func(error)) (stop func(), err error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
