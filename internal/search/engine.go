// Package search answers free-text place queries for a renderer session,
// ranked towards the user's current province.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
)

const (
	DefaultLimit = 10

	forwardTTL = 300
	reverseTTL = 600
)

// Engine resolves queries through a geocoder, optionally caching raw
// candidates.
type Engine struct {
	geocoder ports.Geocoder
	cache    ports.CacheService
	country  string
	limit    int
	log      *slog.Logger
}

// NewEngine creates an Engine restricted to the ISO country code. cache may
// be nil.
func NewEngine(geocoder ports.Geocoder, cache ports.CacheService, country string, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{
		geocoder: geocoder,
		cache:    cache,
		country:  country,
		limit:    limit,
		log:      slog.Default().With("component", "search"),
	}
}

// Search returns ranked results for query. It never fails: empty queries and
// geocoding errors yield an empty list.
func (e *Engine) Search(ctx context.Context, query, province string) []domain.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.SearchQueries.WithLabelValues("empty").Inc()
		return []domain.SearchResult{}
	}

	key := fmt.Sprintf("geocode:forward:%s:%s", strings.ToLower(e.country), strings.ToLower(query))
	candidates, err := e.cached(ctx, key, "geocode", forwardTTL, func() ([]domain.PlaceCandidate, error) {
		return e.geocoder.Geocode(ctx, query, e.country)
	})
	if err != nil {
		metrics.SearchQueries.WithLabelValues("error").Inc()
		e.log.Warn("geocoding failed", "query", query, "error", err)
		return []domain.SearchResult{}
	}

	results := Rank(candidates, e.country, province, e.limit)
	metrics.SearchQueries.WithLabelValues("ok").Inc()
	metrics.SearchResults.Observe(float64(len(results)))
	return results
}

// Province reverse geocodes point to its first-level administrative area.
// An empty name with a nil error means the point resolved to no province.
func (e *Engine) Province(ctx context.Context, point domain.Position) (string, error) {
	key := fmt.Sprintf("geocode:reverse:%.4f:%.4f", point.Lat, point.Lng)
	candidates, err := e.cached(ctx, key, "reverse_geocode", reverseTTL, func() ([]domain.PlaceCandidate, error) {
		return e.geocoder.ReverseGeocode(ctx, point.WithoutHeading())
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	for _, c := range candidates {
		if comp, ok := c.Component(domain.ComponentAdminLevel1); ok {
			return comp.LongName, nil
		}
	}
	return "", nil
}

// cached is a read-through lookup of geocoder candidates. Cache failures fall
// through to the geocoder.
func (e *Engine) cached(ctx context.Context, key, op string, ttl int, fetch func() ([]domain.PlaceCandidate, error)) ([]domain.PlaceCandidate, error) {
	if e.cache != nil {
		if data, err := e.cache.Get(ctx, key); err == nil {
			var candidates []domain.PlaceCandidate
			if err := json.Unmarshal(data, &candidates); err == nil {
				metrics.CacheHits.WithLabelValues(op).Inc()
				return candidates, nil
			}
		}
		metrics.CacheMisses.WithLabelValues(op).Inc()
	}

	candidates, err := fetch()
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if data, err := json.Marshal(candidates); err == nil {
			_ = e.cache.Set(ctx, key, data, ttl)
		}
	}
	return candidates, nil
}
