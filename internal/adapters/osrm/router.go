// Package osrm implements ports.Router on an OSRM routing server.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
	"github.com/samirrijal/fieldtrack/internal/pkg/telemetry"
)

// ErrNoRoute is returned when OSRM finds no drivable route.
var ErrNoRoute = errors.New("osrm: no route")

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// Router requests driving routes.
type Router struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewRouter creates a router against baseURL, e.g.
// "https://router.project-osrm.org".
func NewRouter(baseURL string) *Router {
	return &Router{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tracer: telemetry.Tracer("fieldtrack/osrm"),
	}
}

// Route returns the fastest driving route with its full geometry.
func (r *Router) Route(ctx context.Context, origin, destination domain.Position) (*domain.RouteResult, error) {
	ctx, span := r.tracer.Start(ctx, "osrm.Route", trace.WithAttributes(
		attribute.String("route.origin", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lng)),
		attribute.String("route.destination", fmt.Sprintf("%.6f,%.6f", destination.Lat, destination.Lng)),
	))
	defer span.End()

	start := time.Now()
	res, err := r.route(ctx, origin, destination)
	metrics.RoutingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Float64("route.distance_m", res.DistanceMeters))
	return res, nil
}

func (r *Router) route(ctx context.Context, origin, destination domain.Position) (*domain.RouteResult, error) {
	// OSRM expects lng,lat pairs.
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson&alternatives=false&steps=false",
		r.baseURL,
		origin.Lng, origin.Lat,
		destination.Lng, destination.Lat,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm call: %w", err)
	}
	defer resp.Body.Close()

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("osrm status %d: decode response: %w", resp.StatusCode, err)
	}

	if body.Code != "Ok" {
		if body.Code == "NoRoute" {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("osrm status %d: %s: %s", resp.StatusCode, body.Code, body.Message)
	}
	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	best := body.Routes[0]
	path := make([]domain.Position, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		path = append(path, domain.Position{Lat: c[1], Lng: c[0]})
	}
	return &domain.RouteResult{
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Path:            path,
	}, nil
}
