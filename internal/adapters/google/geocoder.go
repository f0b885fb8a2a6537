// Package google implements ports.Geocoder on the Google Maps Geocoding API.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/pkg/telemetry"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder calls the Geocoding web service.
type Geocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewGeocoder creates a geocoder. An empty baseURL uses the public endpoint.
func NewGeocoder(apiKey, baseURL string) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Geocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tracer: telemetry.Tracer("fieldtrack/google"),
	}
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Types []string `json:"types"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Geocode looks up query restricted to country.
func (g *Geocoder) Geocode(ctx context.Context, query, country string) ([]domain.PlaceCandidate, error) {
	ctx, span := g.tracer.Start(ctx, "google.Geocode", trace.WithAttributes(
		attribute.String("geocode.query", query),
		attribute.String("geocode.country", country),
	))
	defer span.End()

	params := url.Values{}
	params.Set("address", query)
	if country != "" {
		params.Set("components", "country:"+strings.ToUpper(country))
		params.Set("region", strings.ToLower(country))
	}

	out, err := g.do(ctx, params)
	recordResult(span, len(out), err)
	return out, err
}

// ReverseGeocode resolves point into the addresses that contain it.
func (g *Geocoder) ReverseGeocode(ctx context.Context, point domain.Position) ([]domain.PlaceCandidate, error) {
	ctx, span := g.tracer.Start(ctx, "google.ReverseGeocode", trace.WithAttributes(
		attribute.Float64("geocode.lat", point.Lat),
		attribute.Float64("geocode.lng", point.Lng),
	))
	defer span.End()

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%.6f,%.6f", point.Lat, point.Lng))

	out, err := g.do(ctx, params)
	recordResult(span, len(out), err)
	return out, err
}

func (g *Geocoder) do(ctx context.Context, params url.Values) ([]domain.PlaceCandidate, error) {
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Kind: KindInvalidRequest, Message: "build request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &GeocodingError{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTP(resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &GeocodingError{Kind: KindUnknown, Message: "decode response", Err: err}
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []domain.PlaceCandidate{}, nil
	default:
		return nil, classifyStatus(body.Status, body.ErrorMessage)
	}

	out := make([]domain.PlaceCandidate, 0, len(body.Results))
	for _, r := range body.Results {
		c := domain.PlaceCandidate{
			FormattedAddress: r.FormattedAddress,
			Location:         domain.Position{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Types:            r.Types,
		}
		for _, ac := range r.AddressComponents {
			c.Components = append(c.Components, domain.AddressComponent{
				LongName:  ac.LongName,
				ShortName: ac.ShortName,
				Types:     ac.Types,
			})
		}
		out = append(out, c)
	}
	return out, nil
}

func recordResult(span trace.Span, n int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("geocode.results", n))
}
