package domain

import "time"

// Position represents a geographic coordinate (WGS 84) with an optional
// compass heading in degrees (0-360).
type Position struct {
	Lat     float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64  `json:"lng" validate:"gte=-180,lte=180"`
	Heading *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lte=360"`
}

// SamePoint reports whether two positions share coordinates, ignoring heading.
func (p Position) SamePoint(o Position) bool {
	return p.Lat == o.Lat && p.Lng == o.Lng
}

// WithoutHeading returns a copy of p with no heading.
func (p Position) WithoutHeading() Position {
	return Position{Lat: p.Lat, Lng: p.Lng}
}

// Fix is a single reported device position sample.
type Fix struct {
	Position  Position  `json:"position"`
	Accuracy  float64   `json:"accuracy"` // meters
	Timestamp time.Time `json:"timestamp"`
	// Cached is set when the sample was replayed by the transport rather than
	// freshly acquired.
	Cached bool `json:"cached,omitempty"`
}

// RouteResult is the outcome of a driving route computation.
type RouteResult struct {
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
	Path            []Position `json:"path"`
}
