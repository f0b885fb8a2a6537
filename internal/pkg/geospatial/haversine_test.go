package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

var (
	cdo    = domain.Position{Lat: 8.4542, Lng: 124.6319}
	iligan = domain.Position{Lat: 8.2280, Lng: 124.2452}
)

func TestDistance(t *testing.T) {
	// Cagayan de Oro to Iligan, roughly 50 km as the crow flies.
	assert.InDelta(t, 49500, Distance(cdo, iligan), 1500)
	assert.Zero(t, Distance(cdo, cdo))
}

func TestDistanceSymmetric(t *testing.T) {
	manila := domain.Position{Lat: 14.5995, Lng: 120.9842}
	cebu := domain.Position{Lat: 10.3157, Lng: 123.8854}
	assert.InDelta(t, Distance(manila, cebu), Distance(cebu, manila), 1e-6)
}

func TestDistanceIgnoresHeading(t *testing.T) {
	h := 90.0
	turned := cdo
	turned.Heading = &h
	assert.Zero(t, Distance(cdo, turned))
}

func TestMovedAtLeast(t *testing.T) {
	// 0.001 degrees of latitude is about 111 m.
	near := domain.Position{Lat: cdo.Lat + 0.001, Lng: cdo.Lng}
	assert.True(t, MovedAtLeast(cdo, near, 100))
	assert.False(t, MovedAtLeast(cdo, near, 120))
}
