package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

var origin = domain.Position{Lat: 8.4542, Lng: 124.6319}

func TestSetViewStripsHeading(t *testing.T) {
	s := New(Viewport{Zoom: 12})
	h := 90.0
	s.SetView(domain.Position{Lat: 1, Lng: 2, Heading: &h}, 16)

	v := s.View()
	assert.Equal(t, 16.0, v.Zoom)
	assert.Nil(t, v.Center.Heading)

	s.PanTo(origin)
	v = s.View()
	assert.Equal(t, 16.0, v.Zoom)
	assert.True(t, v.Center.SamePoint(origin))
}

func TestMarkerLifecycle(t *testing.T) {
	s := New(Viewport{})
	id := s.AddMarker(Marker{Kind: MarkerUser, Position: origin, Title: "You are here"})
	require.NotEmpty(t, id)

	ok := s.UpdateMarker(id, func(m *Marker) { m.Title = "moved" })
	require.True(t, ok)
	m, found := s.Marker(id)
	require.True(t, found)
	assert.Equal(t, "moved", m.Title)
	assert.Equal(t, id, m.ID)

	s.RemoveMarker(id)
	_, found = s.Marker(id)
	assert.False(t, found)
	assert.False(t, s.UpdateMarker(id, func(*Marker) {}))

	// Removing twice is harmless.
	s.RemoveMarker(id)
}

func TestSnapshotCreationOrder(t *testing.T) {
	s := New(Viewport{})
	a := s.AddMarker(Marker{Kind: MarkerSite, Title: "A"})
	p := s.AddPolyline([]domain.Position{origin})
	b := s.AddMarker(Marker{Kind: MarkerSite, Title: "B"})
	c := s.AddCircle(Circle{Center: origin, RadiusMeters: 35, Opacity: 0.2})

	snap := s.Snapshot()
	require.Len(t, snap.Markers, 2)
	assert.Equal(t, a, snap.Markers[0].ID)
	assert.Equal(t, b, snap.Markers[1].ID)
	require.Len(t, snap.Polylines, 1)
	assert.Equal(t, p, snap.Polylines[0].ID)
	require.Len(t, snap.Circles, 1)
	assert.Equal(t, c, snap.Circles[0].ID)
}

func TestSnapshotAfterManyRemovals(t *testing.T) {
	s := New(Viewport{})
	var keep string
	for i := 0; i < 200; i++ {
		id := s.AddMarker(Marker{Kind: MarkerSite})
		if i == 150 {
			keep = id
			continue
		}
		s.RemoveMarker(id)
	}
	snap := s.Snapshot()
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, keep, snap.Markers[0].ID)
	assert.LessOrEqual(t, len(s.order), 64)
}

func TestPolylineCopiesPath(t *testing.T) {
	s := New(Viewport{})
	path := []domain.Position{origin, {Lat: 8.5, Lng: 124.7}}
	id := s.AddPolyline(path)
	path[0].Lat = 0

	p, ok := s.Polyline(id)
	require.True(t, ok)
	assert.Equal(t, origin.Lat, p.Path[0].Lat)

	s.RemovePolyline(id)
	_, ok = s.Polyline(id)
	assert.False(t, ok)
}

func TestUpdateCircle(t *testing.T) {
	s := New(Viewport{})
	id := s.AddCircle(Circle{Center: origin, RadiusMeters: 35, Opacity: 0.2})

	require.True(t, s.UpdateCircle(id, origin, 45, 0.4))
	c, ok := s.Circle(id)
	require.True(t, ok)
	assert.Equal(t, 45.0, c.RadiusMeters)
	assert.Equal(t, 0.4, c.Opacity)

	s.RemoveCircle(id)
	assert.False(t, s.UpdateCircle(id, origin, 1, 1))
}

func TestSubscribe(t *testing.T) {
	s := New(Viewport{})
	ch, unsubscribe := s.Subscribe(8)

	id := s.AddMarker(Marker{Kind: MarkerPlace})
	s.SetStreetView(true)
	s.SetStreetView(true) // unchanged, no change published
	s.RemoveMarker(id)

	got := []ChangeOp{(<-ch).Op, (<-ch).Op, (<-ch).Op}
	assert.Equal(t, []ChangeOp{OpMarkerAdd, OpStreetView, OpMarkerRemove}, got)
	assert.Empty(t, ch)

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	s.AddMarker(Marker{})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New(Viewport{})
	ch, unsubscribe := s.Subscribe(1)
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		s.AddMarker(Marker{})
	}
	assert.Len(t, ch, 1)
	assert.Len(t, s.Snapshot().Markers, 10)
}
