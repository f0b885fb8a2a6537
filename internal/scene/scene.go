// Package scene is the retained-mode map surface owned by a renderer session.
//
// The session mutates the scene from its own goroutine. Viewers read
// snapshots and follow a stream of changes; a viewer that falls behind loses
// changes and is expected to resync from Snapshot.
package scene

import (
	"fmt"
	"sync"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

// MarkerKind distinguishes what a marker stands for.
type MarkerKind string

const (
	MarkerUser  MarkerKind = "user"
	MarkerSite  MarkerKind = "site"
	MarkerPlace MarkerKind = "place"
)

// Viewport is the visible camera.
type Viewport struct {
	Center domain.Position `json:"center"`
	Zoom   float64         `json:"zoom"`
}

// InfoCard is the two-column travel time / distance card of a marker.
type InfoCard struct {
	Title    string `json:"title"`
	Time     string `json:"time"`
	Distance string `json:"distance"`
}

type Marker struct {
	ID       string          `json:"id"`
	Kind     MarkerKind      `json:"kind"`
	Position domain.Position `json:"position"`
	Title    string          `json:"title,omitempty"`
	Rotation *float64        `json:"rotation,omitempty"`
	Card     *InfoCard       `json:"card,omitempty"`
}

type Polyline struct {
	ID   string            `json:"id"`
	Path []domain.Position `json:"path"`
}

type Circle struct {
	ID           string          `json:"id"`
	Center       domain.Position `json:"center"`
	RadiusMeters float64         `json:"radius_meters"`
	Opacity      float64         `json:"opacity"`
}

// Snapshot is a consistent copy of the whole scene.
type Snapshot struct {
	Viewport   Viewport   `json:"viewport"`
	StreetView bool       `json:"street_view"`
	Markers    []Marker   `json:"markers"`
	Polylines  []Polyline `json:"polylines"`
	Circles    []Circle   `json:"circles"`
}

// ChangeOp names a scene mutation.
type ChangeOp string

const (
	OpView           ChangeOp = "view"
	OpStreetView     ChangeOp = "streetView"
	OpMarkerAdd      ChangeOp = "markerAdd"
	OpMarkerUpdate   ChangeOp = "markerUpdate"
	OpMarkerRemove   ChangeOp = "markerRemove"
	OpPolylineAdd    ChangeOp = "polylineAdd"
	OpPolylineRemove ChangeOp = "polylineRemove"
	OpCircleAdd      ChangeOp = "circleAdd"
	OpCircleUpdate   ChangeOp = "circleUpdate"
	OpCircleRemove   ChangeOp = "circleRemove"
)

// Change is one mutation delivered to subscribers.
type Change struct {
	Op         ChangeOp  `json:"op"`
	ID         string    `json:"id,omitempty"`
	Viewport   *Viewport `json:"viewport,omitempty"`
	StreetView *bool     `json:"street_view,omitempty"`
	Marker     *Marker   `json:"marker,omitempty"`
	Polyline   *Polyline `json:"polyline,omitempty"`
	Circle     *Circle   `json:"circle,omitempty"`
}

// Scene holds every object drawn on the map.
type Scene struct {
	mu         sync.RWMutex
	view       Viewport
	streetView bool
	markers    map[string]*Marker
	polylines  map[string]*Polyline
	circles    map[string]*Circle
	order      []string
	seq        int

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int
}

// New creates an empty scene with the given initial viewport.
func New(initial Viewport) *Scene {
	return &Scene{
		view:      initial,
		markers:   make(map[string]*Marker),
		polylines: make(map[string]*Polyline),
		circles:   make(map[string]*Circle),
		subs:      make(map[int]chan Change),
	}
}

// SetView moves the camera to center at the given zoom.
func (s *Scene) SetView(center domain.Position, zoom float64) {
	s.mu.Lock()
	s.view = Viewport{Center: center.WithoutHeading(), Zoom: zoom}
	v := s.view
	s.mu.Unlock()
	s.publish(Change{Op: OpView, Viewport: &v})
}

// PanTo recenters without changing zoom.
func (s *Scene) PanTo(center domain.Position) {
	s.mu.Lock()
	s.view.Center = center.WithoutHeading()
	v := s.view
	s.mu.Unlock()
	s.publish(Change{Op: OpView, Viewport: &v})
}

// View returns the current camera.
func (s *Scene) View() Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetStreetView toggles the immersive ground-level panorama.
func (s *Scene) SetStreetView(visible bool) {
	s.mu.Lock()
	if s.streetView == visible {
		s.mu.Unlock()
		return
	}
	s.streetView = visible
	s.mu.Unlock()
	s.publish(Change{Op: OpStreetView, StreetView: &visible})
}

// StreetView reports whether the panorama is visible.
func (s *Scene) StreetView() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streetView
}

// AddMarker stores m under a fresh id and returns it.
func (s *Scene) AddMarker(m Marker) string {
	s.mu.Lock()
	m.ID = s.newID("marker")
	stored := m
	s.markers[m.ID] = &stored
	s.order = append(s.order, m.ID)
	s.mu.Unlock()
	s.publish(Change{Op: OpMarkerAdd, ID: m.ID, Marker: &m})
	return m.ID
}

// UpdateMarker applies fn to the marker in place. It reports false when the
// marker does not exist.
func (s *Scene) UpdateMarker(id string, fn func(*Marker)) bool {
	s.mu.Lock()
	m, ok := s.markers[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(m)
	m.ID = id
	cp := *m
	s.mu.Unlock()
	s.publish(Change{Op: OpMarkerUpdate, ID: id, Marker: &cp})
	return true
}

// Marker returns a copy of the marker with the given id.
func (s *Scene) Marker(id string) (Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[id]
	if !ok {
		return Marker{}, false
	}
	return *m, true
}

func (s *Scene) RemoveMarker(id string) {
	s.mu.Lock()
	_, ok := s.markers[id]
	delete(s.markers, id)
	s.compact()
	s.mu.Unlock()
	if ok {
		s.publish(Change{Op: OpMarkerRemove, ID: id})
	}
}

// AddPolyline stores a copy of path and returns its id.
func (s *Scene) AddPolyline(path []domain.Position) string {
	s.mu.Lock()
	p := Polyline{ID: s.newID("polyline"), Path: append([]domain.Position(nil), path...)}
	stored := p
	s.polylines[p.ID] = &stored
	s.order = append(s.order, p.ID)
	s.mu.Unlock()
	s.publish(Change{Op: OpPolylineAdd, ID: p.ID, Polyline: &p})
	return p.ID
}

func (s *Scene) Polyline(id string) (Polyline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polylines[id]
	if !ok {
		return Polyline{}, false
	}
	return *p, true
}

func (s *Scene) RemovePolyline(id string) {
	s.mu.Lock()
	_, ok := s.polylines[id]
	delete(s.polylines, id)
	s.compact()
	s.mu.Unlock()
	if ok {
		s.publish(Change{Op: OpPolylineRemove, ID: id})
	}
}

func (s *Scene) AddCircle(c Circle) string {
	s.mu.Lock()
	c.ID = s.newID("circle")
	stored := c
	s.circles[c.ID] = &stored
	s.order = append(s.order, c.ID)
	s.mu.Unlock()
	s.publish(Change{Op: OpCircleAdd, ID: c.ID, Circle: &c})
	return c.ID
}

// UpdateCircle mutates center, radius and opacity of an existing circle.
func (s *Scene) UpdateCircle(id string, center domain.Position, radius, opacity float64) bool {
	s.mu.Lock()
	c, ok := s.circles[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	c.Center = center.WithoutHeading()
	c.RadiusMeters = radius
	c.Opacity = opacity
	cp := *c
	s.mu.Unlock()
	s.publish(Change{Op: OpCircleUpdate, ID: id, Circle: &cp})
	return true
}

func (s *Scene) Circle(id string) (Circle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.circles[id]
	if !ok {
		return Circle{}, false
	}
	return *c, true
}

func (s *Scene) RemoveCircle(id string) {
	s.mu.Lock()
	_, ok := s.circles[id]
	delete(s.circles, id)
	s.compact()
	s.mu.Unlock()
	if ok {
		s.publish(Change{Op: OpCircleRemove, ID: id})
	}
}

// Snapshot copies the scene. Objects are listed in creation order.
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Viewport:   s.view,
		StreetView: s.streetView,
		Markers:    []Marker{},
		Polylines:  []Polyline{},
		Circles:    []Circle{},
	}
	for _, id := range s.order {
		if m, ok := s.markers[id]; ok {
			snap.Markers = append(snap.Markers, *m)
		} else if p, ok := s.polylines[id]; ok {
			snap.Polylines = append(snap.Polylines, *p)
		} else if c, ok := s.circles[id]; ok {
			snap.Circles = append(snap.Circles, *c)
		}
	}
	return snap
}

// compact drops removed ids from the creation order once they dominate it.
// Callers hold mu.
func (s *Scene) compact() {
	alive := len(s.markers) + len(s.polylines) + len(s.circles)
	if len(s.order) < 64 || len(s.order) < 2*alive {
		return
	}
	live := s.order[:0]
	for _, id := range s.order {
		_, m := s.markers[id]
		_, p := s.polylines[id]
		_, c := s.circles[id]
		if m || p || c {
			live = append(live, id)
		}
	}
	s.order = live
}

// Subscribe streams changes on a channel with the given buffer. The returned
// func unsubscribes and closes the channel.
func (s *Scene) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Scene) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (s *Scene) newID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}
