package renderer

import (
	"context"
	"fmt"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/pkg/geospatial"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

const placeholderLabel = "Calculating route..."

type redrawTrigger string

const (
	triggerSites    redrawTrigger = "sites"
	triggerPending  redrawTrigger = "pending"
	triggerPeriodic redrawTrigger = "periodic"
)

// routeState holds the working site set and its rendered routes.
type routeState struct {
	sites      []domain.Site
	pending    []domain.Site
	hasPending bool
	routes     []*domain.SiteRoute
	generation uint64
	lastOrigin *domain.Position
}

// loadSites replaces the working site set. Before the first fix the set is
// parked until a position is known.
func (s *Session) loadSites(sites []domain.Site, trigger redrawTrigger) {
	if s.user.CurrentPosition == nil {
		s.routes.pending = cloneSites(sites)
		s.routes.hasPending = true
		s.log.Debug("sites deferred until first fix", "count", len(sites))
		return
	}

	changed := !sameSiteIDs(s.routes.sites, sites)
	s.routes.sites = cloneSites(sites)
	if changed {
		s.redrawRoutes(trigger)
	}
}

func (s *Session) periodicRedraw() {
	cur := s.user.CurrentPosition
	if cur == nil || len(s.routes.sites) == 0 {
		return
	}
	if gate := s.cfg.MinRedrawDistanceMeters; gate > 0 && s.routes.lastOrigin != nil {
		if !geospatial.MovedAtLeast(*s.routes.lastOrigin, *cur, gate) {
			return
		}
	}
	s.redrawRoutes(triggerPeriodic)
}

// redrawRoutes removes every site marker and polyline, then rebuilds one
// route per site from the current position.
func (s *Session) redrawRoutes(trigger redrawTrigger) {
	origin := s.user.CurrentPosition.WithoutHeading()

	s.clearRoutes()
	s.routes.generation++
	s.routes.lastOrigin = &origin
	metrics.RouteRedraws.WithLabelValues(string(trigger)).Inc()

	gen := s.routes.generation
	for _, site := range s.routes.sites {
		r := &domain.SiteRoute{Site: site, Label: placeholderLabel}
		r.MarkerID = s.surface.AddMarker(scene.Marker{
			Kind:     scene.MarkerSite,
			Position: site.Position(),
			Title:    siteTitle(site, placeholderLabel),
			Card:     &scene.InfoCard{Title: site.Name, Time: "--", Distance: "--"},
		})
		s.routes.routes = append(s.routes.routes, r)
		s.requestRoute(gen, r, origin)
	}
}

// requestRoute computes the route for r off the session goroutine. origin is
// the position captured when the redraw started; the completion stitches the
// path to that same origin even if newer fixes have arrived since.
func (s *Session) requestRoute(gen uint64, r *domain.SiteRoute, origin domain.Position) {
	if s.router == nil {
		return
	}
	dest := r.Site.Position()
	s.exec.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		res, err := s.router.Route(ctx, origin, dest)
		s.do(func() { s.applyRoute(gen, r, origin, res, err) })
	})
}

func (s *Session) applyRoute(gen uint64, r *domain.SiteRoute, origin domain.Position, res *domain.RouteResult, err error) {
	if gen != s.routes.generation {
		metrics.RouteRequests.WithLabelValues("stale").Inc()
		return
	}
	if err != nil || res == nil {
		metrics.RouteRequests.WithLabelValues("error").Inc()
		s.log.Warn("route failed", "site", r.Site.ID, "error", err)
		return
	}
	metrics.RouteRequests.WithLabelValues("ok").Inc()

	duration := FormatDuration(res.DurationSeconds)
	distance := FormatDistance(res.DistanceMeters)

	r.DistanceMeters = res.DistanceMeters
	r.DurationSeconds = res.DurationSeconds
	r.Path = StitchPath(origin, res.Path, r.Site.Position())
	r.Label = fmt.Sprintf("%s · %s", duration, distance)
	r.Resolved = true

	s.surface.UpdateMarker(r.MarkerID, func(m *scene.Marker) {
		m.Title = siteTitle(r.Site, r.Label)
		m.Card = &scene.InfoCard{Title: r.Site.Name, Time: duration, Distance: distance}
	})
	if r.PolylineID != "" {
		s.surface.RemovePolyline(r.PolylineID)
	}
	r.PolylineID = s.surface.AddPolyline(r.Path)
}

func (s *Session) clearRoutes() {
	for _, r := range s.routes.routes {
		s.surface.RemoveMarker(r.MarkerID)
		if r.PolylineID != "" {
			s.surface.RemovePolyline(r.PolylineID)
		}
	}
	s.routes.routes = nil
}

// StitchPath anchors a routed path to origin and dest: origin is prepended,
// and dest appended unless the path already ends there.
func StitchPath(origin domain.Position, path []domain.Position, dest domain.Position) []domain.Position {
	out := make([]domain.Position, 0, len(path)+2)
	out = append(out, origin.WithoutHeading())
	for _, p := range path {
		out = append(out, p.WithoutHeading())
	}
	if !out[len(out)-1].SamePoint(dest) {
		out = append(out, dest.WithoutHeading())
	}
	return out
}

func siteTitle(site domain.Site, label string) string {
	if site.Name == "" {
		return label
	}
	return site.Name + " (" + label + ")"
}

// sameSiteIDs compares two site sets by id, position by position.
func sameSiteIDs(a, b []domain.Site) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func cloneSites(sites []domain.Site) []domain.Site {
	if sites == nil {
		return nil
	}
	return append([]domain.Site(nil), sites...)
}
