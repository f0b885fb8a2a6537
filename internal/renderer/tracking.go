package renderer

import (
	"context"
	"errors"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

func (s *Session) onFix(fix domain.Fix) {
	s.do(func() { s.handleFix(fix) })
}

func (s *Session) onLocationError(err error) {
	s.do(func() { s.handleLocationError(err) })
}

// handleFix applies one location sample. Samples arriving within the
// throttle interval of the last accepted one are discarded.
func (s *Session) handleFix(fix domain.Fix) {
	if !s.throttle.AllowN(s.clock.Now(), 1) {
		metrics.FixesDropped.WithLabelValues("throttled").Inc()
		return
	}
	metrics.FixesAccepted.Inc()

	pos := fix.Position
	first := s.user.CurrentPosition == nil
	s.user.CurrentPosition = &pos

	if first {
		s.userMarker = s.surface.AddMarker(scene.Marker{
			Kind:     scene.MarkerUser,
			Position: pos.WithoutHeading(),
			Title:    "You are here",
			Rotation: copyHeading(pos.Heading),
		})
		s.pulse.start()
	} else {
		s.surface.UpdateMarker(s.userMarker, func(m *scene.Marker) {
			m.Position = pos.WithoutHeading()
			if pos.Heading != nil {
				m.Rotation = copyHeading(pos.Heading)
			}
		})
	}

	// Only the very first fix moves the camera; later ones must not undo a
	// manual pan.
	if !s.user.HasCenteredOnce {
		s.surface.SetView(pos, s.cfg.FocusZoom)
		s.user.HasCenteredOnce = true
	}

	s.setStatus(bridge.StatusLive, "")
	s.lookupProvince(pos)

	if first && s.routes.hasPending {
		sites := s.routes.pending
		s.routes.pending = nil
		s.routes.hasPending = false
		s.loadSites(sites, triggerPending)
	}
}

func (s *Session) handleLocationError(err error) {
	code := "unknown"
	var locErr *domain.LocationError
	if errors.As(err, &locErr) {
		code = string(locErr.Code)
	}
	metrics.LocationErrors.WithLabelValues(code).Inc()
	s.log.Warn("location error", "code", code, "error", err)
	s.setStatus(bridge.StatusUnavailable, err.Error())
}

// lookupProvince reverse geocodes pos in the background. One lookup runs at
// a time; failures keep the previous province.
func (s *Session) lookupProvince(pos domain.Position) {
	if s.searcher == nil || s.reverseInFlight {
		return
	}
	s.reverseInFlight = true

	point := pos.WithoutHeading()
	s.exec.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		province, err := s.searcher.Province(ctx, point)
		s.do(func() {
			s.reverseInFlight = false
			if err != nil {
				s.log.Debug("reverse geocoding failed", "error", err)
				return
			}
			if province != "" {
				s.user.LastProvince = province
			}
		})
	})
}

func copyHeading(h *float64) *float64 {
	if h == nil {
		return nil
	}
	v := *h
	return &v
}
