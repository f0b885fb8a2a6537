package renderer

import (
	"math"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

// pulseHalfCycle is the time for θ to advance by π; a full breath takes twice
// as long.
const pulseHalfCycle = 1500 * time.Millisecond

// PulseAt samples the breathing circle at the given time since the animation
// started.
func PulseAt(elapsed time.Duration) (radiusMeters, opacity float64) {
	theta := float64(elapsed) / float64(pulseHalfCycle) * math.Pi
	return PulseRadius(theta), PulseOpacity(theta)
}

// PulseRadius oscillates between 25 and 45 meters.
func PulseRadius(theta float64) float64 {
	return 35 + 10*math.Sin(theta)
}

// PulseOpacity oscillates between 0.2 and 0.4, peaking when the radius does.
func PulseOpacity(theta float64) float64 {
	s := math.Sin(theta)
	return 0.2 + 0.2*s*s
}

// pulse animates the breathing circle around the user marker. It is confined
// to the session goroutine.
type pulse struct {
	clock    clock.Clock
	surface  Surface
	interval time.Duration
	anchor   func() (domain.Position, bool)

	ticker    *clock.Ticker
	startedAt time.Time
	circleID  string
	state     *domain.PulseState
}

func (p *pulse) running() bool {
	return p.ticker != nil
}

// start begins the frame loop. Calling it while running is a no-op.
func (p *pulse) start() {
	if p.ticker != nil {
		return
	}
	p.startedAt = p.clock.Now()
	p.ticker = p.clock.Ticker(p.interval)
}

// frames returns the tick channel, or nil when stopped so a select on it
// blocks forever.
func (p *pulse) frames() <-chan time.Time {
	if p.ticker == nil {
		return nil
	}
	return p.ticker.C
}

func (p *pulse) frame() {
	if p.ticker == nil {
		return
	}
	pos, ok := p.anchor()
	if !ok {
		return
	}

	radius, opacity := PulseAt(p.clock.Now().Sub(p.startedAt))
	center := pos.WithoutHeading()
	if p.circleID == "" {
		p.circleID = p.surface.AddCircle(scene.Circle{
			Center:       center,
			RadiusMeters: radius,
			Opacity:      opacity,
		})
	} else {
		p.surface.UpdateCircle(p.circleID, center, radius, opacity)
	}
	p.state = &domain.PulseState{RadiusMeters: radius, Opacity: opacity, AnchoredAt: center}
}

// stop cancels the frame loop and removes the overlay. Safe to call when
// never started and more than once.
func (p *pulse) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
	if p.circleID != "" {
		p.surface.RemoveCircle(p.circleID)
		p.circleID = ""
	}
	p.state = nil
}
