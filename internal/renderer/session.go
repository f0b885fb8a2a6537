// Package renderer implements the live-tracking renderer session: the user
// marker and its pulse, driving routes to the loaded sites, place search, and
// the immersive street-view state.
//
// A Session is single-threaded. Every input (bridge commands, location fixes,
// timer ticks, completions of geocoding and routing requests) is funnelled
// onto the goroutine running Run, so session state needs no locking.
package renderer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookgo/clock"
	"golang.org/x/time/rate"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

var (
	ErrClosed  = errors.New("renderer: session closed")
	ErrRunning = errors.New("renderer: session already running")
)

// Surface is the map the session draws on. *scene.Scene implements it.
type Surface interface {
	SetView(center domain.Position, zoom float64)
	PanTo(center domain.Position)
	SetStreetView(visible bool)
	AddMarker(m scene.Marker) string
	UpdateMarker(id string, fn func(*scene.Marker)) bool
	RemoveMarker(id string)
	AddPolyline(path []domain.Position) string
	RemovePolyline(id string)
	AddCircle(c scene.Circle) string
	UpdateCircle(id string, center domain.Position, radius, opacity float64) bool
	RemoveCircle(id string)
}

// Searcher answers place queries and resolves the province of a point.
type Searcher interface {
	Search(ctx context.Context, query, province string) []domain.SearchResult
	Province(ctx context.Context, point domain.Position) (string, error)
}

// Config tunes session timing.
type Config struct {
	ThrottleInterval time.Duration
	RedrawInterval   time.Duration
	FrameInterval    time.Duration
	// MinRedrawDistanceMeters gates the periodic redraw on how far the user
	// moved since the previous one. Zero redraws unconditionally.
	MinRedrawDistanceMeters float64
	WatchTimeout            time.Duration
	FocusZoom               float64
	RequestTimeout          time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		ThrottleInterval: time.Second,
		RedrawInterval:   2 * time.Second,
		FrameInterval:    16 * time.Millisecond,
		WatchTimeout:     30 * time.Second,
		FocusZoom:        16,
		RequestTimeout:   10 * time.Second,
	}
}

// Deps are the collaborators of a session. Conn, Search, Router and Location
// may be nil; the matching feature is then inert.
type Deps struct {
	Surface  Surface
	Search   Searcher
	Router   ports.Router
	Location ports.LocationSource
	Conn     bridge.Conn
	Clock    clock.Clock
	Logger   *slog.Logger
}

// ViewMode is the immersive-view state of the session.
type ViewMode int

const (
	ModeNormal ViewMode = iota
	ModeImmersive
)

func (m ViewMode) String() string {
	if m == ModeImmersive {
		return "immersive"
	}
	return "normal"
}

// State is a read-only copy of the session for diagnostics.
type State struct {
	ID     string             `json:"id"`
	Mode   string             `json:"mode"`
	User   domain.TrackedUser `json:"user"`
	Sites  []domain.Site      `json:"sites"`
	Routes []domain.SiteRoute `json:"routes"`
	Pulse  *domain.PulseState `json:"pulse,omitempty"`
}

// Session is one renderer session.
type Session struct {
	id       string
	cfg      Config
	surface  Surface
	searcher Searcher
	router   ports.Router
	location ports.LocationSource
	conn     bridge.Conn
	clock    clock.Clock
	log      *slog.Logger

	exec  executor
	inbox chan func()
	quit  chan struct{}
	done  chan struct{}

	lifecycle sync.Mutex
	started   bool
	closed    atomic.Bool

	// Everything below is owned by the session goroutine.
	user            domain.TrackedUser
	userMarker      string
	status          string
	throttle        *rate.Limiter
	reverseInFlight bool
	pulse           *pulse
	routes          routeState
	placeMarker     string
	mode            ViewMode
	stopWatch       func()
	stopCommands    func()
	redraw          *clock.Ticker
}

// New creates a session. Nothing runs until Run is called.
func New(id string, cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Session{
		id:       id,
		cfg:      cfg,
		surface:  deps.Surface,
		searcher: deps.Search,
		router:   deps.Router,
		location: deps.Location,
		conn:     deps.Conn,
		clock:    deps.Clock,
		log:      deps.Logger.With("session", id),
		inbox:    make(chan func(), 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		throttle: rate.NewLimiter(rate.Every(cfg.ThrottleInterval), 1),
	}
	s.exec = &loopExecutor{inbox: s.inbox, quit: s.quit}
	s.pulse = &pulse{
		clock:    deps.Clock,
		surface:  deps.Surface,
		interval: cfg.FrameInterval,
		anchor:   s.userPosition,
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run subscribes to commands and location, then processes events until ctx
// is cancelled or Teardown is called. The session is torn down on return.
func (s *Session) Run(ctx context.Context) error {
	s.lifecycle.Lock()
	if s.closed.Load() {
		s.lifecycle.Unlock()
		return ErrClosed
	}
	if s.started {
		s.lifecycle.Unlock()
		return ErrRunning
	}
	s.started = true
	s.lifecycle.Unlock()

	defer func() {
		close(s.done)
		s.Teardown()
	}()

	s.setStatus(bridge.StatusAcquiring, "")

	if s.conn != nil {
		stop, err := s.conn.Listen(s.Dispatch)
		if err != nil {
			return err
		}
		s.stopCommands = stop
	}

	if s.location != nil {
		opts := ports.WatchOptions{HighAccuracy: true, Timeout: s.cfg.WatchTimeout}
		stop, err := s.location.Watch(ctx, opts, s.onFix, s.onLocationError)
		if err != nil {
			s.log.Warn("location watch unavailable", "error", err)
			s.setStatus(bridge.StatusUnavailable, err.Error())
		} else {
			s.stopWatch = stop
		}
	}

	s.redraw = s.clock.Ticker(s.cfg.RedrawInterval)
	s.log.Info("renderer session started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.quit:
			return nil
		case fn := <-s.inbox:
			fn()
		case <-s.redraw.C:
			s.periodicRedraw()
		case <-s.pulse.frames():
			s.pulse.frame()
		}
	}
}

// Teardown stops the loop, detaches the command and location listeners,
// stops every timer and removes the session's objects from the surface. It
// blocks until the loop has exited, is idempotent, and is safe to call
// before Run.
func (s *Session) Teardown() {
	s.lifecycle.Lock()
	if s.closed.Load() {
		s.lifecycle.Unlock()
		return
	}
	s.closed.Store(true)
	started := s.started
	close(s.quit)
	s.lifecycle.Unlock()

	if started {
		<-s.done
	}
	s.cleanup()
	s.log.Info("renderer session torn down")
}

func (s *Session) cleanup() {
	if s.stopCommands != nil {
		s.stopCommands()
		s.stopCommands = nil
	}
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	if s.redraw != nil {
		s.redraw.Stop()
		s.redraw = nil
	}
	s.pulse.stop()
	s.clearRoutes()
	if s.placeMarker != "" {
		s.surface.RemoveMarker(s.placeMarker)
		s.placeMarker = ""
	}
	if s.userMarker != "" {
		s.surface.RemoveMarker(s.userMarker)
		s.userMarker = ""
	}
}

// Dispatch decodes a command envelope and queues it. Envelopes that fail to
// decode are dropped. Safe for concurrent use.
func (s *Session) Dispatch(data []byte) {
	cmd, err := bridge.DecodeCommand(data)
	if err != nil {
		metrics.BridgeDropped.WithLabelValues(dropReason(err)).Inc()
		s.log.Debug("dropping envelope", "error", err)
		return
	}
	metrics.BridgeReceived.WithLabelValues(cmd.Type()).Inc()
	s.do(func() { s.handleCommand(cmd) })
}

// SetStreetViewVisible reports a user-driven panorama toggle from the viewer.
func (s *Session) SetStreetViewVisible(visible bool) {
	s.do(func() { s.applyStreetView(visible) })
}

// State returns a copy of the session state, read on the session goroutine.
func (s *Session) State(ctx context.Context) (State, error) {
	if s.closed.Load() {
		return State{}, ErrClosed
	}
	ch := make(chan State, 1)
	s.exec.post(func() { ch <- s.state() })
	select {
	case st := <-ch:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-s.quit:
		return State{}, ErrClosed
	}
}

func (s *Session) state() State {
	st := State{
		ID:     s.id,
		Mode:   s.mode.String(),
		User:   s.user,
		Sites:  cloneSites(s.routes.sites),
		Routes: make([]domain.SiteRoute, 0, len(s.routes.routes)),
	}
	if s.user.CurrentPosition != nil {
		p := *s.user.CurrentPosition
		st.User.CurrentPosition = &p
	}
	for _, r := range s.routes.routes {
		st.Routes = append(st.Routes, *r)
	}
	if s.pulse.state != nil {
		p := *s.pulse.state
		st.Pulse = &p
	}
	return st
}

// do queues fn on the session goroutine; fn is skipped once the session has
// been torn down.
func (s *Session) do(fn func()) {
	s.exec.post(func() {
		if s.closed.Load() {
			return
		}
		fn()
	})
}

func (s *Session) handleCommand(cmd bridge.Command) {
	switch c := cmd.(type) {
	case bridge.SearchCommand:
		s.search(c.Query)
	case bridge.NavigateCommand:
		s.navigate(c.Location, c.Address)
	case bridge.ReturnToUserLocationCommand:
		s.returnToUser()
	case bridge.LoadSitesCommand:
		s.loadSites(c.Sites, triggerSites)
	case bridge.ExitStreetViewCommand:
		s.exitStreetView()
	}
}

func (s *Session) search(query string) {
	province := s.user.LastProvince
	if s.searcher == nil {
		s.emit(bridge.SearchResultsEvent{})
		return
	}
	s.exec.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		results := s.searcher.Search(ctx, query, province)
		s.do(func() { s.emit(bridge.SearchResultsEvent{Results: results}) })
	})
}

func (s *Session) navigate(location domain.Position, address string) {
	if s.placeMarker != "" {
		s.surface.RemoveMarker(s.placeMarker)
	}
	s.placeMarker = s.surface.AddMarker(scene.Marker{
		Kind:     scene.MarkerPlace,
		Position: location.WithoutHeading(),
		Title:    address,
	})
	s.surface.SetView(location, s.cfg.FocusZoom)
}

func (s *Session) returnToUser() {
	if s.placeMarker != "" {
		s.surface.RemoveMarker(s.placeMarker)
		s.placeMarker = ""
	}
	if s.user.CurrentPosition != nil {
		s.surface.SetView(*s.user.CurrentPosition, s.cfg.FocusZoom)
	}
}

func (s *Session) exitStreetView() {
	if !s.applyStreetView(false) && s.user.CurrentPosition != nil {
		s.surface.PanTo(*s.user.CurrentPosition)
	}
}

// applyStreetView moves between Normal and Immersive and reports whether the
// mode changed. Entering Normal recenters on the user when known.
func (s *Session) applyStreetView(visible bool) bool {
	s.surface.SetStreetView(visible)

	next := ModeNormal
	if visible {
		next = ModeImmersive
	}
	if next == s.mode {
		return false
	}
	s.mode = next
	s.emit(bridge.StreetViewChangedEvent{Visible: visible})

	if next == ModeNormal && s.user.CurrentPosition != nil {
		s.surface.PanTo(*s.user.CurrentPosition)
	}
	return true
}

func (s *Session) setStatus(status, message string) {
	if s.status == status && status != bridge.StatusUnavailable {
		return
	}
	s.status = status
	s.emit(bridge.TrackingStatusEvent{Status: status, Message: message})
}

// emit sends an event to the host. Failures are logged and otherwise ignored.
func (s *Session) emit(e bridge.Event) {
	if s.conn == nil {
		return
	}
	if err := bridge.SendEvent(context.Background(), s.conn, e); err != nil {
		metrics.BridgeDropped.WithLabelValues("send_failed").Inc()
		s.log.Debug("event not sent", "type", e.Type(), "error", err)
		return
	}
	metrics.BridgeSent.WithLabelValues(e.Type()).Inc()
}

func (s *Session) userPosition() (domain.Position, bool) {
	if s.user.CurrentPosition == nil {
		return domain.Position{}, false
	}
	return *s.user.CurrentPosition, true
}

func dropReason(err error) string {
	if errors.Is(err, bridge.ErrUnknownType) {
		return "unknown_type"
	}
	return "malformed"
}
