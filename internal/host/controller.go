// Package host is the application side of the bridge: it owns the search
// box, the result list, the tracking banner and the immersive-view toggle,
// issues commands to a renderer session and folds its events into state.
package host

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
)

// ErrNoSelection is returned by Select for an index outside the result list.
var ErrNoSelection = errors.New("host: no such search result")

// State is a copy of what the host UI shows.
type State struct {
	Query       string                `json:"query"`
	Results     []domain.SearchResult `json:"results"`
	Selected    *domain.SearchResult  `json:"selected,omitempty"`
	Tracking    string                `json:"tracking"`
	Banner      string                `json:"banner,omitempty"`
	StreetView  bool                  `json:"street_view"`
	SearchCount int                   `json:"search_count"`
}

// Controller drives one renderer session through conn.
type Controller struct {
	conn bridge.Conn
	log  *slog.Logger

	mu    sync.RWMutex
	state State
	subs  []chan bridge.Event
	stop  func()
}

// New creates a controller. Call Start to begin consuming events.
func New(conn bridge.Conn, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		conn:  conn,
		log:   log.With("component", "host"),
		state: State{Results: []domain.SearchResult{}},
	}
}

// Start listens for renderer events. Calling it twice is a no-op.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}
	stop, err := c.conn.Listen(c.handle)
	if err != nil {
		return err
	}
	c.stop = stop
	return nil
}

// Close stops listening and closes every event subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

// Events returns a channel receiving every decoded event. Events are dropped
// for a subscriber whose buffer is full.
func (c *Controller) Events(buffer int) <-chan bridge.Event {
	ch := make(chan bridge.Event, buffer)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// State returns a copy of the current host state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.state
	st.Results = append([]domain.SearchResult{}, c.state.Results...)
	if c.state.Selected != nil {
		sel := *c.state.Selected
		st.Selected = &sel
	}
	return st
}

// Search records the query text and asks the renderer for results.
func (c *Controller) Search(ctx context.Context, query string) error {
	c.mu.Lock()
	c.state.Query = query
	c.mu.Unlock()
	return c.send(ctx, bridge.SearchCommand{Query: strings.TrimSpace(query)})
}

// Select navigates to the i-th result of the last result list.
func (c *Controller) Select(ctx context.Context, i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.state.Results) {
		c.mu.Unlock()
		return ErrNoSelection
	}
	r := c.state.Results[i]
	c.state.Selected = &r
	c.mu.Unlock()
	return c.Navigate(ctx, r.Location, r.FullAddress)
}

// Navigate drops a place marker at location.
func (c *Controller) Navigate(ctx context.Context, location domain.Position, address string) error {
	return c.send(ctx, bridge.NavigateCommand{Location: location, Address: address})
}

// ReturnToUser clears the selection and recenters on the tracked user.
func (c *Controller) ReturnToUser(ctx context.Context) error {
	c.mu.Lock()
	c.state.Selected = nil
	c.mu.Unlock()
	return c.send(ctx, bridge.ReturnToUserLocationCommand{})
}

// LoadSites replaces the renderer's site set.
func (c *Controller) LoadSites(ctx context.Context, sites []domain.Site) error {
	if sites == nil {
		sites = []domain.Site{}
	}
	return c.send(ctx, bridge.LoadSitesCommand{Sites: sites})
}

// LoadCompanySites reads the sites of companyID from repo and loads them.
func (c *Controller) LoadCompanySites(ctx context.Context, repo ports.SiteRepository, companyID string) ([]domain.Site, error) {
	sites, err := repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return sites, c.LoadSites(ctx, sites)
}

// ExitStreetView leaves the immersive view.
func (c *Controller) ExitStreetView(ctx context.Context) error {
	return c.send(ctx, bridge.ExitStreetViewCommand{})
}

func (c *Controller) send(ctx context.Context, cmd bridge.Command) error {
	if err := bridge.SendCommand(ctx, c.conn, cmd); err != nil {
		c.log.Warn("command not sent", "type", cmd.Type(), "error", err)
		return err
	}
	return nil
}

func (c *Controller) handle(data []byte) {
	e, err := bridge.DecodeEvent(data)
	if err != nil {
		c.log.Debug("dropping envelope", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case bridge.SearchResultsEvent:
		c.state.Results = append([]domain.SearchResult{}, ev.Results...)
		c.state.SearchCount++
	case bridge.StreetViewChangedEvent:
		c.state.StreetView = ev.Visible
	case bridge.TrackingStatusEvent:
		c.state.Tracking = ev.Status
		c.state.Banner = banner(ev)
	}

	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func banner(ev bridge.TrackingStatusEvent) string {
	switch ev.Status {
	case bridge.StatusAcquiring:
		return "Getting your location..."
	case bridge.StatusUnavailable:
		if ev.Message != "" {
			return "Location unavailable: " + ev.Message
		}
		return "Location unavailable"
	default:
		return ""
	}
}
