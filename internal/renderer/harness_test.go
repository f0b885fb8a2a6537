package renderer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

// testExecutor runs posted callbacks inline. Spawned work runs inline too
// unless queue is set, in which case it waits for runSpawned.
type testExecutor struct {
	queue   bool
	spawned []func()
}

func (e *testExecutor) post(fn func()) { fn() }

func (e *testExecutor) spawn(fn func()) {
	if e.queue {
		e.spawned = append(e.spawned, fn)
		return
	}
	fn()
}

// runSpawned runs and forgets queued work in submission order.
func (e *testExecutor) runSpawned() {
	for len(e.spawned) > 0 {
		fn := e.spawned[0]
		e.spawned = e.spawned[1:]
		fn()
	}
}

type mockRouter struct {
	RouteFn func(ctx context.Context, origin, destination domain.Position) (*domain.RouteResult, error)
}

func (m *mockRouter) Route(ctx context.Context, origin, destination domain.Position) (*domain.RouteResult, error) {
	return m.RouteFn(ctx, origin, destination)
}

type mockSearcher struct {
	SearchFn   func(ctx context.Context, query, province string) []domain.SearchResult
	ProvinceFn func(ctx context.Context, point domain.Position) (string, error)
}

func (m *mockSearcher) Search(ctx context.Context, query, province string) []domain.SearchResult {
	if m.SearchFn == nil {
		return []domain.SearchResult{}
	}
	return m.SearchFn(ctx, query, province)
}

func (m *mockSearcher) Province(ctx context.Context, point domain.Position) (string, error) {
	if m.ProvinceFn == nil {
		return "", nil
	}
	return m.ProvinceFn(ctx, point)
}

// recordingConn captures every event the session sends.
type recordingConn struct {
	mu     sync.Mutex
	events []bridge.Event
}

func (c *recordingConn) Send(_ context.Context, data []byte) error {
	e, err := bridge.DecodeEvent(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	return nil
}

func (c *recordingConn) Listen(func([]byte)) (func(), error) {
	return func() {}, nil
}

func (c *recordingConn) sent() []bridge.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bridge.Event(nil), c.events...)
}

type harness struct {
	s      *Session
	scene  *scene.Scene
	clock  *clock.Mock
	exec   *testExecutor
	conn   *recordingConn
	router *mockRouter
	search *mockSearcher
}

var (
	cdo    = domain.Position{Lat: 8.4542, Lng: 124.6319}
	cdo2   = domain.Position{Lat: 8.4600, Lng: 124.6400}
	iligan = domain.Site{ID: "A", Name: "Iligan Depot", Latitude: 8.2280, Longitude: 124.2452}
	bukid  = domain.Site{ID: "B", Name: "Malaybalay Yard", Latitude: 8.1575, Longitude: 125.1278}
)

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		scene: scene.New(scene.Viewport{Zoom: 5}),
		clock: clock.NewMock(),
		exec:  &testExecutor{},
		conn:  &recordingConn{},
		router: &mockRouter{RouteFn: func(_ context.Context, _, dest domain.Position) (*domain.RouteResult, error) {
			return &domain.RouteResult{DistanceMeters: 1500, DurationSeconds: 3725, Path: []domain.Position{dest}}, nil
		}},
		search: &mockSearcher{},
	}
	h.s = New("test", DefaultConfig(), Deps{
		Surface: h.scene,
		Search:  h.search,
		Router:  h.router,
		Conn:    h.conn,
		Clock:   h.clock,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h.s.exec = h.exec
	t.Cleanup(h.s.Teardown)
	return h
}

func (h *harness) fix(p domain.Position) {
	h.s.onFix(domain.Fix{Position: p, Accuracy: 5, Timestamp: h.clock.Now()})
}

func (h *harness) dispatch(t *testing.T, c bridge.Command) {
	t.Helper()
	data, err := bridge.EncodeCommand(c)
	if err != nil {
		t.Fatalf("encode %s: %v", c.Type(), err)
	}
	h.s.Dispatch(data)
}

func (h *harness) markers(kind scene.MarkerKind) []scene.Marker {
	var out []scene.Marker
	for _, m := range h.scene.Snapshot().Markers {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func heading(v float64) *float64 { return &v }
