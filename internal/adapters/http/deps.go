package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldtrack/internal/core/ports"
	"github.com/samirrijal/fieldtrack/internal/renderer"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

// Session is the part of a renderer session the HTTP surface drives.
type Session interface {
	ID() string
	Dispatch(data []byte)
	SetStreetViewVisible(visible bool)
	State(ctx context.Context) (renderer.State, error)
}

// Broker reports whether the location broker connection is up.
type Broker interface {
	IsConnectionOpen() bool
}

// Pinger is a backing store that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Session Session
	Scene   *scene.Scene
	Sites   ports.SiteRepository
	NATS    *nats.Conn
	Cache   ports.CacheService
	MQTT    Broker
	DB      Pinger
}
