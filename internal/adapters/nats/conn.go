package natsadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldtrack/internal/bridge"
)

// Side selects which half of a session's bridge a Conn speaks for.
type Side int

const (
	// HostSide sends commands and listens for events.
	HostSide Side = iota
	// RendererSide sends events and listens for commands.
	RendererSide
)

// CommandSubject carries host -> renderer envelopes of a session.
func CommandSubject(sessionID string) string {
	return fmt.Sprintf("fieldtrack.session.%s.commands", sessionID)
}

// EventSubject carries renderer -> host envelopes of a session.
func EventSubject(sessionID string) string {
	return fmt.Sprintf("fieldtrack.session.%s.events", sessionID)
}

// Connect dials NATS, retrying in the background until the server is up.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Conn implements bridge.Conn over core NATS subjects. Publishing is
// fire-and-forget, matching the bridge contract.
type Conn struct {
	nc     *nats.Conn
	send   string
	listen string

	mu   sync.Mutex
	subs []*nats.Subscription
}

var _ bridge.Conn = (*Conn)(nil)

// NewConn binds one side of session sessionID to nc.
func NewConn(nc *nats.Conn, sessionID string, side Side) *Conn {
	c := &Conn{nc: nc}
	if side == HostSide {
		c.send, c.listen = CommandSubject(sessionID), EventSubject(sessionID)
	} else {
		c.send, c.listen = EventSubject(sessionID), CommandSubject(sessionID)
	}
	return c
}

// Send publishes data on the outbound subject.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.nc.IsClosed() {
		return bridge.ErrClosed
	}
	if err := c.nc.Publish(c.send, data); err != nil {
		return fmt.Errorf("publish %s: %w", c.send, err)
	}
	return nil
}

// Listen subscribes handler to the inbound subject.
func (c *Conn) Listen(handler func(data []byte)) (func(), error) {
	sub, err := c.nc.Subscribe(c.listen, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.listen, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { _ = sub.Unsubscribe() })
	}, nil
}

// Close unsubscribes every listener. The underlying connection is left to
// its owner.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
}
