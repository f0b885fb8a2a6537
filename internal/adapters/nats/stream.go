package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// StreamName is the JetStream stream recording every session envelope.
const StreamName = "FIELDTRACK_SESSIONS"

// EnsureStream creates or updates the session history stream. Envelopes are
// still published on core subjects; the stream only records them.
func EnsureStream(nc *nats.Conn) error {
	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"fieldtrack.session.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// The stream may already exist; update it instead.
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// Replay delivers the recorded events of a session, oldest first, then keeps
// following new ones until ctx is done.
func Replay(ctx context.Context, nc *nats.Conn, sessionID string, handler func(data []byte)) error {
	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}

	sub, err := js.Subscribe(EventSubject(sessionID), func(msg *nats.Msg) {
		handler(msg.Data)
	},
		nats.OrderedConsumer(),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("replay %s: %w", sessionID, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}
