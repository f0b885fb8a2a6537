// Package mqtt implements ports.LocationSource over device location messages
// published to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/facebookgo/clock"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
)

// TopicFor returns the location topic of a device.
func TopicFor(deviceID string) string {
	return fmt.Sprintf("fieldtrack/devices/%s/location", deviceID)
}

// Subscriber is the part of mqtt.Client the location source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Unsubscribe(topics ...string) pahomqtt.Token
}

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect dials the broker with automatic reconnects.
func Connect(o Options) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			slog.Warn("mqtt connection lost", "error", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return nil, fmt.Errorf("mqtt connect: timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}

// message is the payload published by a device: either a fix or an error.
type message struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds

	Error   string `json:"error"`
	Message string `json:"message"`
}

// LocationSource watches the location topic of one device.
type LocationSource struct {
	client Subscriber
	topic  string
	clock  clock.Clock
}

// NewLocationSource creates a source for deviceID. clk may be nil.
func NewLocationSource(client Subscriber, deviceID string, clk clock.Clock) *LocationSource {
	if clk == nil {
		clk = clock.New()
	}
	return &LocationSource{client: client, topic: TopicFor(deviceID), clock: clk}
}

// Watch subscribes to the device topic. onError receives a LocationError
// with code timeout whenever opts.Timeout passes without a fix.
func (l *LocationSource) Watch(ctx context.Context, opts ports.WatchOptions, onFix func(domain.Fix), onError func(error)) (func(), error) {
	w := &watcher{
		clock:   l.clock,
		opts:    opts,
		onFix:   onFix,
		onError: onError,
	}

	var qos byte
	if opts.HighAccuracy {
		qos = 1
	}
	token := l.client.Subscribe(l.topic, qos, w.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", l.topic, err)
	}
	w.arm()

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			w.stop()
			l.client.Unsubscribe(l.topic)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop, nil
}

type watcher struct {
	clock   clock.Clock
	opts    ports.WatchOptions
	onFix   func(domain.Fix)
	onError func(error)

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
}

func (w *watcher) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	var raw message
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		metrics.FixesDropped.WithLabelValues("invalid").Inc()
		slog.Debug("invalid location message", "topic", msg.Topic(), "error", err)
		return
	}

	if raw.Error != "" {
		w.report(&domain.LocationError{Code: errorCode(raw.Error), Message: raw.Message})
		return
	}

	if err := validateMessage(&raw); err != nil {
		metrics.FixesDropped.WithLabelValues("invalid").Inc()
		slog.Debug("location validation error", "topic", msg.Topic(), "error", err)
		return
	}

	ts := time.UnixMilli(raw.Timestamp)
	if msg.Retained() {
		if w.opts.MaximumAge <= 0 || w.clock.Now().Sub(ts) > w.opts.MaximumAge {
			metrics.FixesDropped.WithLabelValues("stale").Inc()
			return
		}
	}

	fix := domain.Fix{
		Position:  domain.Position{Lat: raw.Latitude, Lng: raw.Longitude, Heading: raw.Heading},
		Accuracy:  raw.Accuracy,
		Timestamp: ts,
		Cached:    msg.Retained(),
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.rearmLocked()
	w.mu.Unlock()

	w.onFix(fix)
}

func (w *watcher) report(err error) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if !stopped {
		w.onError(err)
	}
}

func (w *watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rearmLocked()
}

// rearmLocked restarts the acquisition timeout. Callers hold mu.
func (w *watcher) rearmLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.opts.Timeout <= 0 || w.stopped {
		return
	}
	w.timer = w.clock.AfterFunc(w.opts.Timeout, w.timedOut)
}

func (w *watcher) timedOut() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	w.onError(&domain.LocationError{
		Code:    domain.LocationTimeout,
		Message: fmt.Sprintf("no fix within %s", w.opts.Timeout),
	})
	w.arm()
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func validateMessage(m *message) error {
	if m.Latitude < -90 || m.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if m.Heading != nil && (*m.Heading < 0 || *m.Heading > 360) {
		return fmt.Errorf("heading: must be between 0 and 360")
	}
	if m.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}

func errorCode(s string) domain.LocationErrorCode {
	switch domain.LocationErrorCode(s) {
	case domain.LocationPermissionDenied, domain.LocationTimeout:
		return domain.LocationErrorCode(s)
	default:
		return domain.LocationPositionUnavailable
	}
}
