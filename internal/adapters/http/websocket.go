package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/pkg/metrics"
	"github.com/samirrijal/fieldtrack/internal/scene"
)

// Viewer message tags. Anything else a viewer sends is treated as a command
// envelope for the session.
const (
	msgSnapshot             = "snapshot"
	msgChange               = "change"
	msgResync               = "resync"
	msgStreetViewVisibility = "streetViewVisibility"
)

type viewerOut struct {
	Type     string          `json:"type"`
	Snapshot *scene.Snapshot `json:"snapshot,omitempty"`
	Change   *scene.Change   `json:"change,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type viewerIn struct {
	Type    string `json:"type"`
	Visible *bool  `json:"visible"`
}

// WebSocketHandler streams the scene to a viewer: a snapshot first, then
// every change. Viewers report panorama toggles with
// {"type":"streetViewVisibility","visible":true}, ask for a fresh snapshot
// with {"type":"resync"}, and may send any command envelope.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		log := slog.Default().With("remote", remoteAddr)
		log.Info("ws viewer connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		changes, unsubscribe := deps.Scene.Subscribe(64)
		defer unsubscribe()

		snap := deps.Scene.Snapshot()
		if err := writeJSON(viewerOut{Type: msgSnapshot, Snapshot: &snap}); err != nil {
			return
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case ch, ok := <-changes:
					if !ok {
						return
					}
					if err := writeJSON(viewerOut{Type: msgChange, Change: &ch}); err != nil {
						return
					}
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var in viewerIn
			if err := json.Unmarshal(msg, &in); err != nil {
				_ = writeJSON(viewerOut{Type: "error", Error: "invalid JSON"})
				continue
			}

			switch in.Type {
			case msgStreetViewVisibility:
				if in.Visible == nil {
					_ = writeJSON(viewerOut{Type: "error", Error: "visible is required"})
					continue
				}
				deps.Session.SetStreetViewVisible(*in.Visible)
			case msgResync:
				snap := deps.Scene.Snapshot()
				_ = writeJSON(viewerOut{Type: msgSnapshot, Snapshot: &snap})
			default:
				if _, err := bridge.DecodeCommand(msg); err != nil {
					_ = writeJSON(viewerOut{Type: "error", Error: err.Error()})
					continue
				}
				deps.Session.Dispatch(msg)
			}
		}

		close(done)
		log.Info("ws viewer disconnected")
	}
}
