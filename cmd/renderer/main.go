package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/samirrijal/fieldtrack/internal/adapters/google"
	"github.com/samirrijal/fieldtrack/internal/adapters/http"
	"github.com/samirrijal/fieldtrack/internal/adapters/mqtt"
	natsadapter "github.com/samirrijal/fieldtrack/internal/adapters/nats"
	"github.com/samirrijal/fieldtrack/internal/adapters/osrm"
	"github.com/samirrijal/fieldtrack/internal/adapters/postgres"
	"github.com/samirrijal/fieldtrack/internal/adapters/valkey"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
	"github.com/samirrijal/fieldtrack/internal/pkg/config"
	"github.com/samirrijal/fieldtrack/internal/pkg/logging"
	"github.com/samirrijal/fieldtrack/internal/pkg/telemetry"
	"github.com/samirrijal/fieldtrack/internal/renderer"
	"github.com/samirrijal/fieldtrack/internal/scene"
	"github.com/samirrijal/fieldtrack/internal/search"
)

func main() {
	cfg, err := config.Load("fieldtrack-renderer")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	sessionID := cfg.Session.ID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	deviceID := cfg.MQTT.DeviceID
	if deviceID == "" {
		deviceID = sessionID
	}

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, geocoding uncached", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	// NATS bridge
	nc, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer nc.Close()
	if err := natsadapter.EnsureStream(nc); err != nil {
		slog.Warn("session event stream unavailable, replay disabled", "error", err)
	}
	conn := natsadapter.NewConn(nc, sessionID, natsadapter.RendererSide)
	defer conn.Close()

	// Device location
	broker, err := mqtt.Connect(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID + "-" + sessionID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	})
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer broker.Disconnect(250)

	// Site database is optional for the renderer; it only backs the
	// company sites endpoint.
	deps := &http.Dependencies{
		Cache: cache,
		NATS:  nc,
		MQTT:  broker,
	}
	if db, err := postgres.New(ctx, cfg.Database.DSN()); err != nil {
		slog.Warn("site database unavailable", "error", err)
	} else {
		defer db.Close()
		deps.DB = db
		deps.Sites = postgres.NewSiteRepo(db)
	}

	geocoder := google.NewGeocoder(cfg.Google.APIKey, cfg.Google.BaseURL)
	engine := search.NewEngine(geocoder, cache, cfg.Google.Country, cfg.Google.SearchLimit)

	sc := scene.New(scene.Viewport{Center: domain.Position{}, Zoom: 2})
	session := renderer.New(sessionID, renderer.Config{
		ThrottleInterval:        cfg.Session.Throttle(),
		RedrawInterval:          cfg.Session.Redraw(),
		FrameInterval:           cfg.Session.Frame(),
		MinRedrawDistanceMeters: cfg.Session.MinRedrawDistance,
		WatchTimeout:            cfg.Session.WatchTimeout(),
		FocusZoom:               cfg.Session.FocusZoom,
		RequestTimeout:          cfg.Session.RequestTimeout(),
	}, renderer.Deps{
		Surface:  sc,
		Search:   engine,
		Router:   osrm.NewRouter(cfg.OSRM.BaseURL),
		Location: mqtt.NewLocationSource(broker, deviceID, nil),
		Conn:     conn,
	})
	deps.Session = session
	deps.Scene = sc

	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- session.Run(ctx)
	}()
	slog.Info("renderer session running", "session", sessionID, "device", deviceID)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "FieldTrack Renderer",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("renderer server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-sessionDone:
		if err != nil {
			slog.Error("renderer session stopped", "error", err)
		}
	}

	session.Teardown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("renderer stopped")
}
