package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("fieldtrack-test")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "fieldtrack-test", cfg.Telemetry.ServiceName)
	assert.Equal(t, "fieldtrack-test", cfg.MQTT.ClientID)
	assert.Equal(t, time.Second, cfg.Session.Throttle())
	assert.Equal(t, 2*time.Second, cfg.Session.Redraw())
	assert.Equal(t, 30*time.Second, cfg.Session.WatchTimeout())
	assert.Equal(t, 10, cfg.Google.SearchLimit)
	assert.Zero(t, cfg.Session.MinRedrawDistance)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FIELDTRACK_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("FIELDTRACK_SESSION_THROTTLE_MS", "500")

	cfg, err := Load("fieldtrack-test")
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.Throttle())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg, err := Load("fieldtrack-test")
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.NATS.URL = ""
	cfg.Session.MinRedrawDistance = -1
	cfg.Log.Format = "xml"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "nats.url", "min_redraw_distance_m", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "ft", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/ft?sslmode=disable", d.DSN())
}
