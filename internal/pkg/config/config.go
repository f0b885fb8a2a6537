package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Google    GoogleConfig    `mapstructure:"google"`
	OSRM      OSRMConfig      `mapstructure:"osrm"`
	Session   SessionConfig   `mapstructure:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DeviceID string `mapstructure:"device_id"`
}

type GoogleConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Country     string `mapstructure:"country"`
	CountryName string `mapstructure:"country_name"`
	SearchLimit int    `mapstructure:"search_limit"`
}

type OSRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// SessionConfig tunes the renderer session. Durations are milliseconds.
type SessionConfig struct {
	ID                string  `mapstructure:"id"`
	ThrottleMS        int     `mapstructure:"throttle_ms"`
	RedrawMS          int     `mapstructure:"redraw_ms"`
	FrameMS           int     `mapstructure:"frame_ms"`
	WatchTimeoutMS    int     `mapstructure:"watch_timeout_ms"`
	RequestTimeoutMS  int     `mapstructure:"request_timeout_ms"`
	MinRedrawDistance float64 `mapstructure:"min_redraw_distance_m"`
	FocusZoom         float64 `mapstructure:"focus_zoom"`
}

func (s SessionConfig) Throttle() time.Duration { return ms(s.ThrottleMS) }
func (s SessionConfig) Redraw() time.Duration   { return ms(s.RedrawMS) }
func (s SessionConfig) Frame() time.Duration    { return ms(s.FrameMS) }
func (s SessionConfig) WatchTimeout() time.Duration {
	return ms(s.WatchTimeoutMS)
}
func (s SessionConfig) RequestTimeout() time.Duration {
	return ms(s.RequestTimeoutMS)
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FIELDTRACK_MQTT_BROKER → mqtt.broker
	v.SetEnvPrefix("FIELDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fieldtrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "fieldtrack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", service)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.device_id", "")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("google.country", "PH")
	v.SetDefault("google.country_name", "Philippines")
	v.SetDefault("google.search_limit", 10)
	v.SetDefault("osrm.base_url", "https://router.project-osrm.org")
	v.SetDefault("session.id", "")
	v.SetDefault("session.throttle_ms", 1000)
	v.SetDefault("session.redraw_ms", 2000)
	v.SetDefault("session.frame_ms", 16)
	v.SetDefault("session.watch_timeout_ms", 30000)
	v.SetDefault("session.request_timeout_ms", 10000)
	v.SetDefault("session.min_redraw_distance_m", 0.0)
	v.SetDefault("session.focus_zoom", 16.0)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	}
	if c.Google.Country == "" {
		errs = append(errs, "google.country is required")
	}
	if c.Google.SearchLimit <= 0 {
		errs = append(errs, "google.search_limit must be positive")
	}
	if c.OSRM.BaseURL == "" {
		errs = append(errs, "osrm.base_url is required")
	}
	if c.Session.ThrottleMS <= 0 {
		errs = append(errs, "session.throttle_ms must be positive")
	}
	if c.Session.RedrawMS <= 0 {
		errs = append(errs, "session.redraw_ms must be positive")
	}
	if c.Session.FrameMS <= 0 {
		errs = append(errs, "session.frame_ms must be positive")
	}
	if c.Session.WatchTimeoutMS <= 0 {
		errs = append(errs, "session.watch_timeout_ms must be positive")
	}
	if c.Session.RequestTimeoutMS <= 0 {
		errs = append(errs, "session.request_timeout_ms must be positive")
	}
	if c.Session.MinRedrawDistance < 0 {
		errs = append(errs, "session.min_redraw_distance_m must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "auto":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json, text or auto, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
