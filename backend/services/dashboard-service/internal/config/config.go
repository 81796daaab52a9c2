package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "wastelog/backend/libs/config"
)

// Config defines dashboard service configuration.
type Config struct {
	HTTP struct {
		Port           string   `yaml:"port" env:"DASHBOARD_HTTP_PORT"`
		AllowedOrigins []string `yaml:"allowedOrigins" env:"DASHBOARD_ALLOWED_ORIGINS"`
		StaticDir      string   `yaml:"staticDir" env:"DASHBOARD_STATIC_DIR"`
	} `yaml:"http"`
	NodeRed struct {
		BaseURL      string        `yaml:"baseUrl" env:"NODE_RED_URL"`
		WebSocketURL string        `yaml:"websocketUrl" env:"NODE_RED_WS_URL"`
		Timeout      time.Duration `yaml:"timeout" env:"NODE_RED_TIMEOUT"`
	} `yaml:"nodeRed"`
	Device struct {
		ID       string `yaml:"id" env:"DEVICE_ID"`
		TimeZone string `yaml:"timeZone" env:"DEVICE_TIME_ZONE"`
	} `yaml:"device"`
	Calendar struct {
		RefreshInterval time.Duration `yaml:"refreshInterval" env:"CALENDAR_REFRESH_INTERVAL"`
	} `yaml:"calendar"`
	Measure struct {
		SettleDelay time.Duration `yaml:"settleDelay" env:"MEASURE_SETTLE_DELAY"`
	} `yaml:"measure"`
	Realtime struct {
		InitialBackoff time.Duration `yaml:"initialBackoff" env:"REALTIME_INITIAL_BACKOFF"`
		MaxBackoff     time.Duration `yaml:"maxBackoff" env:"REALTIME_MAX_BACKOFF"`
		MaxAttempts    int           `yaml:"maxAttempts" env:"REALTIME_MAX_ATTEMPTS"`
		Cooldown       time.Duration `yaml:"cooldown" env:"REALTIME_COOLDOWN"`
		ReadTimeout    time.Duration `yaml:"readTimeout" env:"REALTIME_READ_TIMEOUT"`
		StableAfter    time.Duration `yaml:"stableAfter" env:"REALTIME_STABLE_AFTER"`
		WriteTimeout   time.Duration `yaml:"writeTimeout" env:"REALTIME_WRITE_TIMEOUT"`
	} `yaml:"realtime"`
	Auth struct {
		Username     string        `yaml:"username" env:"DASHBOARD_USERNAME"`
		PasswordHash string        `yaml:"passwordHash" env:"DASHBOARD_PASSWORD_HASH"`
		JWTSecret    string        `yaml:"jwtSecret" env:"DASHBOARD_JWT_SECRET"`
		TokenTTL     time.Duration `yaml:"tokenTtl" env:"DASHBOARD_TOKEN_TTL"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string        `yaml:"addr" env:"DASHBOARD_REDIS_ADDR"`
		Password string        `yaml:"password" env:"DASHBOARD_REDIS_PASSWORD"`
		DB       int           `yaml:"db" env:"DASHBOARD_REDIS_DB"`
		TTL      time.Duration `yaml:"ttl" env:"DASHBOARD_REDIS_TTL"`
	} `yaml:"redis"`
	Database struct {
		DSN string `yaml:"dsn" env:"DASHBOARD_POSTGRES_DSN"`
	} `yaml:"database"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.NodeRed.Timeout = 10 * time.Second
	cfg.Device.ID = "gps_wastelog_01"
	cfg.Device.TimeZone = "Asia/Jakarta"
	cfg.Calendar.RefreshInterval = time.Minute
	cfg.Measure.SettleDelay = 5 * time.Second
	cfg.Realtime.InitialBackoff = time.Second
	cfg.Realtime.MaxBackoff = time.Minute
	cfg.Realtime.MaxAttempts = 10
	cfg.Realtime.Cooldown = 5 * time.Minute
	cfg.Realtime.WriteTimeout = 10 * time.Second
	cfg.Auth.TokenTTL = 12 * time.Hour
	cfg.Redis.TTL = 24 * time.Hour
	return cfg
}

// Validate checks required fields.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.NodeRed.BaseURL) == "" {
		errs = append(errs, errors.New("config: node-red base url required"))
	}
	if strings.TrimSpace(c.Device.ID) == "" {
		errs = append(errs, errors.New("config: device id required"))
	}
	if strings.TrimSpace(c.Auth.Username) == "" || strings.TrimSpace(c.Auth.PasswordHash) == "" {
		errs = append(errs, errors.New("config: dashboard username and password hash required"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("config: jwt secret required"))
	}
	if _, err := time.LoadLocation(c.Device.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("config: time zone: %w", err))
	}
	return errors.Join(errs...)
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RealtimeURL returns the upstream location feed, derived from the base URL
// when not set explicitly.
func (c *Config) RealtimeURL() string {
	if u := strings.TrimSpace(c.NodeRed.WebSocketURL); u != "" {
		return u
	}
	return strings.TrimRight(c.NodeRed.BaseURL, "/") + "/ws/realtimelocation"
}

// Location returns the display time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Device.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HTTPTimeout returns the Node-RED client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.NodeRed.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.NodeRed.Timeout
}
