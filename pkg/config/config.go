// Package config loads the mesa server configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName prefixes service-specific environment overrides and names the
// config files searched for.
const ServiceName = "mesa"

// Config contains all configuration for the mesa server
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Token    TokenConfig    `yaml:"token"`
	Auth     AuthConfig     `yaml:"auth"`
	Orders   OrdersConfig   `yaml:"orders"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	TLS      TLSConfig      `yaml:"tls"`
}

// LogConfig configures logging behavior
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" default:"console"`
	Debug  bool   `yaml:"debug" env:"DEBUG" default:"false"`
}

// ConfigureZerolog sets the global level. Debug forces debug level.
func (c *LogConfig) ConfigureZerolog() {
	level := zerolog.InfoLevel
	if c.Debug {
		level = zerolog.DebugLevel
	} else if parsed, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	} else if strings.EqualFold(c.Level, "warning") {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
}

// ServerConfig configures the HTTP listener and static assets.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"PORT" default:"3000"`
	QRDir           string        `yaml:"qr_dir" env:"QR_DIR" default:"./qrcodes"`
	QRSize          int           `yaml:"qr_size" default:"400"`
	AllowedOrigin   string        `yaml:"allowed_origin" default:"*"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" default:"json"`
	Path   string `yaml:"path" env:"STORE_PATH" default:"./db.json"`
	Debug  bool   `yaml:"debug" default:"false"`
}

// TokenConfig configures table tokens.
type TokenConfig struct {
	SecretKey       string        `yaml:"-" env:"TOKEN_SECRET_KEY"`
	SignatureLength int           `yaml:"signature_length" default:"16"`
	PermanentTTL    time.Duration `yaml:"permanent_ttl" default:"8760h"`
	TemporaryTTL    time.Duration `yaml:"temporary_ttl" default:"24h"`
}

// AuthConfig configures staff sessions and the seeded accounts.
type AuthConfig struct {
	JWTSecretKey    string        `yaml:"-" env:"JWT_SECRET_KEY"`
	SessionTTL      time.Duration `yaml:"session_ttl" default:"24h"`
	AdminPassword   string        `yaml:"-" env:"ADMIN_PASSWORD" default:"admin123"`
	KitchenPassword string        `yaml:"-" env:"KITCHEN_PASSWORD" default:"cocina123"`
	BcryptCost      int           `yaml:"bcrypt_cost" default:"10"`
}

// OrdersConfig configures the order workflow.
type OrdersConfig struct {
	// StrictTransitions rejects status changes that move an order backwards.
	StrictTransitions bool `yaml:"strict_transitions" default:"false"`
}

// RealtimeConfig configures websocket connections.
type RealtimeConfig struct {
	SendBuffer   int           `yaml:"send_buffer" default:"256"`
	PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
	PongWait     time.Duration `yaml:"pong_wait" default:"60s"`
	WriteWait    time.Duration `yaml:"write_wait" default:"10s"`
}

// MetricsConfig configures the gauge collector.
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	CollectInterval time.Duration `yaml:"collect_interval" default:"15s"`
}

// TLSConfig contains TLS configuration
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Load loads the configuration from multiple sources
func Load(configFile, envFile string) (*Config, error) {
	cfg := &Config{}

	loader := NewConfigLoader(LoaderConfig{
		ConfigFile:      configFile,
		EnvironmentFile: envFile,
		ServiceName:     ServiceName,
	})

	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load mesa configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mesa configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Token.SecretKey == "" {
		return fmt.Errorf("TOKEN_SECRET_KEY environment variable is required")
	}
	if len(c.Token.SecretKey) < 32 {
		return fmt.Errorf("TOKEN_SECRET_KEY must be at least 32 characters long")
	}
	if c.Auth.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}
	if len(c.Auth.JWTSecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Server.QRDir == "" {
		return fmt.Errorf("server qr_dir is required")
	}

	switch c.Store.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store driver must be json or sqlite, got %q", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if c.Token.SignatureLength < 0 {
		return fmt.Errorf("token signature length must not be negative")
	}
	if c.Token.PermanentTTL <= 0 || c.Token.TemporaryTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Auth.AdminPassword == "" || c.Auth.KitchenPassword == "" {
		return fmt.Errorf("seed passwords must not be empty")
	}

	if c.Realtime.PingInterval >= c.Realtime.PongWait {
		return fmt.Errorf("realtime ping interval must be shorter than pong wait")
	}

	if c.TLS.Enabled && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return fmt.Errorf("tls cert_file and key_file are required when tls is enabled")
	}

	return nil
}

// GetListenAddress returns the address the server should listen on
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
