package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const (
	testTokenSecret = "test-token-secret-at-least-32-characters"
	testJWTSecret   = "test-jwt-secret-key-at-least-32-characters"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()

	configFile := filepath.Join(tempDir, "mesa.yaml")
	configContent := `
log:
  level: debug

server:
  host: 127.0.0.1
  port: 9090
  qr_dir: /var/lib/mesa/qrcodes

store:
  driver: sqlite
  path: /var/lib/mesa/mesa.db

token:
  signature_length: 0
  temporary_ttl: 12h

auth:
  session_ttl: 8h

orders:
  strict_transitions: true
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	envFile := filepath.Join(tempDir, "mesa.env")
	envContent := "TOKEN_SECRET_KEY=" + testTokenSecret + "\n" +
		"JWT_SECRET_KEY=\"" + testJWTSecret + "\"\n" +
		"# comments are ignored\n" +
		"MESA_PORT=8888\n"
	if err := os.WriteFile(envFile, []byte(envContent), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	t.Cleanup(func() {
		os.Unsetenv("TOKEN_SECRET_KEY")
		os.Unsetenv("JWT_SECRET_KEY")
		os.Unsetenv("MESA_PORT")
	})

	cfg, err := Load(configFile, envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Expected port 8888 from service env override, got %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "/var/lib/mesa/mesa.db" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Token.SecretKey != testTokenSecret {
		t.Errorf("Token secret not loaded from env file")
	}
	if cfg.Auth.JWTSecretKey != testJWTSecret {
		t.Errorf("Expected quotes stripped from JWT secret, got %q", cfg.Auth.JWTSecretKey)
	}
	if cfg.Token.SignatureLength != 0 {
		t.Errorf("Expected signature length 0, got %d", cfg.Token.SignatureLength)
	}
	if cfg.Token.TemporaryTTL != 12*time.Hour {
		t.Errorf("Expected temporary TTL 12h, got %v", cfg.Token.TemporaryTTL)
	}
	if cfg.Auth.SessionTTL != 8*time.Hour {
		t.Errorf("Expected session TTL 8h, got %v", cfg.Auth.SessionTTL)
	}
	if !cfg.Orders.StrictTransitions {
		t.Errorf("Expected strict transitions")
	}

	// Defaults survive for keys the file leaves out
	if cfg.Token.PermanentTTL != 365*24*time.Hour {
		t.Errorf("Expected default permanent TTL, got %v", cfg.Token.PermanentTTL)
	}
	if cfg.Realtime.SendBuffer != 256 || cfg.Realtime.PingInterval != 30*time.Second {
		t.Errorf("Unexpected realtime defaults: %+v", cfg.Realtime)
	}
	if cfg.Auth.AdminPassword != "admin123" || cfg.Auth.KitchenPassword != "cocina123" {
		t.Errorf("Unexpected seed password defaults")
	}
	if got := cfg.GetListenAddress(); got != "127.0.0.1:8888" {
		t.Errorf("Expected listen address 127.0.0.1:8888, got %s", got)
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	t.Setenv("TOKEN_SECRET_KEY", testTokenSecret)
	t.Setenv("JWT_SECRET_KEY", testJWTSecret)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "json" || cfg.Store.Path != "./db.json" {
		t.Errorf("Unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Token.SignatureLength != 16 {
		t.Errorf("Expected default signature length 16, got %d", cfg.Token.SignatureLength)
	}
	if !cfg.Metrics.Enabled {
		t.Errorf("Expected metrics enabled by default")
	}
}

func TestEnvironmentWinsOverEnvFile(t *testing.T) {
	t.Setenv("TOKEN_SECRET_KEY", testTokenSecret)
	t.Setenv("JWT_SECRET_KEY", testJWTSecret)
	t.Setenv("STORE_PATH", "/from/environment.json")

	envFile := filepath.Join(t.TempDir(), "mesa.env")
	if err := os.WriteFile(envFile, []byte("STORE_PATH=/from/file.json\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Path != "/from/environment.json" {
		t.Errorf("Expected environment to win, got %s", cfg.Store.Path)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		if err := NewConfigLoader(LoaderConfig{}).setDefaults(cfg); err != nil {
			t.Fatalf("setDefaults failed: %v", err)
		}
		cfg.Token.SecretKey = testTokenSecret
		cfg.Auth.JWTSecretKey = testJWTSecret
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing token secret", func(c *Config) { c.Token.SecretKey = "" }, "TOKEN_SECRET_KEY"},
		{"short token secret", func(c *Config) { c.Token.SecretKey = "short" }, "at least 32"},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecretKey = "" }, "JWT_SECRET_KEY"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }, "store driver"},
		{"negative signature", func(c *Config) { c.Token.SignatureLength = -1 }, "signature length"},
		{"zero session", func(c *Config) { c.Auth.SessionTTL = 0 }, "session TTL"},
		{"ping after pong", func(c *Config) { c.Realtime.PingInterval = time.Minute * 2 }, "ping interval"},
		{"tls without cert", func(c *Config) { c.TLS.Enabled = true }, "cert_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigureZerolog(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		cfg  LogConfig
		want zerolog.Level
	}{
		{LogConfig{Level: "error"}, zerolog.ErrorLevel},
		{LogConfig{Level: "WARNING"}, zerolog.WarnLevel},
		{LogConfig{Level: "trace"}, zerolog.TraceLevel},
		{LogConfig{Level: "nonsense"}, zerolog.InfoLevel},
		{LogConfig{Level: "error", Debug: true}, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		tt.cfg.ConfigureZerolog()
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("Level %q debug=%v: expected %v, got %v", tt.cfg.Level, tt.cfg.Debug, tt.want, got)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if got := FindConfigFile("mesa-test"); got != "" {
		t.Errorf("Expected no config file, got %s", got)
	}

	if err := os.MkdirAll("configs", 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("configs", "mesa-test.yaml"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile("mesa-test"); got != filepath.Join("configs", "mesa-test.yaml") {
		t.Errorf("Expected configs/mesa-test.yaml, got %s", got)
	}

	if err := os.WriteFile(".env", []byte("A=1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := FindEnvironmentFile("mesa-test"); got != ".env" {
		t.Errorf("Expected .env, got %s", got)
	}
}
