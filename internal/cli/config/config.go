// Package config holds mesactl settings: the server to talk to and the
// session obtained by "mesactl login".
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultServerURL is used when nothing else names a server.
const DefaultServerURL = "http://localhost:3000"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`

	// path is where Save writes; empty means the default location.
	path string
}

type ServerConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	Role     string `mapstructure:"role"`
}

// Load reads configFile, or config.yaml from the working directory,
// ~/.mesactl and /etc/mesactl. MESA_SERVER_URL and MESA_AUTH_TOKEN override
// the file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mesactl")
		v.AddConfigPath("/etc/mesactl/")
	}

	v.SetEnvPrefix("MESA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.url")
	_ = v.BindEnv("auth.token")

	v.SetDefault("server.url", DefaultServerURL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.path = configFile
	if cfg.path == "" {
		cfg.path = v.ConfigFileUsed()
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	return &cfg, nil
}

// Path returns the file Save writes to.
func (c *Config) Path() (string, error) {
	if c.path != "" {
		return c.path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mesactl", "config.yaml"), nil
}

// Save writes the configuration, creating its directory with owner-only
// permissions since it holds a session token.
func (c *Config) Save() error {
	path, err := c.Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.Set("server.url", c.Server.URL)
	v.Set("auth.token", c.Auth.Token)
	v.Set("auth.username", c.Auth.Username)
	v.Set("auth.role", c.Auth.Role)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}
