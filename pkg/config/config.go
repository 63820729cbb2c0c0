// Package config loads Smart Guide settings from an optional TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the TOML file, environment
// variables. The upstream credential is normally supplied through
// AI_GATEWAY_API_KEY rather than the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/smartguide/smartguide/relay"
)

// Environment variables read by Load.
const (
	EnvAPIKey   = "AI_GATEWAY_API_KEY"
	EnvListen   = "SMART_GUIDE_LISTEN"
	EnvRelayURL = "SMART_GUIDE_RELAY_URL"
	EnvDebug    = "SMART_GUIDE_DEBUG"
)

// Config is the complete Smart Guide configuration.
type Config struct {
	Debug    bool           `toml:"debug"`
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Client   ClientConfig   `toml:"client"`
}

// ServerConfig configures the relay listener.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// UpstreamConfig configures the chat completions gateway.
type UpstreamConfig struct {
	URL           string   `toml:"url"`
	Model         string   `toml:"model"`
	APIKey        string   `toml:"api_key"`
	Timeout       Duration `toml:"timeout"`
	HeaderTimeout Duration `toml:"header_timeout"`
}

// ClientConfig configures the chat client.
type ClientConfig struct {
	RelayURL string `toml:"relay_url"`
}

// Duration is a time.Duration written as a string such as "90s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":8080",
		},
		Upstream: UpstreamConfig{
			URL:           relay.DefaultUpstreamURL,
			Model:         relay.DefaultModel,
			Timeout:       Duration{relay.DefaultUpstreamTimeout},
			HeaderTimeout: Duration{relay.DefaultHeaderTimeout},
		},
		Client: ClientConfig{
			RelayURL: "http://localhost:8080",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultEnvFile is read by LoadEnvFile when no path is given.
const DefaultEnvFile = ".env"

// LoadEnvFile exports the variables in a dotenv file so Load can see them.
// Variables already set in the environment win. A missing file is not an
// error unless path was given explicitly.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("could not read env file %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not parse env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv(EnvRelayURL); v != "" {
		c.Client.RelayURL = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDebug, v, err)
		}
		c.Debug = debug
	}
	return nil
}

// RelayConfig returns the relay server settings.
func (c *Config) RelayConfig() relay.Config {
	return relay.Config{
		ListenAddr:      c.Server.Listen,
		UpstreamURL:     c.Upstream.URL,
		Model:           c.Upstream.Model,
		APIKey:          c.Upstream.APIKey,
		UpstreamTimeout: c.Upstream.Timeout.Duration,
		HeaderTimeout:   c.Upstream.HeaderTimeout.Duration,
	}
}
